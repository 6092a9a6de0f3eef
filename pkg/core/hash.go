package core

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"lfsclient/pkg/types"
)

// ReadBufferSize 是计算指纹时每次读取的块大小
// 固定缓冲区，避免把整个大文件读进内存
const ReadBufferSize = 4 * 1024 * 1000

// ErrNotSeekable 表示流无法回到起始位置
var ErrNotSeekable = errors.New("stream is not seekable")

// NotSeekableError 携带底层 Seek 的错误
type NotSeekableError struct {
	Err error
}

func (e *NotSeekableError) Error() string {
	return fmt.Sprintf("%s: %v", ErrNotSeekable, e.Err)
}

func (e *NotSeekableError) Is(target error) bool { return target == ErrNotSeekable }

func (e *NotSeekableError) Unwrap() error { return e.Err }

// Fingerprint 流式计算对象的 OID 和大小
// 对象就是整个流，所以从头读起，结束后把读取位置复位到开头，
// 因为上传阶段还要再读一遍同一个流。Size 是实际读到的字节数，不信任任何元数据。
func Fingerprint(r io.ReadSeeker) (types.Object, error) {
	// 1. 回到开头，顺便确认流可以 Seek
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return types.Object{}, &NotSeekableError{Err: err}
	}

	// 2. 分块读取
	hasher := sha256.New()
	buf := make([]byte, ReadBufferSize)
	size, copyErr := io.CopyBuffer(hasher, struct{ io.Reader }{r}, buf)

	// 3. 无论读取是否成功都要复位
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return types.Object{}, &NotSeekableError{Err: err}
	}
	if copyErr != nil {
		return types.Object{}, fmt.Errorf("failed to read stream: %w", copyErr)
	}

	return types.Object{
		Oid:  types.OID(hex.EncodeToString(hasher.Sum(nil))),
		Size: size,
	}, nil
}

// CalculateOID 计算一段内存数据的 OID
func CalculateOID(data []byte) types.OID {
	sum := sha256.Sum256(data)
	return types.OID(hex.EncodeToString(sum[:]))
}
