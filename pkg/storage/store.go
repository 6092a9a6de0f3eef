package storage

import (
	"context"
	"errors"
	"io"

	"lfsclient/pkg/types"
)

var (
	ErrNotFound     = errors.New("object not found")
	ErrAmbiguousOID = errors.New("ambiguous oid prefix")
	ErrShortPrefix  = errors.New("oid prefix too short")
)

// MinPrefixLen 是 ExpandOID 接受的最短前缀
const MinPrefixLen = 4

// Store 是本地对象仓库，按 oid 存放下载下来的 LFS 对象
// 实现可以是本地磁盘或 S3 兼容的对象存储
type Store interface {
	// Put 把 r 的全部内容存为 oid，已存在时直接跳过
	Put(ctx context.Context, oid types.OID, r io.Reader) error

	// Get 返回对象内容，调用方负责关闭
	// 返回 io.ReadCloser 以支持大文件流式读取
	Get(ctx context.Context, oid types.OID) (io.ReadCloser, error)

	// Has 检查对象是否存在 (fetch 用它跳过已有对象)
	Has(ctx context.Context, oid types.OID) (bool, error)

	// ExpandOID 把短前缀扩展成完整 oid
	ExpandOID(ctx context.Context, prefix string) (types.OID, error)
}

// Shard 返回 oid 的分片路径：前 2 个字符作为目录
// "aabbcc..." -> "aa", "bbcc..."
func Shard(oid string) (dir, rest string) {
	if len(oid) < 2 {
		return "", oid
	}
	return oid[:2], oid[2:]
}
