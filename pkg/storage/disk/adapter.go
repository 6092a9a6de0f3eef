package disk

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"lfsclient/pkg/storage"
	"lfsclient/pkg/types"
)

// Adapter 实现了 storage.Store 接口
type Adapter struct {
	rootPath string // 比如: /home/user/.lfs/objects
}

// NewAdapter 创建一个新的磁盘存储适配器
func NewAdapter(root string) (*Adapter, error) {
	// 确保根目录存在
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root storage dir: %w", err)
	}
	return &Adapter{rootPath: root}, nil
}

// Root 返回存储根目录
func (s *Adapter) Root() string { return s.rootPath }

// layout 返回 oid 对应的物理路径
// Example: oid "aabbcc..." -> root/aa/bbcc...
func (s *Adapter) layout(oid types.OID) string {
	dir, rest := storage.Shard(string(oid))
	return filepath.Join(s.rootPath, dir, rest)
}

func (s *Adapter) Put(ctx context.Context, oid types.OID, r io.Reader) error {
	if !oid.IsValid() {
		return fmt.Errorf("invalid oid %q", oid)
	}
	targetPath := s.layout(oid)

	// 1. 已存在直接跳过
	if _, err := os.Stat(targetPath); err == nil {
		return nil
	}

	// 2. 准备目录
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// 3. 先写临时文件再 Rename，文件要么不存在要么完整
	tempFile, err := os.CreateTemp(dir, "temp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tempFile.Name())

	if _, err := io.Copy(tempFile, r); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write object %s: %w", oid.Short(), err)
	}
	if err := tempFile.Close(); err != nil {
		return err
	}

	// 4. 移动到最终位置
	return os.Rename(tempFile.Name(), targetPath)
}

func (s *Adapter) Get(ctx context.Context, oid types.OID) (io.ReadCloser, error) {
	f, err := os.Open(s.layout(oid))
	if os.IsNotExist(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Adapter) Has(ctx context.Context, oid types.OID) (bool, error) {
	_, err := os.Stat(s.layout(oid))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// ExpandOID 在分片目录里按前缀查找
func (s *Adapter) ExpandOID(ctx context.Context, prefix string) (types.OID, error) {
	prefix = strings.ToLower(prefix)
	if len(prefix) < storage.MinPrefixLen {
		return "", storage.ErrShortPrefix
	}
	dir, rest := storage.Shard(prefix)

	entries, err := os.ReadDir(filepath.Join(s.rootPath, dir))
	if os.IsNotExist(err) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	var found types.OID
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "temp-") || !strings.HasPrefix(name, rest) {
			continue
		}
		if found != "" {
			return "", storage.ErrAmbiguousOID
		}
		found = types.OID(dir + name)
	}
	if found == "" {
		return "", storage.ErrNotFound
	}
	return found, nil
}
