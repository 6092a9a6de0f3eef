// Package index 缓存文件的指纹，未修改的文件重复上传时不必重新计算 SHA-256
package index

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lfsclient/pkg/types"

	"github.com/fxamacker/cbor/v2"
)

// Entry 是一条指纹记录
// 只有 Size 和 ModTime 都没变时才认为内容没变
type Entry struct {
	Path    string    `cbor:"p"`
	Oid     types.OID `cbor:"o"`
	Size    int64     `cbor:"s"`
	ModTime int64     `cbor:"m"` // UnixNano
}

// 磁盘格式：确定性编码，重复的 key 视为损坏
var (
	encMode, _ = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}.EncMode()
	decMode, _ = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}.DecMode()
)

// Index 管理指纹缓存
type Index struct {
	path    string // 物理文件路径 (.lfs/index)
	Entries map[string]Entry `cbor:"e"`
	mu      sync.RWMutex
}

// NewIndex 加载或创建一个新的 Index
func NewIndex(indexPath string) (*Index, error) {
	idx := &Index{
		path:    indexPath,
		Entries: make(map[string]Entry),
	}

	data, err := os.ReadFile(indexPath)
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	if err := decMode.Unmarshal(data, idx); err != nil {
		return nil, fmt.Errorf("corrupted index file: %w", err)
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]Entry)
	}
	return idx, nil
}

// Lookup 返回文件的缓存指纹，size 或 mtime 变化都算未命中
func (i *Index) Lookup(path string, size int64, modTime time.Time) (types.Object, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	e, ok := i.Entries[CleanPath(path)]
	if !ok || e.Size != size || e.ModTime != modTime.UnixNano() {
		return types.Object{}, false
	}
	return types.Object{Oid: e.Oid, Size: e.Size}, true
}

// Add 更新一条记录
func (i *Index) Add(path string, obj types.Object, modTime time.Time) {
	key := CleanPath(path)
	i.mu.Lock()
	defer i.mu.Unlock()

	i.Entries[key] = Entry{
		Path:    key,
		Oid:     obj.Oid,
		Size:    obj.Size,
		ModTime: modTime.UnixNano(),
	}
}

// Save 先写临时文件再 Rename 持久化到磁盘
func (i *Index) Save() error {
	i.mu.RLock()
	data, err := encMode.Marshal(i)
	i.mu.RUnlock()
	if err != nil {
		return err
	}

	dir := filepath.Dir(i.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "index-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), i.path)
}

// Snapshot 返回当前 Entry 的副本，用于并发安全的读取
func (i *Index) Snapshot() map[string]Entry {
	i.mu.RLock()
	defer i.mu.RUnlock()

	snap := make(map[string]Entry, len(i.Entries))
	maps.Copy(snap, i.Entries)
	return snap
}

func (i *Index) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Entries = make(map[string]Entry)
}

func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.Entries)
}

func (i *Index) Remove(path string) {
	key := CleanPath(path)
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.Entries, key)
}

func CleanPath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}
