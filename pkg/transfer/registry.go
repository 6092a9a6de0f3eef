package transfer

import (
	"fmt"
	"slices"

	"lfsclient/pkg/logr"
	"lfsclient/pkg/types"
)

// Registry 是 transfer 名称到 Factory 的显式映射
// 服务端返回的名称只能命中这里注册过的 adapter，不做任何回退
type Registry struct {
	factories map[string]Factory
	order     []string
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry 注册了 basic 和 multipart-basic
func DefaultRegistry() *Registry {
	r := NewRegistry()
	// 名称固定且不重复，这里不会失败
	_ = r.Register(types.TransferBasic, func(doer Doer, logger logr.Logger) Adapter {
		return NewBasicAdapter(doer, logger)
	})
	_ = r.Register(types.TransferMultipartBasic, func(doer Doer, logger logr.Logger) Adapter {
		return NewMultipartAdapter(doer, logger)
	})
	return r
}

// Register 注册一个 adapter
func (r *Registry) Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("transfer name must not be empty")
	}
	if f == nil {
		return fmt.Errorf("transfer %q: nil factory", name)
	}
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("transfer %q already registered", name)
	}
	r.factories[name] = f
	r.order = append(r.order, name)
	return nil
}

// Validate 在启动时检查：偏好列表中的每个名称都必须已注册
// 客户端不能向服务端声明自己执行不了的 transfer
func (r *Registry) Validate(preferred []string) error {
	if len(r.factories) == 0 {
		return fmt.Errorf("no transfer adapters registered")
	}
	for _, name := range preferred {
		if _, ok := r.factories[name]; !ok {
			return &UnsupportedTransferError{Name: name, Supported: r.Names()}
		}
	}
	return nil
}

// Lookup 按名称查找 Factory，未注册返回 *UnsupportedTransferError
func (r *Registry) Lookup(name string) (Factory, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, &UnsupportedTransferError{Name: name, Supported: r.Names()}
	}
	return f, nil
}

// Names 按注册顺序返回所有名称
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}
