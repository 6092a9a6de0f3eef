package transfer

import (
	"testing"

	"lfsclient/pkg/logr"
	"lfsclient/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{types.TransferBasic, types.TransferMultipartBasic}, r.Names())
	require.NoError(t, r.Validate([]string{types.TransferMultipartBasic, types.TransferBasic}))

	for _, name := range r.Names() {
		f, err := r.Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, f(testDoer(), logr.Discard()).Name())
	}
}

func TestRegistry_Lookup_Unknown(t *testing.T) {
	r := DefaultRegistry()
	_, err := r.Lookup("tus")

	var ute *UnsupportedTransferError
	require.ErrorAs(t, err, &ute)
	assert.Equal(t, "tus", ute.Name)
	assert.Equal(t, r.Names(), ute.Supported)
	assert.EqualError(t, err, `unsupported transfer adapter: "tus" (supported: basic, multipart-basic)`)
}

func TestRegistry_Register(t *testing.T) {
	basic := func(doer Doer, logger logr.Logger) Adapter { return NewBasicAdapter(doer, logger) }

	tests := []struct {
		name    string
		setup   func(r *Registry)
		regName string
		factory Factory
		wantErr string
	}{
		{name: "ok", regName: "basic", factory: basic},
		{name: "empty name", regName: "", factory: basic, wantErr: "must not be empty"},
		{name: "nil factory", regName: "basic", wantErr: "nil factory"},
		{
			name:    "duplicate",
			setup:   func(r *Registry) { require.NoError(t, r.Register("basic", basic)) },
			regName: "basic",
			factory: basic,
			wantErr: "already registered",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			if tt.setup != nil {
				tt.setup(r)
			}
			err := r.Register(tt.regName, tt.factory)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRegistry_Validate(t *testing.T) {
	empty := NewRegistry()
	assert.ErrorContains(t, empty.Validate(nil), "no transfer adapters")

	r := NewRegistry()
	require.NoError(t, r.Register(types.TransferBasic, func(doer Doer, logger logr.Logger) Adapter {
		return NewBasicAdapter(doer, logger)
	}))
	assert.NoError(t, r.Validate([]string{types.TransferBasic}))

	// 偏好列表里有没注册的名称，启动时就要拒绝
	err := r.Validate([]string{types.TransferMultipartBasic, types.TransferBasic})
	var ute *UnsupportedTransferError
	require.ErrorAs(t, err, &ute)
	assert.Equal(t, types.TransferMultipartBasic, ute.Name)
	assert.Equal(t, []string{types.TransferBasic}, ute.Supported)
}
