package client

import (
	"fmt"

	"lfsclient/pkg/types"
)

// NegotiationError 表示 batch 接口返回了非 2xx
type NegotiationError struct {
	StatusCode int
	Body       string
}

func (e *NegotiationError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("batch negotiation failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("batch negotiation failed with status %d: %s", e.StatusCode, e.Body)
}

// ObjectError 表示 batch 返回中某个对象自带的错误 (例如 404 对象不存在)
type ObjectError struct {
	Oid     types.OID
	Code    int
	Message string
}

func (e *ObjectError) Error() string {
	return fmt.Sprintf("object %s: %d %s", e.Oid.Short(), e.Code, e.Message)
}

// SizeMismatchError 表示 batch 返回的对象 size 与请求里的不一致
type SizeMismatchError struct {
	Oid  types.OID
	Want int64
	Got  int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("object %s: server reported size %d, expected %d", e.Oid.Short(), e.Got, e.Want)
}

// CheckObject 把对象级错误转换成 *ObjectError
func CheckObject(obj types.BatchObject) error {
	if obj.Error == nil {
		return nil
	}
	return &ObjectError{
		Oid:     obj.Oid,
		Code:    obj.Error.Code,
		Message: obj.Error.Message,
	}
}
