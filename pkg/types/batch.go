package types

import (
	"encoding/json"
	"time"
)

// Ref 是 batch 请求中可选的引用
type Ref struct {
	Name string `json:"name"`
}

// BatchRequest 是发往 {server}/{prefix}/objects/batch 的请求体
type BatchRequest struct {
	Operation Operation `json:"operation"`
	Transfers []string  `json:"transfers,omitempty"` // 按偏好排序
	Objects   []Object  `json:"objects"`
	Ref       *Ref      `json:"ref,omitempty"`
}

// BatchResponse 是 batch 接口的返回
type BatchResponse struct {
	Transfer string        `json:"transfer,omitempty"`
	Objects  []BatchObject `json:"objects"`
}

// BatchObject 是单个对象的协商结果
// Actions 保留原始 JSON，由被选中的 adapter 自己解析成对应的 action 集合
type BatchObject struct {
	Object
	Actions json.RawMessage `json:"actions,omitempty"`
	Error   *ObjectError    `json:"error,omitempty"`
}

// HasActions 判断服务端是否给出了 actions
// 缺失 (或 null / {}) 表示对象已经存在
func (o BatchObject) HasActions() bool {
	switch string(o.Actions) {
	case "", "null", "{}":
		return false
	}
	return true
}

// ObjectError 是 batch 返回中单个对象级别的错误
type ObjectError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Action 描述服务端下发的一个 HTTP 步骤
type Action struct {
	Href      string            `json:"href"`
	Method    string            `json:"method,omitempty"`
	Header    map[string]string `json:"header,omitempty"`
	Body      json.RawMessage   `json:"body,omitempty"`
	ExpiresIn int               `json:"expires_in,omitempty"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
}

// MethodOr 返回声明的 method，未声明时使用各阶段的默认值
func (a *Action) MethodOr(def string) string {
	if a.Method == "" {
		return def
	}
	return a.Method
}

// Payload 返回需要发送的请求体
// body 是 JSON 字符串时发送其内容本身，其余 JSON 值原样发送
func (a *Action) Payload() []byte {
	if len(a.Body) == 0 || string(a.Body) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(a.Body, &s); err == nil {
		return []byte(s)
	}
	return a.Body
}

// PartAction 是 multipart 上传中的一个分片
type PartAction struct {
	Action
	Pos        int64  `json:"pos"`
	Size       *int64 `json:"size,omitempty"` // nil 表示读到流末尾
	WantDigest string `json:"want_digest,omitempty"`
}

// UploadActions 是 basic 上传的 action 集合
type UploadActions struct {
	Upload *Action `json:"upload,omitempty"`
	Verify *Action `json:"verify,omitempty"`
}

// DownloadActions 是下载的 action 集合
type DownloadActions struct {
	Download *Action `json:"download,omitempty"`
}

// MultipartActions 是 multipart-basic 上传的 action 集合
type MultipartActions struct {
	Init   *Action      `json:"init,omitempty"`
	Parts  []PartAction `json:"parts,omitempty"`
	Commit *Action      `json:"commit,omitempty"`
	Verify *Action      `json:"verify,omitempty"`
	Abort  *Action      `json:"abort,omitempty"` // 协议中存在，客户端从不自动调用
}

// IsEmpty 没有任何阶段需要执行
func (m *MultipartActions) IsEmpty() bool {
	return m.Init == nil && len(m.Parts) == 0 && m.Commit == nil && m.Verify == nil
}
