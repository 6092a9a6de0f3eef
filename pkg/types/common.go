// pkg/types/common.go
package types

import "strings"

// ContentType 是 Git LFS batch API 使用的媒体类型
const ContentType = "application/vnd.git-lfs+json"

// 客户端认识的 transfer adapter 名称
const (
	TransferBasic          = "basic"
	TransferMultipartBasic = "multipart-basic"
)

// OID 代表对象的唯一标识符 (小写 SHA256 Hex String)
// 这是一个“值对象”，应当是不可变的。
type OID string

func (o OID) String() string { return string(o) }

// IsValid 检查是否是 64 位小写十六进制
func (o OID) IsValid() bool {
	if len(o) != 64 {
		return false
	}
	return strings.IndexFunc(string(o), func(r rune) bool {
		return !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f')
	}) == -1
}

// Short 返回前 8 位，用于日志和终端输出
func (o OID) Short() string {
	if len(o) < 8 {
		return string(o)
	}
	return string(o[:8])
}

// Operation 是 batch 请求的操作类型
type Operation string

const (
	OperationUpload   Operation = "upload"
	OperationDownload Operation = "download"
)

func (op Operation) String() string { return string(op) }

func (op Operation) IsValid() bool {
	return op == OperationUpload || op == OperationDownload
}

// Object 描述一个 LFS 对象的内容身份
// 不变量：Oid 是恰好 Size 字节内容的 SHA256
type Object struct {
	Oid           OID   `json:"oid"`
	Size          int64 `json:"size"`
	Authenticated bool  `json:"authenticated,omitempty"`
}
