package transfer

import (
	"errors"
	"fmt"
	"strings"
)

// Phase 标识失败发生在哪个阶段
type Phase string

const (
	PhaseUpload   Phase = "upload"
	PhaseDownload Phase = "download"
	PhaseInit     Phase = "init"
	PhasePart     Phase = "part"
	PhaseCommit   Phase = "commit"
	PhaseVerify   Phase = "verify"
)

// 每个阶段对应一个终止错误，用 errors.Is 判断
var (
	ErrTransfer     = errors.New("transfer failed")
	ErrInit         = errors.New("multipart init failed")
	ErrPartUpload   = errors.New("part upload failed")
	ErrCommit       = errors.New("multipart commit failed")
	ErrVerification = errors.New("object verification failed")

	// ErrInvalidParts 表示服务端下发的分片不连续、乱序或越界
	ErrInvalidParts = errors.New("invalid multipart part layout")
)

func (p Phase) sentinel() error {
	switch p {
	case PhaseInit:
		return ErrInit
	case PhasePart:
		return ErrPartUpload
	case PhaseCommit:
		return ErrCommit
	case PhaseVerify:
		return ErrVerification
	default:
		return ErrTransfer
	}
}

// PhaseError 是任一阶段的终止错误
// StatusCode 为 0 表示没有拿到 HTTP 响应 (网络错误、读流失败等)，此时 Err 非空
type PhaseError struct {
	Phase      Phase
	Part       int // 仅 PhasePart 有意义，从 0 开始
	StatusCode int
	Body       string
	Err        error
}

func (e *PhaseError) Error() string {
	what := e.Phase.sentinel().Error()
	if e.Phase == PhasePart {
		what = fmt.Sprintf("%s (part %d)", what, e.Part)
	}
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", what, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s: status %d: %s", what, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s: status %d", what, e.StatusCode)
	}
}

func (e *PhaseError) Is(target error) bool { return target == e.Phase.sentinel() }

func (e *PhaseError) Unwrap() error { return e.Err }

// UnsupportedTransferError 表示服务端选择了客户端没有注册的 transfer
type UnsupportedTransferError struct {
	Name      string
	Supported []string // 已注册的名称，按注册顺序
}

func (e *UnsupportedTransferError) Error() string {
	if len(e.Supported) == 0 {
		return fmt.Sprintf("unsupported transfer adapter: %q", e.Name)
	}
	return fmt.Sprintf("unsupported transfer adapter: %q (supported: %s)", e.Name, strings.Join(e.Supported, ", "))
}
