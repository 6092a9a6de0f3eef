// Package transfer 实现 LFS 的 transfer adapter：basic 和 multipart-basic
package transfer

import (
	"context"
	"io"
	"net/http"

	"lfsclient/pkg/client"
	"lfsclient/pkg/logr"
	"lfsclient/pkg/types"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

// DownloadChunkSize 是下载时每次写入 sink 的块大小
const DownloadChunkSize = 16 * 1024

// Doer 执行一个 HTTP 请求，*retryablehttp.Client 满足这个接口
type Doer interface {
	Do(req *retryablehttp.Request) (*http.Response, error)
}

// Adapter 是一种搬运对象字节的策略
// 同一个流在一次传输期间只能被一个调用使用
type Adapter interface {
	Name() string
	// Upload 按 actions 上传 r 的全部内容；没有 actions 表示对象已存在
	Upload(ctx context.Context, r io.ReadSeeker, obj types.BatchObject) error
	// Download 按 download action 把对象流式写入 w
	Download(ctx context.Context, w io.Writer, obj types.BatchObject) error
}

// Factory 根据 HTTP 客户端和 logger 构造 adapter
type Factory func(doer Doer, logger logr.Logger) Adapter

// newActionRequest 根据 action 构造请求
// header 先取 action 声明的，再合并 extra (例如摘要头)
func newActionRequest(ctx context.Context, action *types.Action, defMethod string, body any, extra map[string]string) (*retryablehttp.Request, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, action.MethodOr(defMethod), action.Href, body)
	if err != nil {
		return nil, err
	}
	for k, v := range action.Header {
		req.Header.Set(k, v)
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}
	return req, nil
}

// doAction 发送请求
// 只有 2xx 才返回响应 (由调用方关闭)，其余情况返回 *PhaseError
func doAction(doer Doer, req *retryablehttp.Request, phase Phase, part int) (*http.Response, error) {
	resp, err := doer.Do(req)
	if err != nil {
		return nil, &PhaseError{Phase: phase, Part: part, Err: err}
	}
	if !client.IsSuccess(resp.StatusCode) {
		defer resp.Body.Close()
		return nil, &PhaseError{
			Phase:      phase,
			Part:       part,
			StatusCode: resp.StatusCode,
			Body:       client.ReadErrorBody(resp.Body),
		}
	}
	return resp, nil
}

// sendAction 构造并发送一个不关心响应体的 action
func sendAction(ctx context.Context, doer Doer, phase Phase, part int, action *types.Action, defMethod string, body any, extra map[string]string) error {
	req, err := newActionRequest(ctx, action, defMethod, body, extra)
	if err != nil {
		return &PhaseError{Phase: phase, Part: part, Err: err}
	}
	resp, err := doAction(doer, req, phase, part)
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// drain 读完并关闭响应体，让连接可以复用
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
