package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"lfsclient/pkg/core"
	"lfsclient/pkg/logr"
	"lfsclient/pkg/types"
)

// BasicAdapter 单请求上传 / 下载
type BasicAdapter struct {
	doer     Doer
	verifier Verifier
	logger   logr.Logger
}

func NewBasicAdapter(doer Doer, logger logr.Logger) *BasicAdapter {
	logger = logger.WithValues("transfer", types.TransferBasic)
	return &BasicAdapter{
		doer:     doer,
		verifier: NewVerifier(doer, logger),
		logger:   logger,
	}
}

func (a *BasicAdapter) Name() string { return types.TransferBasic }

// Upload 把整个流作为 upload action 的请求体发送，然后按需 verify
func (a *BasicAdapter) Upload(ctx context.Context, r io.ReadSeeker, obj types.BatchObject) error {
	// 1. 没有 actions 或没有 upload：对象已在服务端
	if !obj.HasActions() {
		a.logger.V(1).Info("no actions, object already exists", "oid", obj.Oid)
		return nil
	}
	var acts types.UploadActions
	if err := json.Unmarshal(obj.Actions, &acts); err != nil {
		return fmt.Errorf("failed to decode upload actions: %w", err)
	}
	if acts.Upload == nil {
		a.logger.V(1).Info("no upload action, object already exists", "oid", obj.Oid)
		return nil
	}

	// 2. 从头发送整个流
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return &PhaseError{Phase: PhaseUpload, Err: &core.NotSeekableError{Err: err}}
	}
	req, err := newActionRequest(ctx, acts.Upload, http.MethodPut, r, nil)
	if err != nil {
		return &PhaseError{Phase: PhaseUpload, Err: err}
	}
	req.ContentLength = obj.Size

	a.logger.V(1).Info("sending upload action", "href", acts.Upload.Href, "oid", obj.Oid, "size", obj.Size)
	resp, err := doAction(a.doer, req, PhaseUpload, 0)
	if err != nil {
		return err
	}
	drain(resp)

	// 3. verify 失败时对象不算上传完成
	if acts.Verify != nil {
		return a.verifier.Verify(ctx, acts.Verify, obj.Object)
	}
	return nil
}

// Download 执行 download action，把响应体分块写入 w
// 不在客户端校验内容的 oid
func (a *BasicAdapter) Download(ctx context.Context, w io.Writer, obj types.BatchObject) error {
	var acts types.DownloadActions
	if obj.HasActions() {
		if err := json.Unmarshal(obj.Actions, &acts); err != nil {
			return fmt.Errorf("failed to decode download actions: %w", err)
		}
	}
	if acts.Download == nil {
		return &PhaseError{Phase: PhaseDownload, Err: errors.New("no download action for object " + obj.Oid.String())}
	}

	req, err := newActionRequest(ctx, acts.Download, http.MethodGet, nil, nil)
	if err != nil {
		return &PhaseError{Phase: PhaseDownload, Err: err}
	}

	a.logger.V(1).Info("sending download action", "href", acts.Download.Href, "oid", obj.Oid)
	resp, err := doAction(a.doer, req, PhaseDownload, 0)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	buf := make([]byte, DownloadChunkSize)
	n, err := io.CopyBuffer(struct{ io.Writer }{w}, struct{ io.Reader }{resp.Body}, buf)
	if err != nil {
		return &PhaseError{Phase: PhaseDownload, Err: err}
	}
	a.logger.V(1).Info("downloaded object", "oid", obj.Oid, "bytes", n)
	return nil
}
