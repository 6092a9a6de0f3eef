package transfer

import (
	"context"
	"encoding/json"
	"net/http"

	"lfsclient/pkg/logr"
	"lfsclient/pkg/types"
)

// Verifier 执行上传后的 verify action
// basic 和 multipart 都组合它，而不是通过继承共享
type Verifier struct {
	doer   Doer
	logger logr.Logger
}

func NewVerifier(doer Doer, logger logr.Logger) Verifier {
	return Verifier{doer: doer, logger: logger}
}

// Verify 把 {oid, size} POST 到 verify action
// 非 2xx 返回 Phase 为 verify 的 *PhaseError
func (v Verifier) Verify(ctx context.Context, action *types.Action, obj types.Object) error {
	v.logger.V(1).Info("sending verify action", "href", action.Href, "oid", obj.Oid)

	body, err := json.Marshal(types.Object{Oid: obj.Oid, Size: obj.Size})
	if err != nil {
		return &PhaseError{Phase: PhaseVerify, Err: err}
	}
	req, err := newActionRequest(ctx, action, http.MethodPost, body, nil)
	if err != nil {
		return &PhaseError{Phase: PhaseVerify, Err: err}
	}
	// action 自己声明了 Content-Type 时以它为准
	if _, ok := action.Header["Content-Type"]; !ok {
		req.Header.Set("Content-Type", types.ContentType)
	}
	req.Header.Set("Accept", types.ContentType)

	resp, err := doAction(v.doer, req, PhaseVerify, 0)
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}
