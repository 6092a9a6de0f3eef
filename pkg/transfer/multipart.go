package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"

	"lfsclient/pkg/core"
	"lfsclient/pkg/logr"
	"lfsclient/pkg/types"
)

// MultipartAdapter 实现 multipart-basic：init → parts → commit → verify
// 下载与 basic 完全一致，直接复用
type MultipartAdapter struct {
	doer     Doer
	verifier Verifier
	basic    *BasicAdapter
	logger   logr.Logger
}

func NewMultipartAdapter(doer Doer, logger logr.Logger) *MultipartAdapter {
	mlogger := logger.WithValues("transfer", types.TransferMultipartBasic)
	return &MultipartAdapter{
		doer:     doer,
		verifier: NewVerifier(doer, mlogger),
		basic:    NewBasicAdapter(doer, logger),
		logger:   mlogger,
	}
}

func (a *MultipartAdapter) Name() string { return types.TransferMultipartBasic }

// Upload 严格按顺序执行各阶段，任一阶段失败立即返回，不跳过也不重排
func (a *MultipartAdapter) Upload(ctx context.Context, r io.ReadSeeker, obj types.BatchObject) error {
	if !obj.HasActions() {
		a.logger.V(1).Info("no actions, object already exists", "oid", obj.Oid)
		return nil
	}
	var acts types.MultipartActions
	if err := json.Unmarshal(obj.Actions, &acts); err != nil {
		return fmt.Errorf("failed to decode multipart actions: %w", err)
	}

	seq := &sequencer{
		doer:     a.doer,
		verifier: a.verifier,
		logger:   a.logger.WithValues("oid", obj.Oid),
		r:        r,
		obj:      obj.Object,
		acts:     &acts,
	}
	if err := seq.run(ctx); err != nil {
		// abort action 从不自动调用，服务端的半成品状态留给调用方处理
		if acts.Abort != nil {
			seq.logger.Info("multipart upload failed, abort action not invoked", "abort", acts.Abort.Href, "state", seq.state)
		}
		return err
	}
	return nil
}

func (a *MultipartAdapter) Download(ctx context.Context, w io.Writer, obj types.BatchObject) error {
	return a.basic.Download(ctx, w, obj)
}

// state 是 multipart 上传状态机的状态
type state int

const (
	stateStart state = iota
	stateInit
	stateParts
	stateCommit
	stateVerify
	stateDone
)

func (s state) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateInit:
		return "init"
	case stateParts:
		return "parts"
	case stateCommit:
		return "commit"
	case stateVerify:
		return "verify"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// sequencer 驱动一次 multipart 上传
// START → (无阶段 ⇒ DONE) | INIT → PARTS[0..n) → COMMIT → VERIFY → DONE
// 每个状态失败都是终止的，错误里带着失败的阶段
type sequencer struct {
	doer     Doer
	verifier Verifier
	logger   logr.Logger

	r    io.ReadSeeker
	obj  types.Object
	acts *types.MultipartActions

	state state
	part  int // 下一个要上传的分片
}

func (s *sequencer) run(ctx context.Context) error {
	for s.state != stateDone {
		next, err := s.step(ctx)
		if err != nil {
			return err
		}
		s.state = next
	}
	return nil
}

// step 执行当前状态并返回下一个状态
func (s *sequencer) step(ctx context.Context) (state, error) {
	switch s.state {
	case stateStart:
		if s.acts.IsEmpty() {
			s.logger.V(1).Info("no multipart actions, object already exists")
			return stateDone, nil
		}
		if err := validateParts(s.acts.Parts, s.obj.Size); err != nil {
			return stateStart, err
		}
		return stateInit, nil

	case stateInit:
		if s.acts.Init == nil {
			return stateParts, nil
		}
		s.logger.V(1).Info("sending multipart init action", "href", s.acts.Init.Href)
		return stateParts, sendAction(ctx, s.doer, PhaseInit, 0, s.acts.Init, http.MethodPost, payload(s.acts.Init), nil)

	case stateParts:
		if s.part >= len(s.acts.Parts) {
			return stateCommit, nil
		}
		if err := s.uploadPart(ctx, s.part); err != nil {
			return stateParts, err
		}
		s.part++
		return stateParts, nil

	case stateCommit:
		if s.acts.Commit == nil {
			return stateVerify, nil
		}
		s.logger.V(1).Info("sending multipart commit action", "href", s.acts.Commit.Href)
		return stateVerify, sendAction(ctx, s.doer, PhaseCommit, 0, s.acts.Commit, http.MethodPost, payload(s.acts.Commit), nil)

	case stateVerify:
		if s.acts.Verify == nil {
			return stateDone, nil
		}
		return stateDone, s.verifier.Verify(ctx, s.acts.Verify, s.obj)
	}
	return stateDone, fmt.Errorf("multipart sequencer in unexpected state %v", s.state)
}

// uploadPart 定位到 pos，读取 size 字节 (size 缺省或为 0 时读取剩余全部)，按需附加摘要头后发送
func (s *sequencer) uploadPart(ctx context.Context, i int) error {
	part := s.acts.Parts[i]
	s.logger.V(1).Info("uploading part", "part", i+1, "of", len(s.acts.Parts), "href", part.Href, "pos", part.Pos)

	if _, err := s.r.Seek(part.Pos, io.SeekStart); err != nil {
		return &PhaseError{Phase: PhasePart, Part: i, Err: &core.NotSeekableError{Err: err}}
	}

	// 按流的实际内容读取，不按服务端给的 size 预分配
	src := io.Reader(s.r)
	if part.Size != nil && *part.Size > 0 {
		src = io.LimitReader(s.r, *part.Size)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return &PhaseError{Phase: PhasePart, Part: i, Err: fmt.Errorf("failed to read part data: %w", err)}
	}
	if part.Size != nil && *part.Size > 0 && int64(len(data)) != *part.Size {
		return &PhaseError{Phase: PhasePart, Part: i, Err: fmt.Errorf("%w: part %d wants %d bytes, stream has %d", ErrInvalidParts, i, *part.Size, len(data))}
	}

	// 摘要头合并进 header 的副本，不修改 action 本身
	header := maps.Clone(part.Header)
	if part.WantDigest != "" {
		digest, err := core.DigestHeader(data, part.WantDigest)
		if err != nil {
			return &PhaseError{Phase: PhasePart, Part: i, Err: err}
		}
		if header == nil {
			header = make(map[string]string, len(digest))
		}
		maps.Copy(header, digest)
	}

	return sendAction(ctx, s.doer, PhasePart, i, &part.Action, http.MethodPut, data, header)
}

// payload 返回 action 的请求体；没有请求体时返回 nil 接口
func payload(a *types.Action) any {
	if b := a.Payload(); b != nil {
		return b
	}
	return nil
}

// validateParts 检查分片从 0 开始、按 pos 严格递增且首尾相接，并覆盖 [0, size)
// 只有最后一个分片可以省略 size；size 为 0 与省略相同，表示读到末尾
// 非空对象必须至少有一个分片
func validateParts(parts []types.PartAction, size int64) error {
	if len(parts) == 0 {
		if size > 0 {
			return fmt.Errorf("%w: no parts for a %d byte object", ErrInvalidParts, size)
		}
		return nil
	}
	var next int64
	for i, p := range parts {
		if p.Pos != next {
			return fmt.Errorf("%w: part %d starts at %d, expected %d", ErrInvalidParts, i, p.Pos, next)
		}
		if p.Size == nil || *p.Size == 0 {
			if i != len(parts)-1 {
				return fmt.Errorf("%w: part %d has no size but is not the last part", ErrInvalidParts, i)
			}
			next = size
			continue
		}
		if *p.Size < 0 {
			return fmt.Errorf("%w: part %d has negative size %d", ErrInvalidParts, i, *p.Size)
		}
		next = p.Pos + *p.Size
	}
	if next != size {
		return fmt.Errorf("%w: parts cover %d bytes, object has %d", ErrInvalidParts, next, size)
	}
	return nil
}
