package transfer

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"lfsclient/pkg/client"
	"lfsclient/pkg/core"
	"lfsclient/pkg/logr"
	"lfsclient/pkg/types"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// recorder：记录每个收到的请求，按路径返回预设的状态码
// -----------------------------------------------------------------------------

type recorded struct {
	Method        string
	Path          string
	Header        http.Header
	Body          []byte
	ContentLength int64
}

type recorder struct {
	t        *testing.T
	srv      *httptest.Server
	mu       sync.Mutex
	requests []recorded
	status   map[string]int    // path -> status，默认 200
	replies  map[string][]byte // path -> 响应体
}

func newRecorder(t *testing.T) *recorder {
	t.Helper()
	rec := &recorder{
		t:       t,
		status:  make(map[string]int),
		replies: make(map[string][]byte),
	}
	rec.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		rec.mu.Lock()
		rec.requests = append(rec.requests, recorded{
			Method:        r.Method,
			Path:          r.URL.Path,
			Header:        r.Header.Clone(),
			Body:          body,
			ContentLength: r.ContentLength,
		})
		status, ok := rec.status[r.URL.Path]
		reply := rec.replies[r.URL.Path]
		rec.mu.Unlock()

		if !ok {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write(reply)
	}))
	t.Cleanup(rec.srv.Close)
	return rec
}

func (rec *recorder) url(path string) string { return rec.srv.URL + path }

func (rec *recorder) fail(path string, status int, body string) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.status[path] = status
	rec.replies[path] = []byte(body)
}

func (rec *recorder) reply(path string, body []byte) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.replies[path] = body
}

func (rec *recorder) paths() []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var out []string
	for _, r := range rec.requests {
		out = append(out, r.Path)
	}
	return out
}

func (rec *recorder) get(path string) (recorded, bool) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, r := range rec.requests {
		if r.Path == path {
			return r, true
		}
	}
	return recorded{}, false
}

func testDoer() Doer {
	return client.NewHTTPClient(nil, logr.Discard())
}

// batchObject 构造带 actions 的 BatchObject
func batchObject(t *testing.T, data []byte, actions any) types.BatchObject {
	t.Helper()
	obj := types.BatchObject{
		Object: types.Object{Oid: core.CalculateOID(data), Size: int64(len(data))},
	}
	if actions != nil {
		raw, err := json.Marshal(actions)
		require.NoError(t, err)
		obj.Actions = raw
	}
	return obj
}

func int64p(n int64) *int64 { return &n }
