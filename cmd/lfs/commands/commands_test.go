package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"lfsclient/pkg/app"
	"lfsclient/pkg/client"
	"lfsclient/pkg/core"
	"lfsclient/pkg/index"
	"lfsclient/pkg/lfs"
	"lfsclient/pkg/logr"
	"lfsclient/pkg/storage/disk"
	"lfsclient/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memServer 是一个内存版的 LFS 服务端，只支持 basic
type memServer struct {
	srv *httptest.Server

	mu      sync.Mutex
	objects map[types.OID][]byte
	batches int
}

func newMemServer(t *testing.T) *memServer {
	t.Helper()
	ms := &memServer{objects: make(map[types.OID][]byte)}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /{org}/{repo}/objects/batch", func(w http.ResponseWriter, r *http.Request) {
		var req types.BatchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		ms.mu.Lock()
		defer ms.mu.Unlock()
		ms.batches++

		resp := types.BatchResponse{Transfer: types.TransferBasic}
		for _, o := range req.Objects {
			bo := types.BatchObject{Object: o}
			_, have := ms.objects[o.Oid]
			href := ms.srv.URL + "/objects/" + string(o.Oid)
			var acts any
			switch {
			case req.Operation == types.OperationUpload && !have:
				acts = types.UploadActions{Upload: &types.Action{Href: href}}
			case req.Operation == types.OperationDownload && have:
				acts = types.DownloadActions{Download: &types.Action{Href: href}}
			case req.Operation == types.OperationDownload:
				bo.Error = &types.ObjectError{Code: http.StatusNotFound, Message: "object does not exist"}
			}
			if acts != nil {
				raw, err := json.Marshal(acts)
				require.NoError(t, err)
				bo.Actions = raw
			}
			resp.Objects = append(resp.Objects, bo)
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})
	mux.HandleFunc("PUT /objects/{oid}", func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		ms.mu.Lock()
		defer ms.mu.Unlock()
		ms.objects[types.OID(r.PathValue("oid"))] = data
	})
	mux.HandleFunc("GET /objects/{oid}", func(w http.ResponseWriter, r *http.Request) {
		ms.mu.Lock()
		data := ms.objects[types.OID(r.PathValue("oid"))]
		ms.mu.Unlock()
		_, _ = w.Write(data)
	})
	ms.srv = httptest.NewServer(mux)
	t.Cleanup(ms.srv.Close)
	return ms
}

func (ms *memServer) stored(oid types.OID) []byte {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.objects[oid]
}

// setupApp 组装一个使用真实文件系统和内存服务端的 App
func setupApp(t *testing.T, ms *memServer) *app.App {
	t.Helper()
	dir := t.TempDir()

	api, err := client.NewClient(client.Config{URL: ms.srv.URL})
	require.NoError(t, err)
	lc, err := lfs.New(api, lfs.Options{})
	require.NoError(t, err)

	store, err := disk.NewAdapter(filepath.Join(dir, "objects"))
	require.NoError(t, err)
	idx, err := index.NewIndex(filepath.Join(dir, "index"))
	require.NoError(t, err)

	return &app.App{LFS: lc, Store: store, Index: idx, Logger: logr.Discard()}
}

func TestUpload_SingleFile(t *testing.T) {
	ms := newMemServer(t)
	a := setupApp(t, ms)

	path := filepath.Join(t.TempDir(), "model.bin")
	data := []byte("weights")
	require.NoError(t, os.WriteFile(path, data, 0644))

	var out bytes.Buffer
	require.NoError(t, runUpload(context.Background(), a, &out, path, "acme", "models"))

	oid := core.CalculateOID(data)
	assert.Equal(t, data, ms.stored(oid))
	assert.Contains(t, out.String(), "✅ "+string(oid))

	// 指纹被记录到 index
	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	stat, err := os.Stat(path)
	require.NoError(t, err)
	got, ok := a.Index.Lookup(abs, stat.Size(), stat.ModTime())
	require.True(t, ok)
	assert.Equal(t, oid, got.Oid)

	// 第二次上传：服务端已有，只发 batch
	require.NoError(t, runUpload(context.Background(), a, &out, path, "acme", "models"))
	assert.Equal(t, 2, ms.batches)
}

func TestUpload_Directory(t *testing.T) {
	ms := newMemServer(t)
	a := setupApp(t, ms)

	root := t.TempDir()
	files := map[string]string{
		"a.bin":          "alpha",
		"sub/b.bin":      "beta",
		"debug.log":      "ignored by rule",
		".lfs/index":     "never uploaded",
		".lfsignore":     "*.log\n",
		"sub/deep/c.bin": "gamma",
	}
	for name, content := range files {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}

	var out bytes.Buffer
	require.NoError(t, runUpload(context.Background(), a, &out, root, "acme", "models"))

	for _, want := range []string{"alpha", "beta", "gamma"} {
		assert.NotNil(t, ms.stored(core.CalculateOID([]byte(want))), want)
	}
	for _, skipped := range []string{"ignored by rule", "never uploaded", "*.log\n"} {
		assert.Nil(t, ms.stored(core.CalculateOID([]byte(skipped))), skipped)
	}
	assert.Contains(t, out.String(), "3 uploaded")
	assert.Equal(t, 3, a.Index.Len())
}

func TestDownload_ToFileAndStdout(t *testing.T) {
	ms := newMemServer(t)
	a := setupApp(t, ms)

	data := []byte("remote content")
	obj, err := a.LFS.Upload(context.Background(), bytes.NewReader(data), "acme", "models")
	require.NoError(t, err)

	// 写到文件
	output := filepath.Join(t.TempDir(), "out.bin")
	require.NoError(t, runDownload(context.Background(), a, io.Discard, "acme", "models", obj, output))
	got, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// 写到 stdout
	var stdout bytes.Buffer
	require.NoError(t, runDownload(context.Background(), a, &stdout, "acme", "models", obj, "-"))
	assert.Equal(t, data, stdout.Bytes())
}

func TestDownload_MissingObject(t *testing.T) {
	ms := newMemServer(t)
	a := setupApp(t, ms)

	obj := types.Object{Oid: core.CalculateOID([]byte("nope")), Size: 4}
	output := filepath.Join(t.TempDir(), "out.bin")
	err := runDownload(context.Background(), a, io.Discard, "acme", "models", obj, output)

	var oe *client.ObjectError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, http.StatusNotFound, oe.Code)
	assert.NoFileExists(t, output, "no partial file on failure")
}

func TestFetchAndCat(t *testing.T) {
	ms := newMemServer(t)
	a := setupApp(t, ms)

	data := []byte("fetched into the store")
	obj, err := a.LFS.Upload(context.Background(), bytes.NewReader(data), "acme", "models")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runFetch(context.Background(), a, &out, "acme", "models", obj))
	assert.Contains(t, out.String(), "fetched")

	// 再 fetch 一次直接跳过，不发 batch
	batches := ms.batches
	out.Reset()
	require.NoError(t, runFetch(context.Background(), a, &out, "acme", "models", obj))
	assert.Contains(t, out.String(), "already present")
	assert.Equal(t, batches, ms.batches)

	// cat 完整 oid 和短前缀
	for _, arg := range []string{string(obj.Oid), string(obj.Oid[:8])} {
		var buf bytes.Buffer
		require.NoError(t, runCat(context.Background(), a, &buf, arg))
		assert.Equal(t, data, buf.Bytes())
	}
}

func TestCat_Unknown(t *testing.T) {
	ms := newMemServer(t)
	a := setupApp(t, ms)
	err := runCat(context.Background(), a, io.Discard, "abcd")
	assert.ErrorContains(t, err, "cannot resolve")
}

func TestBatch_PrintsResponse(t *testing.T) {
	ms := newMemServer(t)
	a := setupApp(t, ms)

	obj := types.Object{Oid: core.CalculateOID([]byte("x")), Size: 1}
	var out bytes.Buffer
	require.NoError(t, runBatch(context.Background(), a, &out, types.OperationUpload, "acme", "models", obj))

	var resp types.BatchResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, types.TransferBasic, resp.Transfer)
	require.Len(t, resp.Objects, 1)
	assert.True(t, resp.Objects[0].HasActions())
	assert.Nil(t, ms.stored(obj.Oid), "batch must not transfer bytes")
}

func TestParseObject(t *testing.T) {
	oid := string(core.CalculateOID([]byte("x")))
	tests := []struct {
		name    string
		oid     string
		size    string
		wantErr string
	}{
		{"ok", oid, "1", ""},
		{"bad oid", "xyz", "1", "invalid oid"},
		{"upper case oid", "ABCDEF" + oid[6:], "1", "invalid oid"},
		{"bad size", oid, "ten", "invalid size"},
		{"negative size", oid, "-1", "invalid size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := parseObject(tt.oid, tt.size)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, types.OID(tt.oid), obj.Oid)
		})
	}
}
