package ignore

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeIgnore(t *testing.T, root, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, IgnoreFile), []byte(content), 0644))
}

func TestMatcher_Defaults(t *testing.T) {
	m, err := NewMatcher(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, m.Rules())

	tests := []struct {
		path string
		want bool
	}{
		{".lfs", true},
		{".lfs/objects/ab/cdef", true},
		{".lfs/index", true},
		{".git/HEAD", true},
		{".lfsignore", true},
		{"config.yaml", true},
		{"nested/.env", true},
		{".lfs-download-12345", true},
		{"out/.lfs-download-abc", true},
		{"Thumbs.db", true},

		{"model.safetensors", false},
		{"checkpoints/step-100.bin", false},
		{"lfs-download-notes.txt", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Matches(tt.path))
		})
	}
}

func TestMatcher_UserRules(t *testing.T) {
	root := t.TempDir()
	writeIgnore(t, root, "# 训练中间产物\r\n*.part\ncheckpoints/\n\n!final.part\n")

	m, err := NewMatcher(root)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Rules())

	tests := []struct {
		path string
		want bool
	}{
		{"weights.bin.part", true},
		{"shards/00001.part", true},
		{"checkpoints/", true},
		{"checkpoints/step-100.bin", true},
		{"final.part", false},
		{"weights.bin", false},

		// 用户规则不能取消默认规则
		{".lfs-download-1", true},
		{"config.yaml", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Matches(tt.path))
		})
	}
}

func TestMatcher_NegationCannotReincludeDefaults(t *testing.T) {
	root := t.TempDir()
	writeIgnore(t, root, "!config.yaml\n!.env\n")

	m, err := NewMatcher(root)
	require.NoError(t, err)
	assert.True(t, m.Matches("config.yaml"))
	assert.True(t, m.Matches(".env"))
}

func TestNewMatcher_UnreadableIgnoreFile(t *testing.T) {
	root := t.TempDir()
	// .lfsignore 是目录时读取失败，不能静默退回默认规则
	require.NoError(t, os.Mkdir(filepath.Join(root, IgnoreFile), 0755))

	_, err := NewMatcher(root)
	assert.ErrorContains(t, err, IgnoreFile)
}

func TestMatcher_Decide(t *testing.T) {
	root := t.TempDir()
	writeIgnore(t, root, "*.part\ncache/\n")
	for _, dir := range []string{"cache", "data"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, dir), 0755))
	}
	for _, f := range []string{"data/model.bin", "data/model.bin.part", ".lfs-download-7"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, f), []byte("x"), 0644))
	}
	require.NoError(t, os.Symlink("data/model.bin", filepath.Join(root, "link.bin")))

	m, err := NewMatcher(root)
	require.NoError(t, err)

	got := map[string]Decision{}
	require.NoError(t, filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		require.NoError(t, err)
		rel, err := filepath.Rel(root, path)
		require.NoError(t, err)
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		got[rel] = m.Decide(rel, d)
		if got[rel] == SkipDir {
			return filepath.SkipDir
		}
		return nil
	}))

	assert.Equal(t, map[string]Decision{
		".lfsignore":          SkipFile,
		".lfs-download-7":     SkipFile,
		"cache":               SkipDir,
		"data":                Keep,
		"data/model.bin":      Keep,
		"data/model.bin.part": SkipFile,
		"link.bin":            SkipFile,
	}, got)
}

func TestMatcher_NilMatchesNothing(t *testing.T) {
	var m *Matcher
	assert.False(t, m.Matches("anything"))
}
