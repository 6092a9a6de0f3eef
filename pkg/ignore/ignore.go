// Package ignore 决定目录上传时哪些路径不作为 LFS 对象上传
package ignore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFile 是目录上传时从根目录读取的规则文件
const IgnoreFile = ".lfsignore"

// DownloadTempPattern 匹配 lfs download 在目标目录里留下的临时文件
const DownloadTempPattern = ".lfs-download-*"

// DefaultRules 总是生效，用户规则无法用 ! 取消
var DefaultRules = []string{
	".lfs", // 本地对象仓库、index 和配置
	".git",
	IgnoreFile,
	DownloadTempPattern, // 未完成的下载

	"config.yaml", // 可能含 token 和 S3 密钥
	".env",

	".DS_Store",
	"Thumbs.db",
}

// Decision 是遍历时对一个路径的处理方式
type Decision int

const (
	Keep Decision = iota
	SkipFile
	SkipDir
)

// Matcher 组合默认规则和根目录下的 .lfsignore
type Matcher struct {
	defaults *gitignore.GitIgnore
	user     *gitignore.GitIgnore // 没有 .lfsignore 时为 nil
	lines    int
}

// NewMatcher 读取 root/.lfsignore (不存在时只用默认规则)
func NewMatcher(root string) (*Matcher, error) {
	m := &Matcher{defaults: gitignore.CompileIgnoreLines(DefaultRules...)}

	data, err := os.ReadFile(filepath.Join(root, IgnoreFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return m, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", IgnoreFile, err)
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	m.user = gitignore.CompileIgnoreLines(lines...)
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" && !strings.HasPrefix(l, "#") {
			m.lines++
		}
	}
	return m, nil
}

// Rules 返回用户文件里的有效规则数，用于日志
func (m *Matcher) Rules() int { return m.lines }

// Matches 报告 rel (相对上传根目录，使用 / 分隔) 是否被忽略
func (m *Matcher) Matches(rel string) bool {
	if m == nil {
		return false
	}
	if m.defaults.MatchesPath(rel) {
		return true
	}
	return m.user != nil && m.user.MatchesPath(rel)
}

// Decide 给出 WalkDir 回调里对一个条目的处理方式
// 被忽略的目录整体跳过；非普通文件 (符号链接、设备等) 一律不上传
// 以 / 结尾的规则 (例如 cache/) 只对目录生效
func (m *Matcher) Decide(rel string, d fs.DirEntry) Decision {
	if d.IsDir() {
		if m.Matches(rel) || m.Matches(rel+"/") {
			return SkipDir
		}
		return Keep
	}
	if m.Matches(rel) || !d.Type().IsRegular() {
		return SkipFile
	}
	return Keep
}
