package commands

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"lfsclient/pkg/app"
	"lfsclient/pkg/core"
	"lfsclient/pkg/ignore"
	"lfsclient/pkg/index"
	"lfsclient/pkg/types"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file|dir> <org> <repo>",
	Short: "Upload a file, or every file under a directory, to the LFS server",
	Long: `Fingerprints each file (reusing the local index when size and mtime are unchanged),
negotiates a transfer with the batch endpoint and runs the selected adapter.
Directories are walked recursively; paths matched by .lfsignore are skipped.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if LFS == nil {
			return fmt.Errorf("app not initialized")
		}
		if err := LFS.WithRemote(); err != nil {
			return err
		}
		if err := LFS.WithIndex(); err != nil {
			return err
		}
		return runUpload(cmd.Context(), LFS, cmd.OutOrStdout(), args[0], args[1], args[2])
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

// runUpload 上传单个文件或整个目录
func runUpload(ctx context.Context, a *app.App, out io.Writer, target, org, repo string) error {
	info, err := os.Stat(target)
	if err != nil {
		return err
	}

	start := time.Now()
	if !info.IsDir() {
		obj, err := uploadFile(ctx, a, target, org, repo)
		if err != nil {
			return errors.Wrapf(err, "failed to upload %s", target)
		}
		fmt.Fprintf(out, "✅ %s %d %s\n", obj.Oid, obj.Size, target)
		return saveIndex(a.Index)
	}

	// 目录：按 .lfsignore 过滤后逐个上传
	matcher, err := ignore.NewMatcher(target)
	if err != nil {
		return errors.Wrap(err, "failed to load ignore rules")
	}
	a.Logger.V(1).Info("loaded ignore rules", "root", target, "user_rules", matcher.Rules())

	uploaded, failed := 0, 0
	var totalSize int64
	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err // 权限错误等
		}
		rel, err := filepath.Rel(target, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = index.CleanPath(rel)

		switch matcher.Decide(rel, d) {
		case ignore.SkipDir:
			return filepath.SkipDir
		case ignore.SkipFile:
			return nil
		}
		if d.IsDir() {
			return nil
		}

		obj, err := uploadFile(ctx, a, path, org, repo)
		if err != nil {
			fmt.Fprintf(out, "❌ %s: %v\n", rel, err)
			failed++
			return nil
		}
		fmt.Fprintf(out, "✅ %s %d %s\n", obj.Oid, obj.Size, rel)
		uploaded++
		totalSize += obj.Size
		return nil
	}
	if err := filepath.WalkDir(target, walkFn); err != nil {
		return errors.Wrap(err, "walk failed")
	}

	if err := saveIndex(a.Index); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nSummary: %d uploaded (%d bytes), %d failed in %s\n", uploaded, totalSize, failed, time.Since(start).Round(time.Millisecond))
	if failed > 0 {
		return fmt.Errorf("%d files failed to upload", failed)
	}
	return nil
}

// uploadFile 上传一个文件，index 以绝对路径为 key
func uploadFile(ctx context.Context, a *app.App, path, org, repo string) (types.Object, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return types.Object{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return types.Object{}, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return types.Object{}, err
	}

	// 1. 大小和 mtime 都没变就直接用缓存的指纹
	obj, ok := types.Object{}, false
	if a.Index != nil {
		obj, ok = a.Index.Lookup(key, stat.Size(), stat.ModTime())
	}
	if !ok {
		if obj, err = core.Fingerprint(f); err != nil {
			return types.Object{}, err
		}
	}

	// 2. 上传
	if err := a.LFS.UploadObject(ctx, f, org, repo, obj); err != nil {
		return types.Object{}, err
	}

	// 3. 只有上传成功才记录
	if a.Index != nil {
		a.Index.Add(key, obj, stat.ModTime())
	}
	return obj, nil
}

func saveIndex(idx *index.Index) error {
	if idx == nil {
		return nil
	}
	return errors.Wrap(idx.Save(), "failed to save index")
}
