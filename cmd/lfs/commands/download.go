package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"lfsclient/pkg/app"
	"lfsclient/pkg/ignore"
	"lfsclient/pkg/types"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download <org> <repo> <oid> <size> <output|->",
	Short: "Download an object to a file, or to stdout with -",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		if LFS == nil {
			return fmt.Errorf("app not initialized")
		}
		obj, err := parseObject(args[2], args[3])
		if err != nil {
			return err
		}
		if err := LFS.WithRemote(); err != nil {
			return err
		}
		return runDownload(cmd.Context(), LFS, cmd.OutOrStdout(), args[0], args[1], obj, args[4])
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)
}

// runDownload 把对象写到 output；output 为 "-" 时写到 stdout
func runDownload(ctx context.Context, a *app.App, stdout io.Writer, org, repo string, obj types.Object, output string) error {
	if output == "-" {
		return errors.Wrap(a.LFS.Download(ctx, stdout, org, repo, obj), "download failed")
	}

	// 先写临时文件再 Rename，失败时不留下半个文件
	tmp, err := os.CreateTemp(filepath.Dir(output), ignore.DownloadTempPattern)
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := a.LFS.Download(ctx, tmp, org, repo, obj); err != nil {
		tmp.Close()
		return errors.Wrap(err, "download failed")
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), output); err != nil {
		return err
	}
	a.Logger.Info("downloaded object", "oid", obj.Oid, "output", output)
	return nil
}

// parseObject 解析命令行上的 oid 和 size
func parseObject(oid, size string) (types.Object, error) {
	obj := types.Object{Oid: types.OID(oid)}
	if !obj.Oid.IsValid() {
		return types.Object{}, fmt.Errorf("invalid oid %q: expected 64 lowercase hex characters", oid)
	}
	n, err := strconv.ParseInt(size, 10, 64)
	if err != nil || n < 0 {
		return types.Object{}, fmt.Errorf("invalid size %q", size)
	}
	obj.Size = n
	return obj, nil
}
