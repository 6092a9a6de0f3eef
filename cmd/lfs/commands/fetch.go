package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"lfsclient/pkg/app"
	"lfsclient/pkg/types"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <org> <repo> <oid> <size>",
	Short: "Download an object into the local object store",
	Long:  `Skips the download when the object store already has the oid. Read it back with 'lfs cat'.`,
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		if LFS == nil {
			return fmt.Errorf("app not initialized")
		}
		obj, err := parseObject(args[2], args[3])
		if err != nil {
			return err
		}
		if err := LFS.WithLocal(cmd.Context()); err != nil {
			return err
		}
		if err := LFS.WithRemote(); err != nil {
			return err
		}
		return runFetch(cmd.Context(), LFS, cmd.OutOrStdout(), args[0], args[1], obj)
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(ctx context.Context, a *app.App, out io.Writer, org, repo string, obj types.Object) error {
	// 1. 已经在本地仓库里就跳过
	exists, err := a.Store.Has(ctx, obj.Oid)
	if err != nil {
		return errors.Wrap(err, "failed to check object store")
	}
	if exists {
		fmt.Fprintf(out, "✅ %s already present\n", obj.Oid.Short())
		return nil
	}

	// 2. 先下载到临时文件：S3 上传需要可 seek 的 body
	tmp, err := os.CreateTemp("", "lfs-fetch-*")
	if err != nil {
		return err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if err := a.LFS.Download(ctx, tmp, org, repo, obj); err != nil {
		return errors.Wrap(err, "download failed")
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return err
	}

	// 3. 存入对象仓库
	if err := a.Store.Put(ctx, obj.Oid, tmp); err != nil {
		return errors.Wrap(err, "failed to store object")
	}
	fmt.Fprintf(out, "✅ fetched %s (%d bytes)\n", obj.Oid.Short(), obj.Size)
	return nil
}
