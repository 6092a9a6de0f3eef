package commands

import (
	"context"
	"fmt"
	"io"

	"lfsclient/pkg/app"
	"lfsclient/pkg/types"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat <oid>",
	Short: "Print an object from the local object store",
	Long: `Write the object content to stdout. The oid may be abbreviated to a unique prefix
of at least 4 characters. Binary content can be redirected with > file.bin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if LFS == nil {
			return fmt.Errorf("app not initialized")
		}
		if err := LFS.WithLocal(cmd.Context()); err != nil {
			return err
		}
		return runCat(cmd.Context(), LFS, cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}

func runCat(ctx context.Context, a *app.App, out io.Writer, arg string) error {
	oid := types.OID(arg)
	if !oid.IsValid() {
		full, err := a.Store.ExpandOID(ctx, arg)
		if err != nil {
			return errors.Wrapf(err, "cannot resolve %q", arg)
		}
		oid = full
	}

	rc, err := a.Store.Get(ctx, oid)
	if err != nil {
		return errors.Wrapf(err, "cat %s", oid.Short())
	}
	defer rc.Close()

	_, err = io.Copy(out, rc)
	return err
}
