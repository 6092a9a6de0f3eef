package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"lfsclient/pkg/app"
	"lfsclient/pkg/lfs"
	"lfsclient/pkg/types"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch <upload|download> <org> <repo> <oid> <size>",
	Short: "Run only the batch negotiation and print the server response",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		if LFS == nil {
			return fmt.Errorf("app not initialized")
		}
		op := types.Operation(args[0])
		if !op.IsValid() {
			return fmt.Errorf("invalid operation %q: expected upload or download", args[0])
		}
		obj, err := parseObject(args[3], args[4])
		if err != nil {
			return err
		}
		if err := LFS.WithRemote(); err != nil {
			return err
		}
		return runBatch(cmd.Context(), LFS, cmd.OutOrStdout(), op, args[1], args[2], obj)
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

func runBatch(ctx context.Context, a *app.App, out io.Writer, op types.Operation, org, repo string, obj types.Object) error {
	resp, err := a.LFS.Negotiate(ctx, op, org, repo, obj)
	if err != nil {
		return errors.Wrapf(err, "batch %s %s", op, lfs.Prefix(org, repo))
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
