package commands

import (
	"fmt"
	"os"

	"lfsclient/pkg/app"
	"lfsclient/pkg/config"
	"lfsclient/pkg/logr"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	debug     bool
	logConfig logr.Config

	// 全局应用实例，供子命令使用
	LFS *app.App
)

var rootCmd = &cobra.Command{
	Use:           "lfs",
	Short:         "Large file transfer client for Git LFS compatible servers",
	SilenceUsage:  true,
	SilenceErrors: true,
	// PersistentPreRunE 会在所有子命令执行前运行
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 1. 配置：默认值 < 配置文件 < 环境变量 < flag
		if err := config.Load(cfgFile, cmd.ErrOrStderr()); err != nil {
			return errors.Wrap(err, "config error")
		}

		// 2. 日志统一写 stderr，stdout 留给下载内容
		logCfg := logr.Config{
			Verbosity: viper.GetInt("log.verbosity"),
			Format:    viper.GetString("log.format"),
			Output:    cmd.ErrOrStderr(),
		}
		if debug && logCfg.Verbosity < 1 {
			logCfg.Verbosity = 1
		}
		logger, err := logr.New(&logCfg)
		if err != nil {
			return err
		}

		// 3. 各子命令按需初始化远端或本地部分
		LFS = app.NewApp(logger)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if LFS == nil {
			return nil
		}
		return LFS.Close()
	},
}

// Execute 是入口
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is ./.lfs/config.yaml or $HOME/.lfs/config.yaml)")
	flags.BoolVarP(&debug, "debug", "D", false, "Enable debug logging (same as -v 1)")
	logr.LoadConfigFromFlags(flags, &logConfig)

	flags.StringP("server-url", "u", "", "LFS server URL, e.g. https://lfs.example.com")
	flags.StringP("bearer-token", "b", "", "Bearer token for the batch endpoint")
	flags.StringSlice("transfers", nil, "Transfer adapters to offer, in preference order (default multipart-basic,basic)")
	flags.String("ref", "", "Ref name sent with batch requests, e.g. refs/heads/main")
	flags.String("storage-path", "", "Directory of the local object store")

	// flag 与 Viper 的 key 绑定，用户既可以在 yaml 里写，也可以用 flag 覆盖
	bindings := map[string]string{
		"server.url":    "server-url",
		"server.token":  "bearer-token",
		"transfers":     "transfers",
		"ref":           "ref",
		"storage.path":  "storage-path",
		"log.verbosity": "v",
		"log.format":    "log-format",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to bind flag:", err)
			os.Exit(1)
		}
	}
}
