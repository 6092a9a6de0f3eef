package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Dir 是本地元数据目录：对象仓库、index、配置文件都在这里
const Dir = ".lfs"

// Load 初始化 Viper 配置
// cfgFile: 可选，用户显式指定的配置文件路径
// out: 提示信息的输出位置，stdout 可能被下载内容占用，所以由调用方决定
func Load(cfgFile string, out io.Writer) error {
	// 1. 设置默认值 (Defaults)
	setDefaults()

	// 2. 配置搜索路径
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		// 搜索顺序：
		// 1. 当前目录下的 .lfs
		viper.AddConfigPath(Dir)
		// 2. 用户主目录下的 .lfs
		viper.AddConfigPath(filepath.Join(home, Dir))

		viper.SetConfigType("yaml")
		viper.SetConfigName("config") // 找 config.yaml
	}

	// 3. 读取环境变量 (LFS_SERVER_URL 等)
	viper.SetEnvPrefix("LFS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 4. 读取配置文件
	// 没找到配置文件不算错 (可能全靠环境变量和 flag)，格式错才算
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("fatal error config file: %w", err)
		}
	} else {
		fmt.Fprintln(out, "🔧 Using config file:", viper.ConfigFileUsed())
	}

	return nil
}

func setDefaults() {
	// 服务端
	viper.SetDefault("server.url", "")
	viper.SetDefault("server.token", "")
	viper.SetDefault("transfers", []string{"multipart-basic", "basic"})
	viper.SetDefault("ref", "")

	// 日志
	viper.SetDefault("log.verbosity", 0)
	viper.SetDefault("log.format", "text")

	// 本地对象仓库
	wd, _ := os.Getwd()
	viper.SetDefault("storage.type", "disk")
	viper.SetDefault("storage.path", filepath.Join(wd, Dir, "objects"))
	viper.SetDefault("storage.s3.region", "us-east-1")
	viper.SetDefault("index.path", filepath.Join(wd, Dir, "index"))

	// 存在性缓存，redis_url 为空表示不启用
	viper.SetDefault("cache.redis_url", "")
	viper.SetDefault("cache.ttl", 24*time.Hour)
}
