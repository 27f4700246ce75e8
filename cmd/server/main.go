package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NTUCourse-Neo/ncn-backend-v2/config"
	applogger "github.com/NTUCourse-Neo/ncn-backend-v2/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ncn-server",
	Short: "NTUCourse Neo 课程服务",
	Long: `课程搜索、课表、用户资料与课程实时数据 API 服务。
不带子命令时等同于 serve。`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径，缺省时查找 ./config/config.yaml")
}

// bootstrap 加载配置并初始化日志，所有子命令共用
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
