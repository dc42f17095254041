package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// rootOptions 所有子命令共用的参数
type rootOptions struct {
	configDir    string
	configFile   string
	dataJsonFile string
	dataPath     string
	verbose      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	ro := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "bikeshare",
		Short:         "共享单车租借数据的筛选与汇总报表",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ro.configDir, "config-dir", "./config", "配置目录")
	flags.StringVar(&ro.configFile, "config", "config.json", "运行配置文件名")
	flags.StringVar(&ro.dataJsonFile, "data-config", "dataconfig.json", "数据配置文件名")
	flags.StringVar(&ro.dataPath, "data", "", "数据文件路径，覆盖配置中的 data_path")
	flags.BoolVarP(&ro.verbose, "verbose", "v", false, "日志同时输出到标准错误")

	rootCmd.AddCommand(
		newReportCmd(ro),
		newSummaryCmd(ro),
		newServeCmd(ro),
		newWatchCmd(ro),
		newScheduleCmd(ro),
	)
	return rootCmd
}

// load 初始化 app，命令结束时由调用方 close
func (ro *rootOptions) load(cmd *cobra.Command) (*app, error) {
	a, err := newApp(ro.configDir, ro.configFile, ro.dataJsonFile)
	if err != nil {
		return nil, err
	}
	if ro.dataPath != "" {
		a.cfg.DataPath = ro.dataPath
	}
	if ro.verbose {
		a.logger.Mirror(cmd.ErrOrStderr())
	}
	return a, nil
}

// handleSighup 收到 SIGHUP 时重新打开日志文件，配合外部 logrotate
func handleSighup(ctx context.Context, a *app) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)

	go func() {
		defer signal.Stop(sigChan)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigChan:
				if err := a.logger.Reopen(a.cfg.LogName); err != nil {
					fmt.Fprintln(os.Stderr, "重新打开日志失败:", err)
					continue
				}
				a.logger.Info("收到 SIGHUP，日志文件已重新打开")
			}
		}
	}()
}
