package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"BikeSharing/src/config"
	"BikeSharing/src/datapush"
	"BikeSharing/src/datasource/file"
	"BikeSharing/src/processor"
	"BikeSharing/src/report"
	"BikeSharing/src/storage"
)

// app 命令共用的配置、日志和报表参数
type app struct {
	cfg      *config.Config
	dcfg     *config.DataConfig
	logger   *storage.Logger
	opts     report.Options
	readOpts file.ReadOptions
}

// newApp 加载配置并初始化日志系统
func newApp(jsonFolder, jsonFile, dataJsonFile string) (*app, error) {
	cfg, dcfg, err := config.LoadConfig(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		return nil, err
	}

	seasons, err := dcfg.SeasonLabels()
	if err != nil {
		return nil, err
	}
	weathers, err := dcfg.WeatherLabels()
	if err != nil {
		return nil, err
	}
	opts := report.Options{
		SeasonLabels:  seasons,
		WeatherLabels: weathers,
		BinsUpToMax:   dcfg.BinsUpToMax(),
		LogoPath:      cfg.LogoPath,
	}
	if spec, ok := dcfg.BinSpec(); ok {
		opts.Bins = &spec
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	return &app{
		cfg:      cfg,
		dcfg:     dcfg,
		logger:   logger,
		opts:     opts,
		readOpts: file.ReadOptions{Candidates: dcfg.Candidates(), SheetName: cfg.SheetName},
	}, nil
}

// builder 每次使用新的 Loader，文件变化后不会读到旧数据
func (a *app) builder() *report.Builder {
	return a.builderWith(file.NewLoader(a.readOpts))
}

// builderWith 长期运行的服务共用一个 Loader，由文件监听负责失效
func (a *app) builderWith(l *file.Loader) *report.Builder {
	return report.NewBuilder(l, a.logger, a.opts)
}

func (a *app) close() {
	a.logger.Close()
}

// export 导出到配置的目录，返回文件路径
func (a *app) export(rep *report.Report, path string) (string, error) {
	if path == "" {
		path = filepath.Join(a.cfg.ExportDir, fmt.Sprintf("report_%s.xlsx", rep.GeneratedAt.Format("20060102_150405")))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := rep.Export(path); err != nil {
		return "", err
	}
	a.logger.Info("报表已导出: " + path)
	return path, nil
}

func (a *app) push(ctx context.Context, rep *report.Report) error {
	pusher := datapush.NewPusher(a.cfg.Push.Webhook, a.cfg.Push.RetryTimes, time.Duration(a.cfg.Push.RetryInterval))
	title, text := rep.Markdown()
	if err := pusher.PushMarkdown(ctx, title, text); err != nil {
		return err
	}
	a.logger.Info("报表已推送")
	return nil
}

func (a *app) mail(rep *report.Report, attachment string) error {
	title, text := rep.Markdown()
	if err := datapush.NewMailer(a.cfg).Send(title, text, attachment); err != nil {
		return err
	}
	a.logger.Info("报表邮件已发送")
	return nil
}

// deliver 定时任务的一次执行: 生成 -> 导出 -> 推送 -> 邮件
// 推送和邮件只在配置了的情况下执行，失败只记录日志
func (a *app) deliver(ctx context.Context, c processor.Criteria, r processor.Reducer) error {
	t1 := time.Now()
	rep, err := a.builder().Build(a.cfg.DataPath, c, r)
	if err != nil {
		return err
	}

	var attachment string
	if !rep.Empty {
		if attachment, err = a.export(rep, ""); err != nil {
			a.logger.Error("导出报表失败: " + err.Error())
		}
	}
	if a.cfg.Push.Webhook != "" {
		if err := a.push(ctx, rep); err != nil {
			a.logger.Error("推送报表失败: " + err.Error())
		}
	}
	if a.cfg.SendEmail.Server != "" {
		if err := a.mail(rep, attachment); err != nil {
			a.logger.Error("发送邮件失败: " + err.Error())
		}
	}

	a.logger.Info(fmt.Sprintf("数据处理时间：%v", time.Since(t1)))
	return nil
}
