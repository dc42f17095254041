package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/robfig/cron"
	"github.com/spf13/cobra"

	"BikeSharing/src/datasource/file"
	"BikeSharing/src/processor"
	"BikeSharing/src/report"
	"BikeSharing/src/server"
)

// criteriaFlags 筛选相关的命令行参数
type criteriaFlags struct {
	start   string
	end     string
	season  string
	weather string
	reducer string
}

func (cf *criteriaFlags) register(cmd *cobra.Command, reducerRequired bool) {
	cmd.Flags().StringVar(&cf.start, "start", "", "开始日期(含)，如 2011-01-01")
	cmd.Flags().StringVar(&cf.end, "end", "", "结束日期(含)")
	cmd.Flags().StringVar(&cf.season, "season", "", "季节，逗号分隔的编码或标签；给出空值表示空集合")
	cmd.Flags().StringVar(&cf.weather, "weather", "", "天气，逗号分隔的编码或标签；给出空值表示空集合")
	cmd.Flags().StringVar(&cf.reducer, "reducer", "", "聚合方式: mean 或 sum")
	if reducerRequired {
		_ = cmd.MarkFlagRequired("reducer")
	}
}

// criteria 只有显式给出的分类参数才参与筛选
func (cf *criteriaFlags) criteria(cmd *cobra.Command, opts report.Options) (processor.Criteria, error) {
	var c processor.Criteria
	var err error

	if c.Dates, err = report.ParseDateRange(cf.start, cf.end); err != nil {
		return c, err
	}
	if c.Seasons, err = report.ParseCodes(opts.SeasonLabels, cf.season, cmd.Flags().Changed("season")); err != nil {
		return c, err
	}
	if c.Weathers, err = report.ParseCodes(opts.WeatherLabels, cf.weather, cmd.Flags().Changed("weather")); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func newReportCmd(ro *rootOptions) *cobra.Command {
	var cf criteriaFlags
	var xlsxPath string
	var asJSON, push, mail bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "生成完整报表: 预览、日/小时/星期/天气/季节汇总",
		Long: `按条件筛选数据后生成报表并输出到标准输出。

Example: bikeshare report --reducer sum --start 2011-01-01 --end 2011-12-31 --season Summer,Fall --xlsx out.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ro.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			r, err := processor.ParseReducer(cf.reducer)
			if err != nil {
				return err
			}
			c, err := cf.criteria(cmd, a.opts)
			if err != nil {
				return err
			}

			rep, err := a.builder().Build(a.cfg.DataPath, c, r)
			if err != nil {
				return err
			}
			if err := writeReport(cmd.OutOrStdout(), rep, asJSON); err != nil {
				return err
			}

			var attachment string
			if xlsxPath != "" && rep.Empty {
				a.logger.Warning("报表为空，跳过导出")
			} else if xlsxPath != "" {
				if attachment, err = a.export(rep, xlsxPath); err != nil {
					return err
				}
			}
			if push {
				if err := a.push(cmd.Context(), rep); err != nil {
					return err
				}
			}
			if mail {
				if err := a.mail(rep, attachment); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cf.register(cmd, true)
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "导出 xlsx 的路径")
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")
	cmd.Flags().BoolVar(&push, "push", false, "推送到配置的机器人")
	cmd.Flags().BoolVar(&mail, "mail", false, "通过配置的 SMTP 发送")
	return cmd
}

func newSummaryCmd(ro *rootOptions) *cobra.Command {
	var cf criteriaFlags
	var group, measure string
	var canonical, asJSON bool

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "按单个维度分组汇总",
		Long: `按 day/hour/weekday/season/weather 或派生列分组，对度量列做 mean 或 sum。

Example: bikeshare summary --group hour --reducer mean --canonical`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ro.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			r, err := processor.ParseReducer(cf.reducer)
			if err != nil {
				return err
			}
			c, err := cf.criteria(cmd, a.opts)
			if err != nil {
				return err
			}

			b := a.builder()
			req := processor.Request{Group: processor.GroupKey(group), Measure: processor.Field(measure), Reducer: r}
			if canonical {
				req.Order = b.CanonicalOrder(req.Group)
			}

			table, err := b.Summary(a.cfg.DataPath, c, req)
			if err != nil {
				return err
			}
			if asJSON {
				return encodeJSON(cmd.OutOrStdout(), table)
			}
			return report.WriteTable(cmd.OutOrStdout(), table)
		},
	}

	cf.register(cmd, true)
	cmd.Flags().StringVar(&group, "group", "", "分组维度: day, hour, weekday, season, weather 或列名")
	cmd.Flags().StringVar(&measure, "measure", string(processor.FieldCount), "度量字段")
	cmd.Flags().BoolVar(&canonical, "canonical", false, "按标准顺序输出，缺失的分组也列出")
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}

func newServeCmd(ro *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动报表查询接口",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ro.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			ctx := cmd.Context()
			handleSighup(ctx, a)
			stopRotate, err := a.startRotation()
			if err != nil {
				return err
			}
			defer stopRotate()

			// 数据文件变化时丢弃缓存
			loader := file.NewLoader(a.readOpts)
			go a.watchData(ctx, func(string) {
				loader.Invalidate()
				a.logger.Info("数据文件已更新，缓存已失效")
			})

			srv := server.New(a.builderWith(loader), a.logger, a.cfg.DataPath, a.cfg.LogoPath)
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "监听地址，默认使用配置")
	return cmd
}

func newWatchCmd(ro *rootOptions) *cobra.Command {
	var cf criteriaFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "监听数据文件，变化时重新生成报表",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ro.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			r, err := processor.ParseReducer(cf.reducer)
			if err != nil {
				return err
			}
			c, err := cf.criteria(cmd, a.opts)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			handleSighup(ctx, a)
			out := cmd.OutOrStdout()
			run := func(path string) {
				rep, err := a.builder().Build(path, c, r)
				if err != nil {
					a.logger.Error("生成报表失败: " + err.Error())
					return
				}
				if err := writeReport(out, rep, asJSON); err != nil {
					a.logger.Error(err.Error())
				}
			}

			run(a.cfg.DataPath)
			a.logger.Info("开始监听数据文件: " + a.cfg.DataPath)
			return a.watchData(ctx, run)
		},
	}

	cf.register(cmd, true)
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")
	return cmd
}

func newScheduleCmd(ro *rootOptions) *cobra.Command {
	var cf criteriaFlags
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "定时生成报表并导出、推送、发送邮件",
		Long: `按固定间隔生成报表。--reducer 未给出时使用配置中的 schedule.reducer，两者都为空时报错。

Example: bikeshare schedule --interval 1h --reducer sum`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ro.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if cf.reducer == "" {
				cf.reducer = a.cfg.Schedule.Reducer
			}
			r, err := processor.ParseReducer(cf.reducer)
			if err != nil {
				return err
			}
			c, err := cf.criteria(cmd, a.opts)
			if err != nil {
				return err
			}
			if interval <= 0 {
				interval = time.Duration(a.cfg.Schedule.Interval)
			}
			if interval <= 0 {
				return fmt.Errorf("未配置定时间隔")
			}

			ctx := cmd.Context()
			handleSighup(ctx, a)

			// 设置定时任务
			cronSpec := fmt.Sprintf("@every %s", interval)
			scheduler := cron.New()
			err = scheduler.AddFunc(cronSpec, func() {
				a.logger.Info(fmt.Sprintf("开始定时生成报表(间隔: %v)...", interval))
				if err := a.deliver(ctx, c, r); err != nil {
					a.logger.Error("定时报表失败: " + err.Error())
				}
			})
			if err != nil {
				return fmt.Errorf("创建定时任务失败: %w", err)
			}
			err = scheduler.AddFunc("@every 1m", a.checkRotate)
			if err != nil {
				return fmt.Errorf("创建定时任务失败: %w", err)
			}

			// 启动定时任务
			scheduler.Start()
			defer scheduler.Stop()

			a.logger.Info(fmt.Sprintf("定时报表服务已启动(间隔: %v)，按Ctrl+C退出", interval))
			<-ctx.Done()
			a.logger.Info("定时报表服务已停止")
			return nil
		},
	}

	cf.register(cmd, false)
	cmd.Flags().DurationVar(&interval, "interval", 0, "生成间隔，默认使用配置")
	return cmd
}

// watchData 监听数据文件直到 ctx 结束
func (a *app) watchData(ctx context.Context, handler func(string)) error {
	monitor, err := file.NewFileMonitor(a.cfg.DataPath)
	if err != nil {
		a.logger.Error("文件监听失败: " + err.Error())
		return err
	}
	defer monitor.Close()

	if err := monitor.Watch(ctx, handler); err != nil {
		a.logger.Error("文件监听出错: " + err.Error())
		return err
	}
	return nil
}

// startRotation 每分钟检查一次日志大小
func (a *app) startRotation() (func(), error) {
	c := cron.New()
	if err := c.AddFunc("@every 1m", a.checkRotate); err != nil {
		return nil, fmt.Errorf("创建定时任务失败: %w", err)
	}
	c.Start()
	return c.Stop, nil
}

func (a *app) checkRotate() {
	if err := a.logger.CheckRotate(a.cfg); err != nil {
		a.logger.Error("日志轮转失败: " + err.Error())
	}
}

func writeReport(w io.Writer, rep *report.Report, asJSON bool) error {
	if asJSON {
		return encodeJSON(w, rep)
	}
	return rep.WriteText(w)
}

func encodeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
