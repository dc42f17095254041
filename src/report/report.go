// report.go
package report

import (
	"errors"
	"fmt"
	"os"
	"time"

	"BikeSharing/src/processor"
	"BikeSharing/src/storage"
)

// Source 数据集来源，file.Loader 实现了该接口
type Source interface {
	Load(path string) (*processor.Dataset, error)
}

// Options 报表参数
type Options struct {
	SeasonLabels  processor.Labels
	WeatherLabels processor.Labels
	Bins          *processor.BinSpec // 为空时不生成分箱一节
	BinsUpToMax   bool
	LogoPath      string
	PreviewRows   int
}

// Section 报表中的一张汇总表
// 依赖的列缺失时 Table 为空，Err 给出原因
type Section struct {
	Name  string                  `json:"name"`
	Title string                  `json:"title"`
	Table *processor.SummaryTable `json:"table,omitempty"`
	Err   string                  `json:"error,omitempty"`
}

// Report 一次完整的筛选-汇总结果
type Report struct {
	Source      string             `json:"source"`
	GeneratedAt time.Time          `json:"generated_at"`
	Criteria    processor.Criteria `json:"criteria"`
	Reducer     processor.Reducer  `json:"reducer"`
	MinDate     string             `json:"min_date,omitempty"`
	MaxDate     string             `json:"max_date,omitempty"`
	Rows        int                `json:"rows"`
	Total       *float64           `json:"total,omitempty"`
	Empty       bool               `json:"empty"`
	Preview     [][]string         `json:"preview,omitempty"`
	Sections    []Section          `json:"sections,omitempty"`
	Warnings    []string           `json:"warnings,omitempty"`
}

// Builder 报表生成器，本身不保存任何跨请求的状态
type Builder struct {
	src    Source
	logger *storage.Logger
	opts   Options
}

func NewBuilder(src Source, logger *storage.Logger, opts Options) *Builder {
	if opts.SeasonLabels == nil {
		opts.SeasonLabels = processor.SeasonLabels
	}
	if opts.WeatherLabels == nil {
		opts.WeatherLabels = processor.WeatherLabels
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = 5
	}
	return &Builder{src: src, logger: logger, opts: opts}
}

// Options 当前使用的参数
func (b *Builder) Options() Options { return b.opts }

// Build 加载 -> 筛选 -> 各节汇总
// 返回的报表永远不为空；文件不存在、解析失败、日期范围或聚合方式无效时同时返回错误
func (b *Builder) Build(path string, c processor.Criteria, r processor.Reducer) (*Report, error) {
	rep := &Report{Source: path, GeneratedAt: time.Now(), Criteria: c, Reducer: r, Empty: true}

	// 1. 参数校验，不读任何数据
	if err := r.Validate(); err != nil {
		return rep, err
	}
	if err := c.Validate(); err != nil {
		return rep, err
	}

	b.checkLogo(rep)

	// 2. 加载
	ds, err := b.src.Load(path)
	if err != nil {
		b.errorf("加载数据失败: %v", err)
		return rep, err
	}
	for _, issue := range ds.Issues() {
		b.debugf("%v", issue)
	}
	if n := ds.Dropped(); n > 0 {
		b.warn(rep, fmt.Sprintf("%d 行日期无法解析，已忽略", n))
	}
	if lo, hi, err := ds.DateSpan(); err == nil {
		rep.MinDate, rep.MaxDate = lo.Format(processor.DateLayout), hi.Format(processor.DateLayout)
	}

	// 3. 筛选
	filtered, err := processor.Filter(ds, c)
	switch {
	case errors.Is(err, processor.ErrEmptyResult):
		b.warn(rep, "所选条件下没有数据")
		return rep, nil
	case errors.Is(err, processor.ErrMissingColumn):
		// 筛选依赖的列不存在，该条件无法生效
		b.warn(rep, err.Error())
		return rep, nil
	case err != nil:
		return rep, err
	}

	rep.Empty = false
	rep.Rows = filtered.Len()
	if total, err := processor.Reduce(filtered, processor.FieldCount, processor.ReducerSum); err == nil {
		rep.Total = &total
	}

	// 4. 预览，附带标签列
	preview := filtered
	if p, err := preview.WithLabels(processor.FieldSeason, b.opts.SeasonLabels, "season_cat"); err == nil {
		preview = p
	}
	if p, err := preview.WithLabels(processor.FieldWeather, b.opts.WeatherLabels, "weather_cat"); err == nil {
		preview = p
	}
	rep.Preview = preview.Head(b.opts.PreviewRows)

	// 5. 各节汇总，缺列只影响本节
	for _, s := range b.sections(filtered, r) {
		rep.Sections = append(rep.Sections, s)
		if s.Err != "" {
			b.warn(rep, fmt.Sprintf("%s: %s", s.Title, s.Err))
		}
	}

	b.infof("报表生成完成: %s, %d 行, %d 节", path, rep.Rows, len(rep.Sections))
	return rep, nil
}

// Summary 单个聚合请求，供接口和命令行使用
func (b *Builder) Summary(path string, c processor.Criteria, req processor.Request) (*processor.SummaryTable, error) {
	if err := req.Reducer.Validate(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	ds, err := b.src.Load(path)
	if err != nil {
		return nil, err
	}
	filtered, err := processor.Filter(ds, c)
	if err != nil {
		return nil, err
	}

	if req.SeasonLabels == nil {
		req.SeasonLabels = b.opts.SeasonLabels
	}
	if req.WeatherLabels == nil {
		req.WeatherLabels = b.opts.WeatherLabels
	}
	if b.opts.Bins != nil && req.Group == processor.GroupKey(b.binColumn()) {
		if filtered, err = b.bin(filtered); err != nil {
			return nil, err
		}
	}
	return processor.Aggregate(filtered, req)
}

// CanonicalOrder 维度的标准顺序，没有标准顺序的维度返回 nil
func (b *Builder) CanonicalOrder(group processor.GroupKey) []string {
	switch group {
	case processor.GroupHour:
		return processor.HourOrder
	case processor.GroupWeekday:
		return processor.WeekdayOrder
	case processor.GroupSeason:
		return b.opts.SeasonLabels.Order()
	case processor.GroupWeather:
		return b.opts.WeatherLabels.Order()
	}
	if b.opts.Bins != nil && group == processor.GroupKey(b.binColumn()) {
		return b.opts.Bins.Labels
	}
	return nil
}

// Preview 筛选后的前 n 行
func (b *Builder) Preview(path string, c processor.Criteria, n int) ([][]string, error) {
	ds, err := b.src.Load(path)
	if err != nil {
		return nil, err
	}
	filtered, err := processor.Filter(ds, c)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = b.opts.PreviewRows
	}
	return filtered.Head(n), nil
}

func (b *Builder) sections(ds *processor.Dataset, r processor.Reducer) []Section {
	season := processor.Request{
		Group: processor.GroupSeason, Measure: processor.FieldCount, Reducer: r,
		SeasonLabels: b.opts.SeasonLabels,
	}
	weather := processor.Request{
		Group: processor.GroupWeather, Measure: processor.FieldCount, Reducer: r,
		WeatherLabels: b.opts.WeatherLabels, Order: b.opts.WeatherLabels.Order(),
	}

	out := []Section{
		section(ds, "daily", "每日租借趋势", processor.Request{Group: processor.GroupDay, Measure: processor.FieldCount, Reducer: r}),
		section(ds, "hourly", "每小时租借趋势", processor.Request{Group: processor.GroupHour, Measure: processor.FieldCount, Reducer: r, Order: processor.HourOrder}),
		section(ds, "weekday", "星期分布", processor.Request{Group: processor.GroupWeekday, Measure: processor.FieldCount, Reducer: r, Order: processor.WeekdayOrder}),
		section(ds, "weather", "天气分布", weather),
	}

	// 季节一节按值升序展示
	s := section(ds, "seasonal", "季节模式", season)
	if s.Table != nil {
		s.Table = s.Table.SortedByValue()
	}
	out = append(out, s)

	if b.opts.Bins != nil {
		out = append(out, b.binSection(ds, r))
	}
	return out
}

func (b *Builder) binSection(ds *processor.Dataset, r processor.Reducer) Section {
	s := Section{Name: "demand", Title: "需求分级"}
	binned, err := b.bin(ds)
	if err != nil {
		s.Err = err.Error()
		return s
	}
	return section(binned, s.Name, s.Title, processor.Request{
		Group:   processor.GroupKey(b.binColumn()),
		Measure: processor.FieldCount,
		Reducer: r,
		Order:   b.opts.Bins.Labels,
	})
}

func (b *Builder) bin(ds *processor.Dataset) (*processor.Dataset, error) {
	spec := *b.opts.Bins
	spec.Column = b.binColumn()
	if b.opts.BinsUpToMax {
		var err error
		if spec, err = processor.UpToMax(ds, spec); err != nil {
			return nil, err
		}
	}
	return processor.Bin(ds, spec)
}

func (b *Builder) binColumn() string {
	if b.opts.Bins.Column != "" {
		return b.opts.Bins.Column
	}
	return string(b.opts.Bins.Measure) + "_bin"
}

func section(ds *processor.Dataset, name, title string, req processor.Request) Section {
	s := Section{Name: name, Title: title}
	table, err := processor.Aggregate(ds, req)
	if err != nil {
		s.Err = err.Error()
		return s
	}
	s.Table = table
	return s
}

// checkLogo 图片缺失只告警
func (b *Builder) checkLogo(rep *Report) {
	if b.opts.LogoPath == "" {
		return
	}
	if _, err := os.Stat(b.opts.LogoPath); err != nil {
		b.warn(rep, fmt.Sprintf("未找到图片: %s", b.opts.LogoPath))
	}
}

func (b *Builder) warn(rep *Report, msg string) {
	rep.Warnings = append(rep.Warnings, msg)
	if b.logger != nil {
		b.logger.Warning(msg)
	}
}

func (b *Builder) errorf(format string, args ...interface{}) {
	if b.logger != nil {
		b.logger.Error(fmt.Sprintf(format, args...))
	}
}

func (b *Builder) infof(format string, args ...interface{}) {
	if b.logger != nil {
		b.logger.Info(fmt.Sprintf(format, args...))
	}
}

func (b *Builder) debugf(format string, args ...interface{}) {
	if b.logger != nil {
		b.logger.Debug(fmt.Sprintf(format, args...))
	}
}
