// dataset.go
package processor

import (
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"BikeSharing/src/utils"
)

// DateLayout 数据集内部统一的日期格式，字符串顺序即日期顺序
const DateLayout = "2006-01-02"

// Dataset 一次会话内加载的数据表
// 加载后不再修改，所有阶段都返回新的 Dataset
type Dataset struct {
	df      dataframe.DataFrame
	schema  Schema
	source  string
	dropped int
	issues  []error
}

// DatasetOption 加载时的可选行为
type DatasetOption func(*loadSettings)

type loadSettings struct {
	parseDate func(string) (time.Time, error)
}

// WithExcelSerialDates 日期列允许Excel序列号，只用于 xlsx 来源
func WithExcelSerialDates() DatasetOption {
	return func(s *loadSettings) { s.parseDate = utils.ParseExcelDate }
}

// NewDataset 用原始 DataFrame 构造数据集
// 1. 解析逻辑字段
// 2. 日期列统一为 2006-01-02，无法解析的行直接丢弃
// 3. 季节、天气、小时列统一为整数列
func NewDataset(df dataframe.DataFrame, candidates Candidates, source string, opts ...DatasetOption) (*Dataset, error) {
	settings := loadSettings{parseDate: utils.ParseDate}
	for _, opt := range opts {
		opt(&settings)
	}

	if df.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, df.Err)
	}

	schema, issues := ResolveSchema(df.Names(), candidates)
	ds := &Dataset{df: df, schema: schema, source: source, issues: issues}

	if col, err := schema.Column(FieldDate); err == nil {
		ds.normalizeDates(col, settings.parseDate)
	}

	for _, f := range []Field{FieldSeason, FieldWeather, FieldHour} {
		col, err := schema.Column(f)
		if err != nil {
			continue
		}
		if ds.df.Col(col).Type() != series.Int {
			ds.df = ds.df.Mutate(series.New(ds.df.Col(col).Records(), series.Int, col))
		}
	}

	if ds.df.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, ds.df.Err)
	}
	return ds, nil
}

func (d *Dataset) normalizeDates(col string, parse func(string) (time.Time, error)) {
	raw := d.df.Col(col).Records()
	keep := make([]int, 0, len(raw))
	dates := make([]string, 0, len(raw))

	for i, s := range raw {
		t, err := parse(s)
		if err != nil {
			continue
		}
		keep = append(keep, i)
		dates = append(dates, t.Format(DateLayout))
	}

	d.dropped = len(raw) - len(keep)
	if d.dropped > 0 {
		d.df = d.df.Subset(keep)
	}
	d.df = d.df.Mutate(series.New(dates, series.String, col))
}

// derive 基于新的 DataFrame 生成同源数据集
func (d *Dataset) derive(df dataframe.DataFrame, schema Schema) *Dataset {
	return &Dataset{df: df, schema: schema, source: d.source, issues: d.issues}
}

// Frame 底层 DataFrame，调用方不应修改
func (d *Dataset) Frame() dataframe.DataFrame { return d.df }

func (d *Dataset) Schema() Schema { return d.schema }

func (d *Dataset) Source() string { return d.source }

// Len 行数
func (d *Dataset) Len() int { return d.df.Nrow() }

func (d *Dataset) Empty() bool { return d.df.Nrow() == 0 }

// Dropped 加载时因日期无法解析而丢弃的行数
func (d *Dataset) Dropped() int { return d.dropped }

// Issues 加载时的缺列报告
func (d *Dataset) Issues() []error { return d.issues }

// Names 物理列名
func (d *Dataset) Names() []string { return d.df.Names() }

// Column 按逻辑字段取列
func (d *Dataset) Column(f Field) (series.Series, error) {
	col, err := d.schema.Column(f)
	if err != nil {
		return series.Series{}, err
	}
	return d.df.Col(col), nil
}

// Head 预览前 n 行，第一行为表头
func (d *Dataset) Head(n int) [][]string {
	if n > d.Len() {
		n = d.Len()
	}
	if n <= 0 {
		return [][]string{d.df.Names()}
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return d.df.Subset(idx).Records()
}

// DateSpan 数据集的最早和最晚日期
func (d *Dataset) DateSpan() (time.Time, time.Time, error) {
	s, err := d.Column(FieldDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if s.Len() == 0 {
		return time.Time{}, time.Time{}, ErrEmptyResult
	}

	var lo, hi string
	for i, v := range s.Records() {
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
	}
	min, _ := time.Parse(DateLayout, lo)
	max, _ := time.Parse(DateLayout, hi)
	return min, max, nil
}

// WithLabels 添加编码 -> 标签的派生列，例如 season -> season_cat
func (d *Dataset) WithLabels(f Field, labels Labels, column string) (*Dataset, error) {
	s, err := d.Column(f)
	if err != nil {
		return d, err
	}

	out := make([]string, s.Len())
	for i := 0; i < s.Len(); i++ {
		out[i] = labels.Label(s.Elem(i))
	}

	df := d.df.Mutate(series.New(out, series.String, column))
	return d.derive(df, d.schema.withColumn(Field(column), column)), nil
}
