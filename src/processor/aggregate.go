// aggregate.go
package processor

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/montanaflynn/stats"
)

// Reducer 聚合方式，必须显式指定
type Reducer string

const (
	ReducerMean Reducer = "mean"
	ReducerSum  Reducer = "sum"
)

// ParseReducer 解析命令行或请求参数
func ParseReducer(s string) (Reducer, error) {
	r := Reducer(s)
	if err := r.Validate(); err != nil {
		return "", err
	}
	return r, nil
}

func (r Reducer) Validate() error {
	switch r {
	case ReducerMean, ReducerSum:
		return nil
	}
	return fmt.Errorf("%w: %q (可选 mean, sum)", ErrInvalidReducer, string(r))
}

func (r Reducer) apply(values []float64) (float64, error) {
	switch r {
	case ReducerMean:
		return stats.Mean(values)
	case ReducerSum:
		return stats.Sum(values)
	}
	return math.NaN(), r.Validate()
}

// GroupKey 分组维度
// 除下列内置维度外，也可以直接使用派生列名(如分箱列)
type GroupKey string

const (
	GroupDay     GroupKey = "day"
	GroupHour    GroupKey = "hour"
	GroupWeekday GroupKey = "weekday"
	GroupSeason  GroupKey = "season"
	GroupWeather GroupKey = "weather"
)

// 标准顺序
var (
	HourOrder    = hourOrder()
	WeekdayOrder = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
)

func hourOrder() []string {
	out := make([]string, 24)
	for h := range out {
		out[h] = strconv.Itoa(h)
	}
	return out
}

// Request 聚合请求
type Request struct {
	Group   GroupKey
	Measure Field
	Reducer Reducer
	// Order 非空时按该顺序重建索引，缺失的分组标记为 Missing
	Order []string
	// SeasonLabels/WeatherLabels 为空时使用默认标签
	SeasonLabels  Labels
	WeatherLabels Labels
}

// Row 汇总表的一行
type Row struct {
	Key     string
	Value   float64
	Count   int
	Missing bool
}

// MarshalJSON 缺失值输出为 null
func (r Row) MarshalJSON() ([]byte, error) {
	var v *float64
	if !r.Missing {
		v = &r.Value
	}
	return json.Marshal(struct {
		Key     string   `json:"key"`
		Value   *float64 `json:"value"`
		Count   int      `json:"count"`
		Missing bool     `json:"missing,omitempty"`
	}{r.Key, v, r.Count, r.Missing})
}

// SummaryTable 分组汇总结果
type SummaryTable struct {
	Group   GroupKey `json:"group"`
	Measure Field    `json:"measure"`
	Reducer Reducer  `json:"reducer"`
	Rows    []Row    `json:"rows"`
}

// Get 按分组键取值
func (t *SummaryTable) Get(key string) (Row, bool) {
	for _, r := range t.Rows {
		if r.Key == key {
			return r, true
		}
	}
	return Row{}, false
}

// Keys 分组键序列
func (t *SummaryTable) Keys() []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Key
	}
	return out
}

// SortedByValue 按值升序的副本，缺失值排在最后
func (t *SummaryTable) SortedByValue() *SummaryTable {
	out := *t
	out.Rows = append([]Row(nil), t.Rows...)
	sort.SliceStable(out.Rows, func(i, j int) bool {
		a, b := out.Rows[i], out.Rows[j]
		if a.Missing != b.Missing {
			return !a.Missing
		}
		return a.Value < b.Value
	})
	return &out
}

// Records 转成二维表，便于导出
func (t *SummaryTable) Records() [][]string {
	out := [][]string{{string(t.Group), fmt.Sprintf("%s(%s)", t.Reducer, t.Measure)}}
	for _, r := range t.Rows {
		v := ""
		if !r.Missing {
			v = strconv.FormatFloat(r.Value, 'f', -1, 64)
		}
		out = append(out, []string{r.Key, v})
	}
	return out
}

// Aggregate 按请求对数据集分组汇总
func Aggregate(ds *Dataset, req Request) (*SummaryTable, error) {
	if err := req.Reducer.Validate(); err != nil {
		return nil, err
	}

	// 1. 分组键和度量列
	keys, natural, err := groupKeys(ds, req)
	if err != nil {
		return nil, err
	}
	measure, err := ds.Column(req.Measure)
	if err != nil {
		return nil, err
	}
	values := measure.Float()

	// 2. 收集每组的值，跳过缺失值
	groups := make(map[string][]float64)
	counts := make(map[string]int)
	var seen []string
	for i, k := range keys {
		if k == NaN {
			continue
		}
		if _, ok := counts[k]; !ok {
			seen = append(seen, k)
		}
		counts[k]++
		if !math.IsNaN(values[i]) {
			groups[k] = append(groups[k], values[i])
		}
	}

	// 3. 排序或重建索引
	order := req.Order
	reindex := len(order) > 0
	if !reindex {
		order = natural(seen)
	}

	table := &SummaryTable{Group: req.Group, Measure: req.Measure, Reducer: req.Reducer}
	for _, k := range order {
		n, ok := counts[k]
		if !ok {
			if reindex {
				table.Rows = append(table.Rows, Row{Key: k, Value: math.NaN(), Missing: true})
			}
			continue
		}
		row := Row{Key: k, Count: n}
		if vals := groups[k]; len(vals) > 0 {
			v, err := req.Reducer.apply(vals)
			if err != nil {
				return nil, fmt.Errorf("分组 %s 聚合失败: %w", k, err)
			}
			row.Value = v
		} else {
			row.Value, row.Missing = math.NaN(), true
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// Reduce 对整个数据集的度量列做一次聚合
func Reduce(ds *Dataset, measure Field, r Reducer) (float64, error) {
	if err := r.Validate(); err != nil {
		return math.NaN(), err
	}
	s, err := ds.Column(measure)
	if err != nil {
		return math.NaN(), err
	}
	var vals []float64
	for _, v := range s.Float() {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return math.NaN(), ErrEmptyResult
	}
	return r.apply(vals)
}

// groupKeys 计算每一行的分组键以及该维度的自然排序
func groupKeys(ds *Dataset, req Request) ([]string, func([]string) []string, error) {
	switch req.Group {
	case GroupDay:
		s, err := ds.Column(FieldDate)
		if err != nil {
			return nil, nil, err
		}
		return s.Records(), lexical, nil

	case GroupHour:
		s, err := ds.Column(FieldHour)
		if err != nil {
			return nil, nil, err
		}
		return s.Records(), numeric, nil

	case GroupWeekday:
		s, err := ds.Column(FieldDate)
		if err != nil {
			return nil, nil, err
		}
		keys := s.Records()
		for i, v := range keys {
			t, err := time.Parse(DateLayout, v)
			if err != nil {
				keys[i] = NaN
				continue
			}
			keys[i] = t.Weekday().String()
		}
		return keys, byRank(rankOf(WeekdayOrder)), nil

	case GroupSeason:
		return labelKeys(ds, FieldSeason, req.SeasonLabels, SeasonLabels)

	case GroupWeather:
		return labelKeys(ds, FieldWeather, req.WeatherLabels, WeatherLabels)
	}

	// 派生列或任意同名列
	s, err := ds.Column(Field(req.Group))
	if err != nil {
		return nil, nil, err
	}
	return s.Records(), lexical, nil
}

func labelKeys(ds *Dataset, f Field, labels, fallback Labels) ([]string, func([]string) []string, error) {
	if len(labels) == 0 {
		labels = fallback
	}
	s, err := ds.Column(f)
	if err != nil {
		return nil, nil, err
	}
	keys := make([]string, s.Len())
	for i := range keys {
		keys[i] = labels.Label(s.Elem(i))
	}
	return keys, byRank(labels.rank()), nil
}

func lexical(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	return out
}

func numeric(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.SliceStable(out, func(i, j int) bool {
		a, errA := strconv.ParseFloat(out[i], 64)
		b, errB := strconv.ParseFloat(out[j], 64)
		if errA != nil || errB != nil {
			return out[i] < out[j]
		}
		return a < b
	})
	return out
}

func rankOf(order []string) map[string]int {
	r := make(map[string]int, len(order))
	for i, k := range order {
		r[k] = i
	}
	return r
}

// byRank 已知的键按给定位置排序，未知的键排在后面按字典序
func byRank(rank map[string]int) func([]string) []string {
	return func(keys []string) []string {
		out := append([]string(nil), keys...)
		sort.SliceStable(out, func(i, j int) bool {
			ri, okI := rank[out[i]]
			rj, okJ := rank[out[j]]
			switch {
			case okI && okJ:
				return ri < rj
			case okI != okJ:
				return okI
			}
			return out[i] < out[j]
		})
		return out
	}
}
