// schema.go
package processor

import (
	"sort"

	"BikeSharing/src/utils"
)

// Field 逻辑字段名，与具体数据文件的表头无关
type Field string

// 已知的逻辑字段
const (
	FieldDate      Field = "date"
	FieldHour      Field = "hour"
	FieldCount     Field = "count"
	FieldSeason    Field = "season"
	FieldWeather   Field = "weather"
	FieldTemp      Field = "temp"
	FieldHumidity  Field = "humidity"
	FieldWindSpeed Field = "windspeed"
)

// Candidates 逻辑字段 -> 候选物理列名(按优先级)
type Candidates map[Field][]string

// DefaultCandidates 覆盖了多次合并数据集后出现的 _x/_y 后缀
var DefaultCandidates = Candidates{
	FieldDate:      {"dteday", "dteday_x", "dteday_y", "date"},
	FieldHour:      {"hr", "hr_x", "hr_y", "hour"},
	FieldCount:     {"cnt", "cnt_y_x", "cnt_x", "cnt_y", "count"},
	FieldSeason:    {"season", "season_x", "season_y"},
	FieldWeather:   {"weathersit", "weathersit_x", "weathersit_y", "weather"},
	FieldTemp:      {"temp", "temp_x", "temp_y"},
	FieldHumidity:  {"hum", "hum_x", "hum_y", "humidity"},
	FieldWindSpeed: {"windspeed", "windspeed_x", "windspeed_y"},
}

// Schema 加载时解析一次的逻辑字段到物理列映射
type Schema struct {
	columns    map[Field]string
	candidates Candidates
	names      []string
}

// ResolveSchema 按候选表解析每个逻辑字段
// 返回的错误列表中每一项都是 *MissingColumnError，不影响其它字段
func ResolveSchema(names []string, candidates Candidates) (Schema, []error) {
	if candidates == nil {
		candidates = DefaultCandidates
	}

	s := Schema{
		columns:    make(map[Field]string, len(candidates)),
		candidates: candidates,
		names:      append([]string(nil), names...),
	}

	// 固定顺序，保证报告里的缺列提示稳定
	fields := make([]string, 0, len(candidates))
	for f := range candidates {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)

	var errs []error
	for _, name := range fields {
		f := Field(name)
		col, ok := firstPresent(names, candidates[f])
		if !ok {
			errs = append(errs, &MissingColumnError{Field: f, Candidates: candidates[f]})
			continue
		}
		s.columns[f] = col
	}
	return s, errs
}

func firstPresent(names, candidates []string) (string, bool) {
	for _, c := range candidates {
		if utils.Contains(names, c) {
			return c, true
		}
	}
	return "", false
}

// Column 返回逻辑字段对应的物理列
// 不在候选表中的字段按同名列查找，例如 casual、registered
func (s Schema) Column(f Field) (string, error) {
	if col, ok := s.columns[f]; ok {
		return col, nil
	}
	if _, known := s.candidates[f]; !known && utils.Contains(s.names, string(f)) {
		return string(f), nil
	}
	return "", &MissingColumnError{Field: f, Candidates: s.candidates[f]}
}

// Has 判断逻辑字段是否可用
func (s Schema) Has(f Field) bool {
	_, err := s.Column(f)
	return err == nil
}

// Missing 列出候选表中未能解析的字段
func (s Schema) Missing() []Field {
	var out []Field
	for f := range s.candidates {
		if _, ok := s.columns[f]; !ok {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// withColumn 为派生列登记一个同名逻辑字段
func (s Schema) withColumn(f Field, col string) Schema {
	columns := make(map[Field]string, len(s.columns)+1)
	for k, v := range s.columns {
		columns[k] = v
	}
	columns[f] = col

	names := s.names
	if !utils.Contains(names, col) {
		names = append(append([]string(nil), names...), col)
	}
	return Schema{columns: columns, candidates: s.candidates, names: names}
}
