// filter.go
package processor

import (
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// DateRange 闭区间，按自然日比较
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Criteria 筛选条件，各条件之间为 AND
//
// Seasons/Weathers 为 nil 表示不筛选；
// 非 nil 的空切片表示选择了空集合，结果为零行。
type Criteria struct {
	Dates    *DateRange `json:"dates,omitempty"`
	Seasons  []int      `json:"seasons"`
	Weathers []int      `json:"weathers"`
}

// IsZero 没有请求任何筛选
func (c Criteria) IsZero() bool {
	return c.Dates == nil && c.Seasons == nil && c.Weathers == nil
}

// Validate 在处理任何行之前检查条件本身
func (c Criteria) Validate() error {
	if c.Dates == nil {
		return nil
	}
	start := c.Dates.Start.Format(DateLayout)
	end := c.Dates.End.Format(DateLayout)
	if start > end {
		return &InvalidDateRangeError{Start: c.Dates.Start, End: c.Dates.End}
	}
	return nil
}

// Filter 按条件筛选数据集
// 结果为空时同时返回空数据集和 ErrEmptyResult
func Filter(ds *Dataset, c Criteria) (*Dataset, error) {
	// 1. 日期范围先校验，零行处理
	if err := c.Validate(); err != nil {
		return nil, err
	}

	df := ds.Frame()

	// 2. 日期区间
	if c.Dates != nil {
		col, err := ds.Schema().Column(FieldDate)
		if err != nil {
			return nil, err
		}
		df = df.Filter(
			dataframe.F{Colname: col, Comparator: series.GreaterEq, Comparando: c.Dates.Start.Format(DateLayout)},
		).Filter(
			dataframe.F{Colname: col, Comparator: series.LessEq, Comparando: c.Dates.End.Format(DateLayout)},
		)
	}

	// 3. 分类条件
	var err error
	if df, err = filterIn(ds, df, FieldSeason, c.Seasons); err != nil {
		return nil, err
	}
	if df, err = filterIn(ds, df, FieldWeather, c.Weathers); err != nil {
		return nil, err
	}

	out := ds.derive(df, ds.Schema())
	if out.Empty() {
		return out, ErrEmptyResult
	}
	return out, nil
}

func filterIn(ds *Dataset, df dataframe.DataFrame, f Field, codes []int) (dataframe.DataFrame, error) {
	if codes == nil {
		return df, nil
	}
	col, err := ds.Schema().Column(f)
	if err != nil {
		return df, err
	}
	if len(codes) == 0 || df.Nrow() == 0 {
		return df.Subset([]int{}), nil
	}
	return df.Filter(
		dataframe.F{Colname: col, Comparator: series.In, Comparando: codes},
	), nil
}
