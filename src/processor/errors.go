package processor

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// 错误分类，调用方通过 errors.Is 判断
var (
	ErrFileNotFound     = errors.New("数据文件不存在")
	ErrParse            = errors.New("数据解析失败")
	ErrMissingColumn    = errors.New("缺少数据列")
	ErrEmptyResult      = errors.New("筛选结果为空")
	ErrInvalidDateRange = errors.New("日期范围无效")
	ErrInvalidBins      = errors.New("分箱参数无效")
	ErrInvalidReducer   = errors.New("聚合方式无效")
)

// MissingColumnError 逻辑字段在数据集中找不到对应的物理列
type MissingColumnError struct {
	Field      Field
	Candidates []string
}

func (e *MissingColumnError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("%s: %s", ErrMissingColumn, e.Field)
	}
	return fmt.Sprintf("%s: %s (候选列: %s)", ErrMissingColumn, e.Field, strings.Join(e.Candidates, ", "))
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }

// InvalidDateRangeError 开始日期晚于结束日期
type InvalidDateRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidDateRangeError) Error() string {
	return fmt.Sprintf("%s: %s > %s", ErrInvalidDateRange,
		e.Start.Format(DateLayout), e.End.Format(DateLayout))
}

func (e *InvalidDateRangeError) Unwrap() error { return ErrInvalidDateRange }
