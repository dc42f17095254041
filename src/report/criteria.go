// criteria.go
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"BikeSharing/src/processor"
	"BikeSharing/src/utils"
)

// ErrInvalidCriteria 筛选参数无法解析
var ErrInvalidCriteria = errors.New("筛选参数无效")

// 只给出一端时另一端不设限
var (
	openStart = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	openEnd   = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

// ParseDateRange 两端都为空时返回 nil，表示不按日期筛选
func ParseDateRange(start, end string) (*processor.DateRange, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" && end == "" {
		return nil, nil
	}

	r := &processor.DateRange{Start: openStart, End: openEnd}
	if start != "" {
		t, err := utils.ParseDate(start)
		if err != nil {
			return nil, fmt.Errorf("%w: start: %v", ErrInvalidCriteria, err)
		}
		r.Start = t
	}
	if end != "" {
		t, err := utils.ParseDate(end)
		if err != nil {
			return nil, fmt.Errorf("%w: end: %v", ErrInvalidCriteria, err)
		}
		r.End = t
	}
	return r, nil
}

// ParseCodes 解析逗号分隔的编码或标签
// present 为 false 表示参数没有出现，返回 nil；出现但为空返回空集合
func ParseCodes(labels processor.Labels, raw string, present bool) ([]int, error) {
	if !present {
		return nil, nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []int{}, nil
	}

	codes, ok := labels.Codes(strings.Split(raw, ","))
	if !ok {
		return nil, fmt.Errorf("%w: %q (可选 %s)", ErrInvalidCriteria, raw, strings.Join(labels.Order(), ", "))
	}
	return codes, nil
}
