package processor

import (
	"sort"
	"strconv"
	"strings"

	"github.com/go-gota/gota/series"
)

// NaN gota 字符串列中表示缺失值的写法
const NaN = "NaN"

// Labels 整数编码 -> 展示标签
type Labels map[int]string

// 默认的季节和天气标签
var (
	SeasonLabels = Labels{1: "Spring", 2: "Summer", 3: "Fall", 4: "Winter"}

	WeatherLabels = Labels{1: "Clear", 2: "Mist", 3: "Light Rain-Snow", 4: "Heavy Rain-Snow"}
)

// Label 单个元素的标签，缺失值返回 NaN，未知编码原样返回
func (l Labels) Label(e series.Element) string {
	if e.IsNA() {
		return NaN
	}
	code, err := e.Int()
	if err != nil {
		return NaN
	}
	if name, ok := l[code]; ok {
		return name
	}
	return strconv.Itoa(code)
}

// Order 按编码升序排列的标签
func (l Labels) Order() []string {
	codes := make([]int, 0, len(l))
	for c := range l {
		codes = append(codes, c)
	}
	sort.Ints(codes)

	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = l[c]
	}
	return out
}

// Codes 把标签或数字混合的输入解析成编码，大小写不敏感
// 无法识别的值返回 false
func (l Labels) Codes(values []string) ([]int, bool) {
	out := make([]int, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if code, err := strconv.Atoi(v); err == nil {
			out = append(out, code)
			continue
		}
		found := false
		for code, name := range l {
			if strings.EqualFold(name, v) {
				out = append(out, code)
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return out, true
}

// rank 标签在编码顺序中的位置，用于自然排序
func (l Labels) rank() map[string]int {
	r := make(map[string]int, len(l))
	for i, name := range l.Order() {
		r[name] = i
	}
	return r
}
