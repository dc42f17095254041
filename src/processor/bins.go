package processor

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gota/gota/series"
)

// BinSpec 分箱参数
// 区间为 [Edges[i], Edges[i+1])，最后一个区间两端闭合
type BinSpec struct {
	Measure Field
	Edges   []float64
	Labels  []string
	Column  string
}

// Validate 检查边界严格递增且标签数比边界少一个
func (b BinSpec) Validate() error {
	if len(b.Edges) < 2 {
		return fmt.Errorf("%w: 至少需要两个边界", ErrInvalidBins)
	}
	if len(b.Labels) != len(b.Edges)-1 {
		return fmt.Errorf("%w: 标签数 %d 应为 %d", ErrInvalidBins, len(b.Labels), len(b.Edges)-1)
	}
	for i := 1; i < len(b.Edges); i++ {
		if math.IsNaN(b.Edges[i]) || !(b.Edges[i] > b.Edges[i-1]) {
			return fmt.Errorf("%w: 边界必须严格递增 (%v)", ErrInvalidBins, b.Edges)
		}
	}
	return nil
}

// Assign 返回 v 所在分箱的标签，不在任何区间内返回 false
func (b BinSpec) Assign(v float64) (string, bool) {
	if math.IsNaN(v) {
		return "", false
	}
	last := len(b.Edges) - 1
	i := sort.SearchFloat64s(b.Edges, v)
	switch {
	case i <= last && b.Edges[i] == v:
		if i == last {
			return b.Labels[last-1], true
		}
		return b.Labels[i], true
	case i == 0 || i > last:
		return "", false
	}
	return b.Labels[i-1], true
}

// Bin 为数据集添加分箱列
func Bin(ds *Dataset, spec BinSpec) (*Dataset, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.Column == "" {
		spec.Column = string(spec.Measure) + "_bin"
	}

	s, err := ds.Column(spec.Measure)
	if err != nil {
		return nil, err
	}

	out := make([]string, s.Len())
	for i, v := range s.Float() {
		label, ok := spec.Assign(v)
		if !ok {
			label = NaN
		}
		out[i] = label
	}

	df := ds.Frame().Mutate(series.New(out, series.String, spec.Column))
	return ds.derive(df, ds.Schema().withColumn(Field(spec.Column), spec.Column)), nil
}

// UpToMax 把最后一个边界替换为度量列的最大值
// 对应 [0, 100, 200, 300, 400, max] 这种写法
func UpToMax(ds *Dataset, spec BinSpec) (BinSpec, error) {
	s, err := ds.Column(spec.Measure)
	if err != nil {
		return spec, err
	}

	max := math.Inf(-1)
	for _, v := range s.Float() {
		if !math.IsNaN(v) && v > max {
			max = v
		}
	}
	if math.IsInf(max, -1) {
		return spec, fmt.Errorf("%w: %s 没有可用的数值", ErrInvalidBins, spec.Measure)
	}

	edges := append([]float64(nil), spec.Edges...)
	if len(edges) > 0 {
		edges[len(edges)-1] = max
	}
	spec.Edges = edges
	return spec, nil
}
