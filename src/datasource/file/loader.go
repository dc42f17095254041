// loader.go
package file

import (
	"sync"

	"BikeSharing/src/processor"
)

// Loader 单条目缓存的数据加载器
// 同一路径重复加载直接返回缓存；换路径时替换缓存；失败不缓存
type Loader struct {
	opts ReadOptions

	mu     sync.Mutex
	path   string
	cached *processor.Dataset
	reads  int
}

// NewLoader 创建加载器，生命周期为一次分析会话
func NewLoader(opts ReadOptions) *Loader {
	return &Loader{opts: opts}
}

// Load 加载数据集
func (l *Loader) Load(path string) (*processor.Dataset, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached != nil && l.path == path {
		return l.cached, nil
	}

	ds, err := ReadDataset(path, l.opts)
	l.reads++
	if err != nil {
		return nil, err
	}

	l.path, l.cached = path, ds
	return ds, nil
}

// Reads 实际读取文件的次数
func (l *Loader) Reads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reads
}

// Invalidate 丢弃缓存，下次 Load 重新读取
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.path, l.cached = "", nil
}
