package metrics

import "sync"

// maxPooledLabels bounds the buffers kept in the pool.
const maxPooledLabels = 8

// labelValues is a reusable buffer for the label values passed to Prometheus.
type labelValues []string

var labelPool = sync.Pool{New: func() any {
	l := make(labelValues, 0, 2)
	return &l
}}

func acquireLabels(values ...string) *labelValues {
	l := labelPool.Get().(*labelValues)
	*l = append((*l)[:0], values...)
	return l
}

func (l *labelValues) add(v string) { *l = append(*l, v) }

func (l *labelValues) release() {
	if cap(*l) > maxPooledLabels {
		return
	}
	clear(*l)
	labelPool.Put(l)
}
