package models

import "go.uber.org/atomic"

// Metrics 定義指標統計
type Metrics struct {
	Hits      atomic.Int64
	Misses    atomic.Int64
	Evictions atomic.Int64
}

// NewMetrics 創建新的 Metrics 實例
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Reset zeroes every counter.
func (m *Metrics) Reset() {
	m.Hits.Store(0)
	m.Misses.Store(0)
	m.Evictions.Store(0)
}

// HitRate returns hits / (hits + misses), or 0 before the first access.
func (m *Metrics) HitRate() float64 {
	hits := m.Hits.Load()
	total := hits + m.Misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Stats is a point-in-time snapshot of cache diagnostics.
type Stats struct {
	Size      int      `json:"size"`
	Keys      []string `json:"keys"`
	Hits      int64    `json:"hits"`
	Misses    int64    `json:"misses"`
	Evictions int64    `json:"evictions"`
	HitRate   float64  `json:"hitRate"`
}
