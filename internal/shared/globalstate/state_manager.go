package globalstate

import (
	"sync"

	"mullvad_monitor/internal/shared/types"
)

// Observation 表示状态单元中的值：要么尚未观测 (Unset)，要么持有一次成功探测的 Status。
// 零值即 Unset。
type Observation struct {
	status types.Status
	set    bool
}

// Unset returns the "never probed" observation.
func Unset() Observation {
	return Observation{}
}

// Observed wraps a successfully probed status.
func Observed(s types.Status) Observation {
	return Observation{status: s, set: true}
}

// Get returns the held status and whether one has been observed.
func (o Observation) Get() (types.Status, bool) {
	return o.status, o.set
}

// IsSet reports whether a status has been observed.
func (o Observation) IsSet() bool {
	return o.set
}

// StatusCell 保存最近一次成功探测的状态。
// 它使用 RWMutex 来保护并发读写：写者互斥，读者只会看到完整的旧值或新值。
type StatusCell struct {
	mu  sync.RWMutex
	obs Observation
}

// NewStatusCell creates an empty cell. Each owner gets its own cell; there is no package-level instance.
func NewStatusCell() *StatusCell {
	return &StatusCell{}
}

// Read 安全地读取当前值。
func (c *StatusCell) Read() Observation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.obs
}

// Write 原子地替换当前值，并返回被替换的旧值，调用方据此计算状态转换，无需再次加锁。
func (c *StatusCell) Write(s types.Status) Observation {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.obs
	c.obs = Observed(s)
	return prev
}
