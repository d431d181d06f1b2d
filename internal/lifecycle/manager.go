package lifecycle

import (
	"sync"
	"time"

	"autoedit/pkg/types"
)

// Manager is the sole mutator of accelerator memory. It maps stages to
// handles and serializes every placement transition.
type Manager struct {
	mu        sync.Mutex
	handles   map[types.Stage]*Handle
	budgetMB  int
	marginMB  int
	usedMB    int
	lastErr   string
	weights   WeightsSource
	publisher EventPublisher

	loadsTotal    uint64
	offloadsTotal uint64
	startTime     time.Time
}

// New constructs a Manager with the given bindings and memory budget.
func New(stages map[types.Stage]StageBinding, budgetMB, marginMB int, weights WeightsSource) *Manager {
	return NewWithConfig(ManagerConfig{
		Stages:   stages,
		BudgetMB: budgetMB,
		MarginMB: marginMB,
		Weights:  weights,
	})
}

// Ready reports whether at least one handle is in a servable state.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.handles {
		if h.State == StateFailed {
			return false
		}
	}
	return len(m.handles) > 0
}

// UsedMB returns the current estimated accelerator usage in MB.
func (m *Manager) UsedMB() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usedMB
}

// StageState returns the current state of a stage handle.
func (m *Manager) StageState(stage types.Stage) (HandleState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handles[stage]
	if !ok {
		return "", false
	}
	return h.State, true
}

func (m *Manager) touch(h *Handle) {
	h.LastUsed = time.Now()
}
