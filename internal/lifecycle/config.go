package lifecycle

import (
	"time"

	"autoedit/pkg/types"
)

// StageBinding couples a registered stage model with the loader that can
// place it on the device.
type StageBinding struct {
	Model  types.StageModel
	Loader Loader
}

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Stage model bindings, keyed by stage.
	Stages map[types.Stage]StageBinding
	// Accelerator memory budget in MB across all handles. 0 = unlimited.
	BudgetMB int
	// Reserved margin in MB kept free under the budget.
	MarginMB int
	// Snapshot resolver. If nil, models are assumed locally present.
	Weights WeightsSource
	// Event sink. If nil, events are dropped.
	Publisher EventPublisher
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		handles:   make(map[types.Stage]*Handle, len(cfg.Stages)),
		budgetMB:  cfg.BudgetMB,
		marginMB:  cfg.MarginMB,
		weights:   cfg.Weights,
		publisher: cfg.Publisher,
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	m.startTime = time.Now()
	for stg, b := range cfg.Stages {
		m.handles[stg] = &Handle{
			Model:  b.Model,
			Loader: b.Loader,
			State:  StateUnloaded,
		}
	}
	return m
}
