package lifecycle

import (
	"context"
	"time"

	"autoedit/pkg/types"
)

// HandleState represents the lifecycle state of one stage model handle.
type HandleState string

const (
	StateUnloaded  HandleState = "unloaded"
	StateLoading   HandleState = "loading"
	StateResident  HandleState = "resident"
	StateOffloaded HandleState = "offloaded"
	StateFailed    HandleState = "failed"
)

// ReleasePolicy tells Release what to do with the handle's memory.
type ReleasePolicy string

const (
	// KeepResident leaves the model on the accelerator for the next call.
	KeepResident ReleasePolicy = "keep_resident"
	// Offload moves offloadable components to host memory, retaining only
	// pinned components on the accelerator.
	Offload ReleasePolicy = "offload"
)

// Loader performs the actual device work for a stage model. Runtimes
// implement it; tests substitute fakes.
type Loader interface {
	// Load initializes weights from a local snapshot dir and places all
	// components on the accelerator.
	Load(ctx context.Context, model types.StageModel, snapshotDir string) error
	// Restore moves previously offloaded components back to the
	// accelerator. No weight initialization happens.
	Restore(ctx context.Context, model types.StageModel) error
	// Offload moves offloadable components to host memory.
	Offload(model types.StageModel) error
	// Unload discards all components and frees both memory tiers.
	Unload(model types.StageModel) error
}

// WeightsSource resolves a model snapshot to a local directory, fetching
// it on first use and reusing the cache afterwards.
type WeightsSource interface {
	Ensure(ctx context.Context, model types.StageModel) (string, error)
}

// Handle tracks one stage model's placement. Owned exclusively by the
// Manager; callers observe it through Status snapshots.
type Handle struct {
	Model       types.StageModel
	Loader      Loader
	State       HandleState
	LastUsed    time.Time
	ResidentMB  int
	snapshotDir string
}
