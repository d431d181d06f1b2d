package lifecycle

import (
	"context"

	"autoedit/pkg/types"
)

// Acquire brings the stage's model to Resident and returns once it is
// ready for one inference call. Repeated Acquire on an already-Resident
// handle is a no-op.
//
// Transitions: Unloaded -> Loading -> Resident (weights initialized from
// the snapshot, fetched on first use); Offloaded -> Resident (device
// transfer only, no re-initialization); Failed handles are retried from
// Unloaded.
func (m *Manager) Acquire(ctx context.Context, stage types.Stage) error {
	m.mu.Lock()
	h, ok := m.handles[stage]
	if !ok {
		m.mu.Unlock()
		return ErrModelUnavailable(stage, "no model registered")
	}

	switch h.State {
	case StateResident:
		m.touch(h)
		m.mu.Unlock()
		return nil
	case StateLoading:
		// A single coordinator drives this manager; a Loading handle here
		// means a previous transition was abandoned. Treat as unloaded.
		h.State = StateUnloaded
	case StateFailed:
		h.State = StateUnloaded
	}

	full := h.Model.VRAMMB()
	required := full - h.ResidentMB
	if m.budgetMB > 0 && m.usedMB+required+m.marginMB > m.budgetMB {
		used := m.usedMB
		m.mu.Unlock()
		err := ErrOutOfMemory(stage, "insufficient accelerator memory to place model")
		m.noteError(err)
		m.publisher.Publish(Event{Name: "acquire_oom", Stage: stage, Fields: map[string]any{"required_mb": required, "used_mb": used}})
		return err
	}

	from := h.State
	h.State = StateLoading
	m.mu.Unlock()

	m.publisher.Publish(Event{Name: "acquire_start", Stage: stage, Fields: map[string]any{"from": string(from)}})

	var err error
	if from == StateOffloaded {
		err = h.Loader.Restore(ctx, h.Model)
	} else {
		var dir string
		if m.weights != nil {
			if dir, err = m.weights.Ensure(ctx, h.Model); err != nil {
				m.fail(h, stage, err)
				return ErrModelUnavailable(stage, err.Error())
			}
			h.snapshotDir = dir
		}
		err = h.Loader.Load(ctx, h.Model, h.snapshotDir)
	}
	if err != nil {
		m.fail(h, stage, err)
		if IsOutOfMemory(err) {
			return err
		}
		return ErrModelUnavailable(stage, err.Error())
	}

	m.mu.Lock()
	m.usedMB += required
	h.ResidentMB = full
	h.State = StateResident
	m.touch(h)
	if from != StateOffloaded {
		m.loadsTotal++
	}
	m.lastErr = ""
	m.mu.Unlock()

	m.publisher.Publish(Event{Name: "acquire_done", Stage: stage, Fields: map[string]any{"resident_mb": full}})
	return nil
}

// Release hands the handle back after an inference call. KeepResident only
// refreshes the usage timestamp; Offload moves offloadable components to
// host memory, keeping pinned components on the accelerator. Releasing a
// handle that is not Resident is a no-op.
func (m *Manager) Release(stage types.Stage, policy ReleasePolicy) {
	m.mu.Lock()
	h, ok := m.handles[stage]
	if !ok || h.State != StateResident {
		m.mu.Unlock()
		return
	}
	m.touch(h)
	if policy != Offload {
		m.mu.Unlock()
		return
	}
	pinned := h.Model.PinnedVRAMMB()
	freed := h.ResidentMB - pinned
	m.mu.Unlock()

	if err := h.Loader.Offload(h.Model); err != nil {
		// The handle is in an unknown placement; force a clean reload next time.
		m.fail(h, stage, err)
		return
	}

	m.mu.Lock()
	m.usedMB -= freed
	if m.usedMB < 0 {
		m.usedMB = 0
	}
	h.ResidentMB = pinned
	h.State = StateOffloaded
	m.offloadsTotal++
	m.mu.Unlock()

	m.publisher.Publish(Event{Name: "release_offload", Stage: stage, Fields: map[string]any{"freed_mb": freed, "pinned_mb": pinned}})
}

// Unload discards a stage model entirely, freeing both memory tiers.
// Used on shutdown; not part of the per-request flow.
func (m *Manager) Unload(stage types.Stage) error {
	m.mu.Lock()
	h, ok := m.handles[stage]
	if !ok || h.State == StateUnloaded {
		m.mu.Unlock()
		return nil
	}
	resident := h.ResidentMB
	m.mu.Unlock()

	if err := h.Loader.Unload(h.Model); err != nil {
		return err
	}

	m.mu.Lock()
	m.usedMB -= resident
	if m.usedMB < 0 {
		m.usedMB = 0
	}
	h.ResidentMB = 0
	h.State = StateUnloaded
	m.mu.Unlock()

	m.publisher.Publish(Event{Name: "unload_done", Stage: stage, Fields: map[string]any{}})
	return nil
}

// fail marks the handle failed and zeroes its accounting so the next
// Acquire restarts from Unloaded.
func (m *Manager) fail(h *Handle, stage types.Stage, err error) {
	m.mu.Lock()
	m.usedMB -= h.ResidentMB
	if m.usedMB < 0 {
		m.usedMB = 0
	}
	h.ResidentMB = 0
	h.State = StateFailed
	m.lastErr = err.Error()
	m.mu.Unlock()
	m.publisher.Publish(Event{Name: "stage_failed", Stage: stage, Fields: map[string]any{"error": err.Error()}})
}

func (m *Manager) noteError(err error) {
	m.mu.Lock()
	m.lastErr = err.Error()
	m.mu.Unlock()
}
