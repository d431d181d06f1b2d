package lifecycle

import (
	"context"
	"errors"
	"testing"

	"autoedit/pkg/types"
)

// fakeLoader records transitions and optionally fails on demand.
type fakeLoader struct {
	loads    int
	restores int
	offloads int
	unloads  int
	loadErr  error
}

func (f *fakeLoader) Load(ctx context.Context, m types.StageModel, dir string) error {
	f.loads++
	return f.loadErr
}
func (f *fakeLoader) Restore(ctx context.Context, m types.StageModel) error {
	f.restores++
	return nil
}
func (f *fakeLoader) Offload(m types.StageModel) error {
	f.offloads++
	return nil
}
func (f *fakeLoader) Unload(m types.StageModel) error {
	f.unloads++
	return nil
}

func translatorModel() types.StageModel {
	return types.StageModel{
		ID:    "vl-translator",
		Stage: types.StageTranslation,
		Components: []types.Component{
			{Name: "vision-encoder", VRAMMB: 900, Offloadable: false},
			{Name: "text-decoder", VRAMMB: 7000, Offloadable: true},
		},
	}
}

func editorModel() types.StageModel {
	return types.StageModel{
		ID:    "image-editor",
		Stage: types.StageEdit,
		Components: []types.Component{
			{Name: "transformer", VRAMMB: 6000, Offloadable: true},
			{Name: "vae", VRAMMB: 300, Offloadable: false},
		},
	}
}

func newTestManager(budget int, tl, el *fakeLoader) *Manager {
	return NewWithConfig(ManagerConfig{
		Stages: map[types.Stage]StageBinding{
			types.StageTranslation: {Model: translatorModel(), Loader: tl},
			types.StageEdit:        {Model: editorModel(), Loader: el},
		},
		BudgetMB: budget,
	})
}

func TestAcquireLoadsOnce(t *testing.T) {
	tl, el := &fakeLoader{}, &fakeLoader{}
	m := newTestManager(0, tl, el)
	ctx := context.Background()

	if err := m.Acquire(ctx, types.StageTranslation); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := m.Acquire(ctx, types.StageTranslation); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if tl.loads != 1 {
		t.Fatalf("expected 1 load got %d", tl.loads)
	}
	if st, _ := m.StageState(types.StageTranslation); st != StateResident {
		t.Fatalf("expected resident got %s", st)
	}
	if got := m.UsedMB(); got != 7900 {
		t.Fatalf("expected used 7900 got %d", got)
	}
}

func TestReleaseOffloadKeepsPinnedComponents(t *testing.T) {
	tl, el := &fakeLoader{}, &fakeLoader{}
	m := newTestManager(0, tl, el)
	ctx := context.Background()

	if err := m.Acquire(ctx, types.StageTranslation); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	m.Release(types.StageTranslation, Offload)
	if tl.offloads != 1 {
		t.Fatalf("expected 1 offload got %d", tl.offloads)
	}
	if st, _ := m.StageState(types.StageTranslation); st != StateOffloaded {
		t.Fatalf("expected offloaded got %s", st)
	}
	// Only the pinned vision encoder stays resident.
	if got := m.UsedMB(); got != 900 {
		t.Fatalf("expected used 900 got %d", got)
	}
}

func TestAcquireAfterOffloadRestoresWithoutReload(t *testing.T) {
	tl, el := &fakeLoader{}, &fakeLoader{}
	m := newTestManager(0, tl, el)
	ctx := context.Background()

	if err := m.Acquire(ctx, types.StageTranslation); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	m.Release(types.StageTranslation, Offload)
	if err := m.Acquire(ctx, types.StageTranslation); err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if tl.loads != 1 || tl.restores != 1 {
		t.Fatalf("expected 1 load and 1 restore, got loads=%d restores=%d", tl.loads, tl.restores)
	}
	if got := m.UsedMB(); got != 7900 {
		t.Fatalf("expected used 7900 got %d", got)
	}
}

func TestReleaseKeepResidentIsNoop(t *testing.T) {
	tl, el := &fakeLoader{}, &fakeLoader{}
	m := newTestManager(0, tl, el)
	ctx := context.Background()

	if err := m.Acquire(ctx, types.StageEdit); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	m.Release(types.StageEdit, KeepResident)
	m.Release(types.StageEdit, KeepResident)
	if el.offloads != 0 {
		t.Fatalf("expected no offloads got %d", el.offloads)
	}
	if st, _ := m.StageState(types.StageEdit); st != StateResident {
		t.Fatalf("expected resident got %s", st)
	}
}

func TestReleaseIdempotentWhenNotResident(t *testing.T) {
	tl, el := &fakeLoader{}, &fakeLoader{}
	m := newTestManager(0, tl, el)
	// Never acquired; release must be a no-op either way.
	m.Release(types.StageTranslation, Offload)
	m.Release(types.StageTranslation, KeepResident)
	if tl.offloads != 0 {
		t.Fatalf("expected no offloads got %d", tl.offloads)
	}
	if got := m.UsedMB(); got != 0 {
		t.Fatalf("expected used 0 got %d", got)
	}
}

func TestAcquireBudgetExceededReturnsOutOfMemory(t *testing.T) {
	tl, el := &fakeLoader{}, &fakeLoader{}
	// Translator alone fits; translator + editor does not.
	m := newTestManager(9000, tl, el)
	ctx := context.Background()

	if err := m.Acquire(ctx, types.StageTranslation); err != nil {
		t.Fatalf("acquire translation: %v", err)
	}
	err := m.Acquire(ctx, types.StageEdit)
	if err == nil || !IsOutOfMemory(err) {
		t.Fatalf("expected out of memory, got %v", err)
	}
	if stg, ok := StageOf(err); !ok || stg != types.StageEdit {
		t.Fatalf("expected error tagged to edit stage, got %v", err)
	}
	if el.loads != 0 {
		t.Fatalf("editor must not load on budget failure, loads=%d", el.loads)
	}
}

func TestOffloadFreesHeadroomForEditor(t *testing.T) {
	tl, el := &fakeLoader{}, &fakeLoader{}
	m := newTestManager(9000, tl, el)
	ctx := context.Background()

	if err := m.Acquire(ctx, types.StageTranslation); err != nil {
		t.Fatalf("acquire translation: %v", err)
	}
	m.Release(types.StageTranslation, Offload)
	// 900 pinned + 6300 editor fits under 9000.
	if err := m.Acquire(ctx, types.StageEdit); err != nil {
		t.Fatalf("acquire edit after offload: %v", err)
	}
	if got := m.UsedMB(); got != 900+6300 {
		t.Fatalf("expected used %d got %d", 900+6300, got)
	}
}

func TestAcquireLoadFailureIsModelUnavailable(t *testing.T) {
	tl := &fakeLoader{loadErr: errors.New("weights corrupt")}
	m := newTestManager(0, tl, &fakeLoader{})
	err := m.Acquire(context.Background(), types.StageTranslation)
	if err == nil || !IsModelUnavailable(err) {
		t.Fatalf("expected model unavailable, got %v", err)
	}
	if st, _ := m.StageState(types.StageTranslation); st != StateFailed {
		t.Fatalf("expected failed got %s", st)
	}
	// A later acquire retries from scratch.
	tl.loadErr = nil
	if err := m.Acquire(context.Background(), types.StageTranslation); err != nil {
		t.Fatalf("retry acquire: %v", err)
	}
	if tl.loads != 2 {
		t.Fatalf("expected 2 load attempts got %d", tl.loads)
	}
}

func TestAcquireUnknownStage(t *testing.T) {
	m := NewWithConfig(ManagerConfig{})
	err := m.Acquire(context.Background(), types.StageEdit)
	if err == nil || !IsModelUnavailable(err) {
		t.Fatalf("expected model unavailable, got %v", err)
	}
}

func TestUnloadFreesEverything(t *testing.T) {
	tl, el := &fakeLoader{}, &fakeLoader{}
	m := newTestManager(0, tl, el)
	ctx := context.Background()
	if err := m.Acquire(ctx, types.StageEdit); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := m.Unload(types.StageEdit); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if got := m.UsedMB(); got != 0 {
		t.Fatalf("expected used 0 got %d", got)
	}
	if st, _ := m.StageState(types.StageEdit); st != StateUnloaded {
		t.Fatalf("expected unloaded got %s", st)
	}
}

func TestEventsRecordTransitions(t *testing.T) {
	pub := NewMemoryPublisher()
	tl, el := &fakeLoader{}, &fakeLoader{}
	m := NewWithConfig(ManagerConfig{
		Stages: map[types.Stage]StageBinding{
			types.StageTranslation: {Model: translatorModel(), Loader: tl},
			types.StageEdit:        {Model: editorModel(), Loader: el},
		},
		Publisher: pub,
	})
	ctx := context.Background()
	if err := m.Acquire(ctx, types.StageTranslation); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	m.Release(types.StageTranslation, Offload)

	var names []string
	for _, e := range pub.Events() {
		names = append(names, e.Name)
	}
	want := []string{"acquire_start", "acquire_done", "release_offload"}
	if len(names) != len(want) {
		t.Fatalf("expected %v got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("event %d: expected %s got %s", i, want[i], names[i])
		}
	}
}

func TestStatusSnapshot(t *testing.T) {
	tl, el := &fakeLoader{}, &fakeLoader{}
	m := newTestManager(16000, tl, el)
	if err := m.Acquire(context.Background(), types.StageEdit); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	st := m.Status()
	if st.BudgetMB != 16000 {
		t.Fatalf("budget: %d", st.BudgetMB)
	}
	if st.UsedMB != 6300 {
		t.Fatalf("used: %d", st.UsedMB)
	}
	if st.LoadsTotal != 1 {
		t.Fatalf("loads: %d", st.LoadsTotal)
	}
	if len(st.Handles) != 2 {
		t.Fatalf("handles: %d", len(st.Handles))
	}
	// Sorted by stage name: edit before translation.
	if st.Handles[0].Stage != "edit" || st.Handles[0].State != "resident" {
		t.Fatalf("unexpected first handle %+v", st.Handles[0])
	}
	if st.Handles[1].Stage != "translation" || st.Handles[1].State != "unloaded" {
		t.Fatalf("unexpected second handle %+v", st.Handles[1])
	}
}
