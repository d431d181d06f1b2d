// Package lifecycle decides which stage model may hold accelerator memory
// at any moment. It owns every load/restore/offload/unload transition and
// enforces the configured VRAM budget. Files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: HandleState, ReleasePolicy, Handle, Loader, WeightsSource.
//   - errors.go: error types and helpers (IsModelUnavailable, IsOutOfMemory).
//   - acquire.go: Acquire/Release/Unload transitions and budget accounting.
//   - events.go: Event and EventPublisher.
//   - eventpub_memory.go: in-memory publisher for tests.
//   - status.go: Status reporting.
//
// Stage components never hold device-resident state themselves: they ask
// the manager for a ready handle around one inference call and give it
// back with a release policy. The manager serializes all transitions; it
// assumes a single coordinator per session and does not support
// concurrent acquisition by independent callers.
package lifecycle
