package lifecycle

import "autoedit/pkg/types"

// modelUnavailableError signals that a stage model could not be brought to
// a usable state (missing weights, incompatible accelerator, load failure).
type modelUnavailableError struct {
	stage types.Stage
	msg   string
}

func (e modelUnavailableError) Error() string {
	return "model unavailable for " + string(e.stage) + " stage: " + e.msg
}

// ErrModelUnavailable constructs a modelUnavailableError tagged with the
// failing stage.
func ErrModelUnavailable(stage types.Stage, msg string) error {
	return modelUnavailableError{stage: stage, msg: msg}
}

// IsModelUnavailable reports whether err indicates an unusable stage model.
func IsModelUnavailable(err error) bool {
	_, ok := err.(modelUnavailableError)
	return ok
}

// outOfMemoryError signals accelerator memory exhaustion. Callers should
// advise reducing the input size rather than retrying immediately.
type outOfMemoryError struct {
	stage types.Stage
	msg   string
}

func (e outOfMemoryError) Error() string {
	return "out of accelerator memory in " + string(e.stage) + " stage: " + e.msg
}

// ErrOutOfMemory constructs an outOfMemoryError tagged with the stage that
// exhausted the budget.
func ErrOutOfMemory(stage types.Stage, msg string) error {
	return outOfMemoryError{stage: stage, msg: msg}
}

// IsOutOfMemory reports whether err indicates accelerator memory exhaustion.
func IsOutOfMemory(err error) bool {
	_, ok := err.(outOfMemoryError)
	return ok
}

// StageOf returns the stage a lifecycle error is tagged with, if any.
func StageOf(err error) (types.Stage, bool) {
	switch e := err.(type) {
	case modelUnavailableError:
		return e.stage, true
	case outOfMemoryError:
		return e.stage, true
	}
	return "", false
}
