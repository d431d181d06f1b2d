package pipeline

// busyError signals that another request is in flight past the wait window
// (maps to 429).
type busyError struct{}

func (busyError) Error() string { return "pipeline busy: a request is already in flight" }

// ErrBusy constructs a busyError.
func ErrBusy() error { return busyError{} }

// IsBusy reports whether err indicates the single in-flight slot was taken.
func IsBusy(err error) bool {
	_, ok := err.(busyError)
	return ok
}

// invalidRequestError signals a malformed EditRequest (maps to 400).
type invalidRequestError struct{ msg string }

func (e invalidRequestError) Error() string { return "invalid request: " + e.msg }

// ErrInvalidRequest constructs an invalidRequestError.
func ErrInvalidRequest(msg string) error { return invalidRequestError{msg: msg} }

// IsInvalidRequest reports whether err indicates a malformed request.
func IsInvalidRequest(err error) bool {
	_, ok := err.(invalidRequestError)
	return ok
}

// noHistoryError signals a refine with no previous result to chain from.
type noHistoryError struct{}

func (noHistoryError) Error() string { return "no previous result to refine" }

// ErrNoHistory constructs a noHistoryError.
func ErrNoHistory() error { return noHistoryError{} }

// IsNoHistory reports whether err indicates an empty session history.
func IsNoHistory(err error) bool {
	_, ok := err.(noHistoryError)
	return ok
}
