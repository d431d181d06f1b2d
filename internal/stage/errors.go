package stage

// translationFailedError signals that stage 1 produced no usable directives.
type translationFailedError struct{ msg string }

func (e translationFailedError) Error() string { return "translation failed: " + e.msg }

// ErrTranslationFailed constructs a translationFailedError.
func ErrTranslationFailed(msg string) error { return translationFailedError{msg: msg} }

// IsTranslationFailed reports whether err indicates unusable stage-1 output.
func IsTranslationFailed(err error) bool {
	_, ok := err.(translationFailedError)
	return ok
}

// editFailedError signals that stage 2 failed to produce an image.
type editFailedError struct{ msg string }

func (e editFailedError) Error() string { return "edit failed: " + e.msg }

// ErrEditFailed constructs an editFailedError.
func ErrEditFailed(msg string) error { return editFailedError{msg: msg} }

// IsEditFailed reports whether err indicates a failed edit render.
func IsEditFailed(err error) bool {
	_, ok := err.(editFailedError)
	return ok
}
