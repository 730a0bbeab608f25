package errors

import sterrors "errors"

var (
	ErrQueueFull          = sterrors.New("floodgate: queue is full")
	ErrDisposed           = sterrors.New("floodgate: queue is disposed")
	ErrProcessorRequired  = sterrors.New("floodgate: processor function is required")
	ErrConfigRequired     = sterrors.New("floodgate: configuration is required")
	ErrSourceRequired     = sterrors.New("floodgate: source system is required")
	ErrSinkRequired       = sterrors.New("floodgate: sink queue is required")
	ErrMiddlewareRequired = sterrors.New("floodgate: middleware registration requires Middleware or Builder")
)

// ConfigValidationError wraps configuration problems detected at construction
// so callers can fail fast instead of discovering a bad queue at runtime.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "floodgate: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError wraps err in a ConfigValidationError. A nil err
// returns nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}
