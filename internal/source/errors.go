package source

import "errors"

// Every error returned by this package wraps one of these. All of them are
// recoverable: the caller is expected to retry on its next poll.
var (
	ErrTransport = errors.New("transport error")
	ErrStatus    = errors.New("unexpected status")
	ErrNotFound  = errors.New("progress value not found")
	ErrValue     = errors.New("invalid progress value")
)

// Kind names the category of a source error for logs and metrics.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrStatus):
		return "status"
	case errors.Is(err, ErrNotFound):
		return "extract"
	case errors.Is(err, ErrValue):
		return "value"
	default:
		return "unknown"
	}
}
