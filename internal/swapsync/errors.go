package swapsync

import "errors"

// Error kinds. Every error Run returns wraps exactly one of these.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrCursorRead    = errors.New("cursor read error")
	ErrUpstreamFetch = errors.New("upstream fetch error")
	ErrWrite         = errors.New("write error")
)

// ErrorKind returns a short label for err, used in metrics.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrCursorRead):
		return "cursor_read"
	case errors.Is(err, ErrUpstreamFetch):
		return "upstream_fetch"
	case errors.Is(err, ErrWrite):
		return "write"
	default:
		return "unknown"
	}
}
