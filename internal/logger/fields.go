package logger

import "log/slog"

// Standard field keys for structured logging across the HTTP and scheduler
// paths. Keep log statements consistent so aggregation/querying works
// without per-call key typos.
const (
	KeyRequestID  = "request_id"
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyStatus     = "status"
	KeyDurationMs = "duration_ms"
	KeyEpoch      = "epoch"
	KeyPoints     = "points"
	KeyError      = "error"
)

// Err returns a slog.Attr for an error, or a zero-value attr for nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
