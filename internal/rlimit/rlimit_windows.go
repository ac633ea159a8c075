//go:build windows

package rlimit

import "errors"

// ErrUnsupported is returned by RaiseNofile on platforms without an
// RLIMIT_NOFILE concept.
var ErrUnsupported = errors.New("rlimit: raising the file descriptor limit is not supported on this platform")

// RaiseNofile is a no-op on Windows, which has no RLIMIT_NOFILE concept.
func RaiseNofile() (cur, max uint64, err error) {
	return 0, 0, ErrUnsupported
}
