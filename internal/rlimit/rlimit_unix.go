//go:build !windows

// Package rlimit raises the process's open-file-descriptor limit, behind
// the increase_nofile_limit configuration flag.
package rlimit

import "golang.org/x/sys/unix"

// RaiseNofile raises RLIMIT_NOFILE to its hard ceiling and returns the
// resulting (soft, hard) limit.
func RaiseNofile() (cur, max uint64, err error) {
	var limit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &limit); err != nil {
		return 0, 0, err
	}
	limit.Cur = limit.Max
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &limit); err != nil {
		return 0, 0, err
	}
	return limit.Cur, limit.Max, nil
}
