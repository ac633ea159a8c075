//go:build !windows

package rlimit

import "testing"

func TestRaiseNofile_ReturnsNonZeroLimits(t *testing.T) {
	cur, max, err := RaiseNofile()
	if err != nil {
		t.Fatalf("RaiseNofile: %v", err)
	}
	if cur == 0 || max == 0 {
		t.Fatalf("expected non-zero limits, got cur=%d max=%d", cur, max)
	}
	if cur != max {
		t.Fatalf("expected soft limit to be raised to the hard ceiling, got cur=%d max=%d", cur, max)
	}
}
