// Package scheduler runs the epoch rotation loop: the single background
// task that owns write access to the oprfstate cell and is responsible for
// puncturing expired epochs on schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/marmos91/star-randsrv/internal/logger"
	"github.com/marmos91/star-randsrv/internal/metrics"
	"github.com/marmos91/star-randsrv/internal/oprfstate"
)

// Config carries the pieces of the server configuration the scheduler needs.
type Config struct {
	// EpochSeconds is the duration of one epoch.
	EpochSeconds uint32

	// BaseTime anchors the schedule. If nil, the scheduler uses its own
	// start time, i.e. the process always begins at first_epoch.
	BaseTime *time.Time
}

// Run derives where in the epoch schedule the process should start,
// catches the state up to that point, and then loops forever puncturing
// and advancing epochs on the configured interval. It returns nil if ctx
// is cancelled, or a non-nil error for any condition the design treats as
// fatal (lock-step schedule overflow, a puncture failure, a rekey
// failure). Callers must treat a non-nil error as a reason to abort the
// process: continuing to serve after one of these failures risks serving
// under a key whose forward-secrecy guarantee no longer holds.
//
// m may be nil (as in tests); when non-nil, Run publishes the current
// epoch gauge and increments the rotation counter on every epoch change.
func Run(ctx context.Context, state *oprfstate.State, cfg Config, m *metrics.Metrics) error {
	interval := time.Duration(cfg.EpochSeconds) * time.Second
	logger.Info("rotating epoch on a timer", "interval_seconds", cfg.EpochSeconds)

	startTime := time.Now().UTC()
	base := startTime
	if cfg.BaseTime != nil {
		base = cfg.BaseTime.UTC()
	}
	logger.Info("epoch base time", "base_time", base.Format(time.RFC3339))

	current, nextRotation, err := deriveSchedule(base, startTime, interval, state.Range())
	if err != nil {
		return err
	}

	if current != state.Range().First {
		logger.Info("puncturing obsolete epochs to match base time",
			logger.KeyEpoch, current)
		if err := state.CatchUp(current); err != nil {
			return err
		}
	}
	logger.Info("epoch now", logger.KeyEpoch, current)
	if m != nil {
		m.SetCurrentEpoch(current)
	}

	for {
		state.SetNextEpochTime(nextRotation.Truncate(time.Second))

		if sleepDur := time.Until(nextRotation); sleepDur > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(sleepDur):
			}
		} else {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
		}
		nextRotation = nextRotation.Add(interval)

		newEpoch, err := state.Advance()
		if err != nil && !errors.Is(err, oprfstate.ErrFullyRotated) {
			return err
		}
		if errors.Is(err, oprfstate.ErrFullyRotated) {
			logger.Info("epochs exhausted, rekeyed from first_epoch")
		}
		logger.Info("epoch now", logger.KeyEpoch, newEpoch)
		if m != nil {
			m.SetCurrentEpoch(newEpoch)
			m.IncRotations()
		}
	}
}

// deriveSchedule computes where within the epoch range the process should
// begin serving, and when the next rotation boundary falls, given the
// schedule's base time and the process's own start time.
//
//	elapsed = floor((now - base) / interval)
//	offset  = elapsed mod |range|
//	current = range.First + offset
//	next    = base + interval * (elapsed + 1)
func deriveSchedule(base, now time.Time, interval time.Duration, r oprfstate.Range) (current uint8, nextRotation time.Time, err error) {
	if now.Before(base) {
		return 0, time.Time{}, fmt.Errorf("scheduler: epoch_base_time %s is in the future relative to process start %s", base, now)
	}

	elapsed := int64(now.Sub(base) / interval)
	if elapsed < 0 || elapsed > math.MaxUint32 {
		return 0, time.Time{}, fmt.Errorf("scheduler: elapsed epoch count %d does not fit in 32 bits", elapsed)
	}

	span := int64(r.Last) - int64(r.First) + 1
	offset := elapsed % span
	current = r.First + uint8(offset)
	nextRotation = base.Add(interval * time.Duration(elapsed+1))
	return current, nextRotation, nil
}
