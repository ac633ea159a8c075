// Package oprfstate holds the single shared piece of mutable state in the
// randomness oracle: the current PPOPRF key schedule, the epoch tag it is
// currently serving under, and the time of the next scheduled rotation.
//
// There is exactly one writer (the epoch scheduler) and many readers (the
// HTTP handlers), so the state is guarded by a sync.RWMutex rather than a
// channel or actor: readers never block each other, and the writer's
// critical sections are kept small (an epoch tick does O(1) puncture work).
package oprfstate

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gtank/ristretto255"

	"github.com/marmos91/star-randsrv/internal/ppoprf"
)

// Range is the closed, contiguous span of epoch tags the server is
// configured to serve: [First, Last].
type Range struct {
	First uint8
	Last  uint8
}

// Contains reports whether epoch falls within the range.
func (r Range) Contains(epoch uint8) bool {
	return epoch >= r.First && epoch <= r.Last
}

// epochs expands the range into the explicit slice ppoprf.New expects.
func (r Range) epochs() []uint8 {
	out := make([]uint8, 0, int(r.Last-r.First)+1)
	for e := r.First; ; e++ {
		out = append(out, e)
		if e == r.Last {
			break
		}
	}
	return out
}

// State is the shared cell: a PPOPRF server, the epoch it is currently
// keyed to answer under, and the time of the next rotation. The scheduler
// is the sole writer; handlers only ever take the read lock.
type State struct {
	mu            sync.RWMutex
	server        *ppoprf.Server
	epochRange    Range
	currentEpoch  uint8
	nextEpochTime *time.Time
}

// New builds a State freshly keyed over the full epoch range, with
// currentEpoch set to r.First. The caller (the scheduler, at startup) is
// responsible for catching the state up to wherever the wall clock says
// the schedule actually is before serving traffic.
func New(r Range) (*State, error) {
	if r.First > r.Last {
		return nil, fmt.Errorf("oprfstate: invalid range [%d, %d]", r.First, r.Last)
	}
	server, err := ppoprf.New(r.epochs())
	if err != nil {
		return nil, fmt.Errorf("oprfstate: keying server: %w", err)
	}
	return &State{
		server:       server,
		epochRange:   r,
		currentEpoch: r.First,
	}, nil
}

// View is a consistent, read-locked snapshot of the state: the epoch tag,
// next rotation time, and public key all come from the same instant, and
// Evaluate runs against the key schedule backing that instant.
type View struct {
	CurrentEpoch  uint8
	NextEpochTime *time.Time
	server        *ppoprf.Server
}

// PublicKey returns the encoded public commitment for this view's key
// schedule.
func (v View) PublicKey() []byte {
	return v.server.PublicKey()
}

// Evaluate computes the PPOPRF output for point under this view's current
// epoch. It returns ppoprf.ErrEpochPunctured if the epoch was punctured
// between the caller taking the read lock and calling Evaluate, which
// cannot happen: the read lock held for the lifetime of the view excludes
// the writer for as long as the view is in scope.
func (v View) Evaluate(point *ristretto255.Element) (*ristretto255.Element, error) {
	return v.server.Evaluate(point, v.CurrentEpoch)
}

// View runs fn with a read-locked snapshot of the state. fn must not retain
// the View past its return: the lock is released as soon as fn returns.
func (s *State) View(fn func(View)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(View{
		CurrentEpoch:  s.currentEpoch,
		NextEpochTime: s.nextEpochTime,
		server:        s.server,
	})
}

// Range returns the configured epoch range. It is fixed for the lifetime
// of the process and needs no locking.
func (s *State) Range() Range {
	return s.epochRange
}

// SetNextEpochTime records when the scheduler expects the next rotation to
// happen. Handlers read it back via View.NextEpochTime.
func (s *State) SetNextEpochTime(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEpochTime = &t
}

// CatchUp punctures every epoch in [s.Range().First, target) in ascending
// order and advances currentEpoch to target, in a single write-locked
// critical section. Used once at startup to fast-forward a freshly-keyed
// server to wherever the wall clock says the schedule already is.
func (s *State) CatchUp(target uint8) error {
	if !s.epochRange.Contains(target) {
		return fmt.Errorf("oprfstate: catch-up target %d out of range %v", target, s.epochRange)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for e := s.currentEpoch; e != target; e++ {
		if err := s.server.Puncture(e); err != nil {
			return fmt.Errorf("oprfstate: catch-up puncturing epoch %d: %w", e, err)
		}
	}
	s.currentEpoch = target
	return nil
}

// ErrFullyRotated is returned by Advance to tell the caller it replaced the
// key schedule with a brand-new one rather than simply moving to the next
// epoch in range, so the caller can log it distinctly.
var ErrFullyRotated = errors.New("oprfstate: epoch range exhausted, rekeyed from first_epoch")

// Advance punctures the current epoch and moves to the next one. If the
// current epoch is the last one in range, it instead rekeys the server
// from scratch and restarts at First, returning ErrFullyRotated (not a
// failure — the scheduler logs it and keeps running).
func (s *State) Advance() (newEpoch uint8, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.currentEpoch
	if err := s.server.Puncture(old); err != nil {
		return 0, fmt.Errorf("oprfstate: puncturing epoch %d: %w", old, err)
	}

	if old < s.epochRange.Last {
		s.currentEpoch = old + 1
		return s.currentEpoch, nil
	}

	fresh, err := ppoprf.New(s.epochRange.epochs())
	if err != nil {
		return 0, fmt.Errorf("oprfstate: rekeying after full rotation: %w", err)
	}
	s.server = fresh
	s.currentEpoch = s.epochRange.First
	return s.currentEpoch, ErrFullyRotated
}
