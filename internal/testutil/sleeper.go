package testutil

import (
	"context"
	"sync"
	"time"
)

// RecordingSleeper records requested sleeps instead of waiting.
//
// It satisfies store.Sleeper, so retry tests observe the backoff schedule
// without spending wall-clock time.
//
// Thread-safety: all methods are safe for concurrent use.
type RecordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
	err    error
}

// NewRecordingSleeper creates a sleeper with no recorded sleeps.
func NewRecordingSleeper() *RecordingSleeper {
	return &RecordingSleeper{}
}

// FailWith makes every following Sleep record the duration and return err.
func (s *RecordingSleeper) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Sleep records d. It returns ctx.Err() when ctx is already done.
func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.err
}

// Sleeps returns a copy of the recorded durations, in call order.
func (s *RecordingSleeper) Sleeps() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.sleeps...)
}

// Total returns the sum of the recorded durations.
func (s *RecordingSleeper) Total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total time.Duration
	for _, d := range s.sleeps {
		total += d
	}
	return total
}

// Reset clears recorded sleeps and any configured error.
func (s *RecordingSleeper) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = nil
	s.err = nil
}
