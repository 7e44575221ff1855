package voice

import (
	"sync"
	"time"
)

// Fragment is one scheduled reply chunk. Times are offsets on the session clock.
type Fragment struct {
	ID       string
	StartAt  time.Duration
	Duration time.Duration
}

// PlaybackScheduler places reply fragments back to back and tracks which are
// still playing.
type PlaybackScheduler struct {
	mu             sync.Mutex
	scheduledUntil time.Duration
	pending        []string
}

// NewPlaybackScheduler returns an idle scheduler.
func NewPlaybackScheduler() *PlaybackScheduler {
	return &PlaybackScheduler{}
}

// Schedule starts the fragment at max(scheduledUntil, now) and advances the
// cursor by its duration.
func (s *PlaybackScheduler) Schedule(id string, duration, now time.Duration) Fragment {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.scheduledUntil
	if now > start {
		start = now
	}
	s.scheduledUntil = start + duration
	s.pending = append(s.pending, id)
	return Fragment{ID: id, StartAt: start, Duration: duration}
}

// Ended removes a finished fragment and reports whether anything is still playing.
func (s *PlaybackScheduler) Ended(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, pending := range s.pending {
		if pending == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	return len(s.pending) > 0
}

// Interrupt stops everything: it returns the pending ids in schedule order,
// clears them and rewinds the cursor to zero.
func (s *PlaybackScheduler) Interrupt() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	stopped := s.pending
	s.pending = nil
	s.scheduledUntil = 0
	if stopped == nil {
		stopped = []string{}
	}
	return stopped
}

// Speaking reports whether any fragment is pending.
func (s *PlaybackScheduler) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

// ScheduledUntil is the end of the last scheduled fragment.
func (s *PlaybackScheduler) ScheduledUntil() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduledUntil
}
