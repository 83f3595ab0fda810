package preference

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type job func(ctx context.Context)

// sequencer runs jobs one at a time in submission order on a single
// goroutine. The queue is unbounded so Submit never blocks; callers include
// the native read goroutine, which must keep draining while a job waits on
// a native response.
type sequencer struct {
	mu     sync.Mutex
	queue  []job
	closed bool

	wake chan struct{}
	done chan struct{}
}

func newSequencer() *sequencer {
	return &sequencer{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Submit queues j. It returns false once the sequencer is closing.
func (s *sequencer) Submit(j job) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, j)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// Run processes jobs until Close, then drains what is left.
// It must run in exactly one goroutine.
func (s *sequencer) Run(ctx context.Context) {
	defer close(s.done)

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			if s.closed {
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
			<-s.wake
			continue
		}
		j := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.exec(ctx, j)
	}
}

func (s *sequencer) exec(ctx context.Context, j job) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Preference job panic recovered", slog.String("panic", fmt.Sprint(r)))
		}
	}()
	j(ctx)
}

// Flush waits until every job submitted before it has run. Submit keeps
// working meanwhile.
func (s *sequencer) Flush() {
	done := make(chan struct{})
	if !s.Submit(func(context.Context) { close(done) }) {
		return
	}
	<-done
}

// Close stops accepting jobs and waits until the queue is drained.
func (s *sequencer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	<-s.done
}
