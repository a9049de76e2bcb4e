// Package playback renders a stream of arriving audio buffers as gapless
// sequential output. A single monotonic cursor marks where the next buffer
// must begin; every scheduled buffer is tracked until it finishes so an
// interruption can cancel all of it at once.
package playback

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zera-labs/zera-server/internal/audio"
)

// Clock reports the current position on the output timeline in seconds.
// The real implementation follows the wall clock from scheduler creation.
type Clock interface {
	Now() float64
}

type wallClock struct {
	epoch time.Time
}

func (c wallClock) Now() float64 {
	return time.Since(c.epoch).Seconds()
}

// Timer is a cancelable completion callback handle
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. Injected so tests control completion.
type AfterFunc func(d time.Duration, f func()) Timer

type stdTimer struct {
	t *time.Timer
}

func (s stdTimer) Stop() bool { return s.t.Stop() }

func stdAfterFunc(d time.Duration, f func()) Timer {
	return stdTimer{t: time.AfterFunc(d, f)}
}

// Scheduled is one buffer placed on the output timeline, delivered to the
// sink in schedule order.
type Scheduled struct {
	Buffer audio.Buffer
	// Start is the output-timeline position the buffer begins at, seconds.
	Start float64
}

// Sink receives scheduled buffers and stop notifications. StopAll is called
// on interruption, before the active set is cleared.
type Sink interface {
	Play(s Scheduled)
	StopAll()
}

type source struct {
	timer Timer
}

// Scheduler owns the playback cursor and the active-source set. Schedule
// and Interrupt may be called from any goroutine; calls are serialized by
// an internal mutex.
type Scheduler struct {
	clock  Clock
	after  AfterFunc
	sink   Sink
	logger *zap.Logger

	mu     sync.Mutex
	next   float64 // end of the last scheduled buffer
	active map[*source]struct{}
}

// NewScheduler creates a scheduler over the given sink using the wall
// clock and real completion timers.
func NewScheduler(sink Sink, logger *zap.Logger) *Scheduler {
	return NewSchedulerWithClock(sink, wallClock{epoch: time.Now()}, stdAfterFunc, logger)
}

// NewSchedulerWithClock creates a scheduler with an injected clock and
// timer factory. Used by tests.
func NewSchedulerWithClock(sink Sink, clock Clock, after AfterFunc, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		clock:  clock,
		after:  after,
		sink:   sink,
		logger: logger,
		active: make(map[*source]struct{}),
	}
}

// Schedule places buf on the output timeline. The start time is
// max(cursor, clock now): buffers arriving faster than real time queue up
// back to back, while a late arrival starts immediately. The cursor
// advances by the buffer's duration.
func (s *Scheduler) Schedule(buf audio.Buffer) Scheduled {
	s.mu.Lock()

	now := s.clock.Now()
	start := s.next
	if now > start {
		start = now
	}
	s.next = start + buf.Duration()

	src := &source{}
	s.active[src] = struct{}{}

	finishIn := time.Duration((s.next - now) * float64(time.Second))
	src.timer = s.after(finishIn, func() {
		s.mu.Lock()
		delete(s.active, src)
		s.mu.Unlock()
	})

	scheduled := Scheduled{Buffer: buf, Start: start}
	s.mu.Unlock()

	s.sink.Play(scheduled)

	s.logger.Debug("scheduled audio buffer",
		zap.Float64("start", scheduled.Start),
		zap.Float64("duration", buf.Duration()))
	return scheduled
}

// Interrupt stops every active source, empties the set, and resets the
// cursor to zero so the next buffer starts relative to the current clock.
// Buffered-but-unplayed audio is discarded.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	stopped := len(s.active)
	for src := range s.active {
		if src.timer != nil {
			src.timer.Stop()
		}
		delete(s.active, src)
	}
	s.next = 0
	s.mu.Unlock()

	s.sink.StopAll()

	s.logger.Info("playback interrupted", zap.Int("sources_stopped", stopped))
}

// ActiveCount returns the number of scheduled-but-unfinished sources
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Cursor returns the current value of the playback cursor in seconds
func (s *Scheduler) Cursor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
