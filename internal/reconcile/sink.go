package reconcile

import (
	"sync"
	"sync/atomic"
)

// DefaultSinkBuffer is the channel size used when NewAsyncSink gets a
// non-positive buffer.
const DefaultSinkBuffer = 256

// AsyncSink delivers events to a consumer on its own goroutine so the run
// loop never waits on a slow consumer for informational events. Item end
// and terminal events are always delivered; item start and phase events
// are dropped while the buffer is full.
type AsyncSink struct {
	ch      chan ProgressEvent
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	once    sync.Once
	dropped atomic.Int64
}

// NewAsyncSink starts the delivery goroutine and returns the function to
// pass to Engine.Run together with a stop function. stop flushes pending
// events, waits for the consumer and is safe to call more than once.
func NewAsyncSink(sink ProgressFunc, buffer int) (ProgressFunc, func()) {
	s := StartAsyncSink(sink, buffer)
	return s.Send, s.Stop
}

// StartAsyncSink is NewAsyncSink returning the sink itself, for callers that
// want the drop counter.
func StartAsyncSink(sink ProgressFunc, buffer int) *AsyncSink {
	if buffer <= 0 {
		buffer = DefaultSinkBuffer
	}
	s := &AsyncSink{
		ch:   make(chan ProgressEvent, buffer),
		done: make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		for ev := range s.ch {
			if sink != nil {
				sink(ev)
			}
		}
	}()
	return s
}

// Send queues ev. Events sent after Stop are discarded.
func (s *AsyncSink) Send(ev ProgressEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}

	if ev.ItemEnd() || ev.Phase.Terminal() {
		s.ch <- ev
		return
	}
	select {
	case s.ch <- ev:
	default:
		s.dropped.Add(1)
	}
}

// Stop closes the queue and waits until every queued event was delivered.
func (s *AsyncSink) Stop() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
	<-s.done
}

// Dropped returns how many events were discarded because the buffer was full.
func (s *AsyncSink) Dropped() int64 {
	return s.dropped.Load()
}
