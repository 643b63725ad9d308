package pipeline

import (
	"log/slog"
	"sync"
)

// observerChannelBuffer bounds how many pending events a slow subscriber may
// accumulate before the oldest pending event is dropped.
const observerChannelBuffer = 32

// Observer receives the pipeline's event stream. A subscribed Observer's Emit
// runs on that subscriber's own drain goroutine, fed through a bounded
// buffer; while Emit is slow, the oldest pending events are dropped.
type Observer interface {
	Emit(Event)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) Emit(e Event) { f(e) }

// chanObserver fans an event stream out to a buffered channel, draining it on
// a dedicated goroutine so a slow consumer cannot stall the worker. Grounded
// on the teacher's trace.Tracer buffered-channel-plus-drain-goroutine shape.
type chanObserver struct {
	ch     chan Event
	next   Observer
	logger *slog.Logger

	dropOnce sync.Once
}

func newChanObserver(next Observer, logger *slog.Logger) *chanObserver {
	o := &chanObserver{ch: make(chan Event, observerChannelBuffer), next: next, logger: logger}
	go o.drain()
	return o
}

func (o *chanObserver) drain() {
	for e := range o.ch {
		o.next.Emit(e)
	}
}

func (o *chanObserver) Emit(e Event) {
	select {
	case o.ch <- e:
	default:
		select {
		case <-o.ch:
		default:
		}
		select {
		case o.ch <- e:
		default:
		}
		o.dropOnce.Do(func() {
			o.logger.Warn("observer channel full, dropped oldest pending event")
		})
	}
}

// observerSet fans events out to every subscribed observer, buffering each
// independently so one slow subscriber cannot block another or the worker.
type observerSet struct {
	mu        sync.Mutex
	observers []*chanObserver
	logger    *slog.Logger
}

func newObserverSet(logger *slog.Logger) *observerSet {
	if logger == nil {
		logger = slog.Default()
	}
	return &observerSet{logger: logger}
}

// Subscribe adds an observer to the set and returns an unsubscribe function.
func (s *observerSet) Subscribe(o Observer) (unsubscribe func()) {
	wrapped := newChanObserver(o, s.logger)
	s.mu.Lock()
	s.observers = append(s.observers, wrapped)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, w := range s.observers {
			if w == wrapped {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				close(w.ch)
				return
			}
		}
	}
}

// Emit fans e out to every current subscriber. Never blocks.
func (s *observerSet) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.observers {
		w.Emit(e)
	}
}
