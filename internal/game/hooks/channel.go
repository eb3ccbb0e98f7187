package hooks

import (
	"sync"
)

// Handle identifies one registration so it can be removed later.
type Handle int

// WaterfallHandler receives the value returned by the previous handler and the
// shared context, and returns the value for the next one. A handler that does
// not apply must return acc unchanged.
type WaterfallHandler[A any, C any] func(acc A, ctx C) A

type waterfallEntry[A any, C any] struct {
	handle Handle
	owner  string
	fn     WaterfallHandler[A, C]
}

// Waterfall is a named channel whose handlers run in registration order, each
// transforming the accumulator produced by the one before it.
type Waterfall[A any, C any] struct {
	name string

	mu         sync.RWMutex
	entries    []waterfallEntry[A, C]
	nextHandle Handle
}

// NewWaterfall creates an empty waterfall channel.
func NewWaterfall[A any, C any](name string) *Waterfall[A, C] {
	return &Waterfall[A, C]{name: name}
}

// Name returns the channel name.
func (w *Waterfall[A, C]) Name() string {
	return w.name
}

// Register appends a handler under owner and returns its handle.
func (w *Waterfall[A, C]) Register(owner string, fn WaterfallHandler[A, C]) Handle {
	if fn == nil {
		return -1
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	handle := w.nextHandle
	w.nextHandle++
	w.entries = append(w.entries, waterfallEntry[A, C]{handle: handle, owner: owner, fn: fn})
	return handle
}

// Unregister removes the handler identified by handle.
func (w *Waterfall[A, C]) Unregister(handle Handle) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.entries {
		if w.entries[i].handle == handle {
			w.entries = append(w.entries[:i], w.entries[i+1:]...)
			return
		}
	}
}

// UnregisterOwner removes every handler registered by owner.
func (w *Waterfall[A, C]) UnregisterOwner(owner string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	kept := w.entries[:0]
	removed := 0
	for _, e := range w.entries {
		if e.owner == owner {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	w.entries = kept
	return removed
}

// Owners returns the owner of every handler in execution order.
func (w *Waterfall[A, C]) Owners() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	owners := make([]string, len(w.entries))
	for i, e := range w.entries {
		owners[i] = e.owner
	}
	return owners
}

// Len returns the number of registered handlers.
func (w *Waterfall[A, C]) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entries)
}

// Run threads initial through every handler in registration order and returns
// the final accumulator. Handlers run synchronously to completion.
func (w *Waterfall[A, C]) Run(initial A, ctx C) A {
	w.mu.RLock()
	entries := make([]waterfallEntry[A, C], len(w.entries))
	copy(entries, w.entries)
	w.mu.RUnlock()

	acc := initial
	for _, e := range entries {
		acc = e.fn(acc, ctx)
	}
	return acc
}

// SeriesHandler reacts to a side-effecting event.
type SeriesHandler[C any] func(ctx C)

type seriesEntry[C any] struct {
	handle   Handle
	owner    string
	category string
	fn       SeriesHandler[C]
}

// Series is a named side-effect channel. Handlers may be filtered by a category
// tag so they only run for matching sub-events.
type Series[C any] struct {
	name string

	mu         sync.RWMutex
	entries    []seriesEntry[C]
	nextHandle Handle
}

// NewSeries creates an empty side-effect channel.
func NewSeries[C any](name string) *Series[C] {
	return &Series[C]{name: name}
}

// Name returns the channel name.
func (s *Series[C]) Name() string {
	return s.name
}

// Register appends a handler that runs for every event on the channel.
func (s *Series[C]) Register(owner string, fn SeriesHandler[C]) Handle {
	return s.RegisterFor(owner, "", fn)
}

// RegisterFor appends a handler that only runs for events tagged category.
// An empty category matches everything.
func (s *Series[C]) RegisterFor(owner, category string, fn SeriesHandler[C]) Handle {
	if fn == nil {
		return -1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	handle := s.nextHandle
	s.nextHandle++
	s.entries = append(s.entries, seriesEntry[C]{handle: handle, owner: owner, category: category, fn: fn})
	return handle
}

// Unregister removes the handler identified by handle.
func (s *Series[C]) Unregister(handle Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].handle == handle {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

// UnregisterOwner removes every handler registered by owner.
func (s *Series[C]) UnregisterOwner(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if e.owner == owner {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed
}

// Owners returns the owner of every handler in execution order.
func (s *Series[C]) Owners() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owners := make([]string, len(s.entries))
	for i, e := range s.entries {
		owners[i] = e.owner
	}
	return owners
}

// Len returns the number of registered handlers.
func (s *Series[C]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Run invokes every unfiltered handler in registration order.
func (s *Series[C]) Run(ctx C) {
	s.RunCategory("", ctx)
}

// RunCategory invokes, in registration order, the unfiltered handlers and the
// handlers registered for category.
func (s *Series[C]) RunCategory(category string, ctx C) {
	s.mu.RLock()
	entries := make([]seriesEntry[C], len(s.entries))
	copy(entries, s.entries)
	s.mu.RUnlock()

	for _, e := range entries {
		if e.category != "" && e.category != category {
			continue
		}
		e.fn(ctx)
	}
}
