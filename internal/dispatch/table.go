package dispatch

import (
	"sort"

	"github.com/danmuck/mkvroute/internal/ebml"
)

// Outcome is how a Send call was resolved.
type Outcome int

const (
	OutcomeUnhandled Outcome = iota
	OutcomeMatched
	OutcomeDefault
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatched:
		return "matched"
	case OutcomeDefault:
		return "default"
	default:
		return "unhandled"
	}
}

// Observer is told how each Send resolved, before any handler runs.
// Implementations must be safe for concurrent use if the table is shared.
type Observer interface {
	Observe(el ebml.Element, outcome Outcome)
}

type ObserverFunc func(el ebml.Element, outcome Outcome)

func (f ObserverFunc) Observe(el ebml.Element, outcome Outcome) { f(el, outcome) }

type tableOptions struct {
	observer Observer
}

type TableOption func(*tableOptions)

func WithObserver(o Observer) TableOption {
	return func(opts *tableOptions) { opts.observer = o }
}

// Table is a finalized, read-only dispatch table.
type Table[C any] struct {
	entries  []Entry[C]
	fallback Handler[C]
	opts     tableOptions
}

// Send routes el to the handler registered for its identifier and kind, or
// to the default handler. It reports whether any handler ran. At most one
// handler runs per call; its error is returned as-is. A nil el goes straight
// to the default handler.
func (t *Table[C]) Send(el ebml.Element, ctx C) (bool, error) {
	if el != nil {
		if h := t.lookup(el.ID(), el.Kind()); h != nil {
			t.observe(el, OutcomeMatched)
			return true, h(el, ctx)
		}
	}
	if t.fallback == nil {
		t.observe(el, OutcomeUnhandled)
		return false, nil
	}
	t.observe(el, OutcomeDefault)
	return true, t.fallback(el, ctx)
}

func (t *Table[C]) lookup(id ebml.ID, kind ebml.Kind) Handler[C] {
	i := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].ID.Compare(id) >= 0
	})
	for ; i < len(t.entries) && t.entries[i].ID.Equal(id); i++ {
		if t.entries[i].Kind == kind {
			return t.entries[i].Handler
		}
	}
	return nil
}

func (t *Table[C]) observe(el ebml.Element, outcome Outcome) {
	if t.opts.observer != nil {
		t.opts.observer.Observe(el, outcome)
	}
}

// Len reports the number of specific entries; the default handler is not counted.
func (t *Table[C]) Len() int { return len(t.entries) }

// HasDefault reports whether unmatched elements reach a default handler.
func (t *Table[C]) HasDefault() bool { return t.fallback != nil }

// Entries returns the entries in lookup order.
func (t *Table[C]) Entries() []Entry[C] {
	out := make([]Entry[C], len(t.entries))
	copy(out, t.entries)
	return out
}
