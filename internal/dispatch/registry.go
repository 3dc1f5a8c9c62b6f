package dispatch

import (
	"errors"
	"fmt"
	"sort"

	"github.com/danmuck/mkvroute/internal/ebml"
	"github.com/rs/zerolog/log"
)

var (
	ErrFinalized      = errors.New("dispatch: registry already finalized")
	ErrDuplicateEntry = errors.New("dispatch: duplicate entry")
	ErrDefaultExists  = errors.New("dispatch: default handler already set")
	ErrNilHandler     = errors.New("dispatch: nil handler")
	ErrInvalidEntry   = errors.New("dispatch: entry has no identifier")
)

// Handler consumes one element. Its error is returned from Send unchanged.
type Handler[C any] func(el ebml.Element, ctx C) error

// Entry binds an (identifier, kind) pair to a handler.
type Entry[C any] struct {
	ID      ebml.ID
	Kind    ebml.Kind
	Handler Handler[C]
}

// DuplicateEntryError reports a second registration of the same pair.
type DuplicateEntryError struct {
	ID   ebml.ID
	Kind ebml.Kind
}

func (e DuplicateEntryError) Error() string {
	return fmt.Sprintf("dispatch: duplicate entry id=%s kind=%s", e.ID, e.Kind)
}

func (e DuplicateEntryError) Unwrap() error { return ErrDuplicateEntry }

type entryKey struct {
	length int
	value  uint32
	kind   ebml.Kind
}

// Registry collects entries during setup. It is not safe for concurrent use.
type Registry[C any] struct {
	entries   []Entry[C]
	seen      map[entryKey]struct{}
	fallback  Handler[C]
	finalized bool
}

// NewRegistry returns an empty, unfinalized registry.
func NewRegistry[C any]() *Registry[C] {
	return &Registry[C]{seen: make(map[entryKey]struct{})}
}

// Insert appends e. Duplicate (ID, Kind) pairs are rejected here so that
// lookup never has to pick between them.
func (r *Registry[C]) Insert(e Entry[C]) error {
	if r.finalized {
		return ErrFinalized
	}
	if e.Handler == nil {
		return ErrNilHandler
	}
	if e.ID.IsZero() {
		return ErrInvalidEntry
	}
	key := entryKey{length: e.ID.Len(), value: e.ID.Value(), kind: e.Kind}
	if _, ok := r.seen[key]; ok {
		log.Debug().Str("id", e.ID.String()).Str("kind", e.Kind.String()).Msg("dispatch.Insert duplicate")
		return DuplicateEntryError{ID: e.ID, Kind: e.Kind}
	}
	r.seen[key] = struct{}{}
	r.entries = append(r.entries, e)
	return nil
}

// SetDefault registers the fallback used when no entry matches.
func (r *Registry[C]) SetDefault(h Handler[C]) error {
	if r.finalized {
		return ErrFinalized
	}
	if h == nil {
		return ErrNilHandler
	}
	if r.fallback != nil {
		return ErrDefaultExists
	}
	r.fallback = h
	return nil
}

// Len reports how many entries have been inserted.
func (r *Registry[C]) Len() int { return len(r.entries) }

// Finalize sorts the entries and freezes the registry. Entries sharing an
// identifier keep their insertion order. Calling Finalize again returns an
// equivalent table.
func (r *Registry[C]) Finalize(opts ...TableOption) *Table[C] {
	r.finalized = true
	entries := make([]Entry[C], len(r.entries))
	copy(entries, r.entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ID.Compare(entries[j].ID) < 0
	})

	t := &Table[C]{entries: entries, fallback: r.fallback}
	for _, opt := range opts {
		opt(&t.opts)
	}
	log.Debug().
		Int("entries", len(entries)).
		Bool("default", r.fallback != nil).
		Msg("dispatch.Finalize")
	return t
}
