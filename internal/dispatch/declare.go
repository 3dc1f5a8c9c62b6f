package dispatch

import (
	"errors"
	"fmt"

	"github.com/danmuck/mkvroute/internal/ebml"
)

var ErrKindAssertion = errors.New("dispatch: element does not match declared kind")

// Decl is one registration statement, applied to a Registry by Declare.
type Decl[C any] func(r *Registry[C]) error

// Case registers fn for the typed element T. The identifier and kind are
// taken once from T's zero value, so T must answer ID and Kind without
// being populated (pointer types with constant methods do).
func Case[T ebml.Element, C any](fn func(T, C) error) Decl[C] {
	var zero T
	if any(zero) == nil {
		return func(*Registry[C]) error {
			return fmt.Errorf("%w: %T has no zero-value identity", ErrInvalidEntry, zero)
		}
	}
	return CaseAs(zero.ID(), zero.Kind(), fn)
}

// CaseAs registers fn for elements with the given identifier that were
// decoded as kind. Elements reach fn already asserted to T.
func CaseAs[T ebml.Element, C any](id ebml.ID, kind ebml.Kind, fn func(T, C) error) Decl[C] {
	return func(r *Registry[C]) error {
		if fn == nil {
			return ErrNilHandler
		}
		return r.Insert(Entry[C]{ID: id, Kind: kind, Handler: trampoline(kind, fn)})
	}
}

// Fallback registers the default handler.
func Fallback[C any](fn func(ebml.Element, C) error) Decl[C] {
	return func(r *Registry[C]) error {
		if fn == nil {
			return ErrNilHandler
		}
		return r.SetDefault(fn)
	}
}

func trampoline[T ebml.Element, C any](kind ebml.Kind, fn func(T, C) error) Handler[C] {
	return func(el ebml.Element, ctx C) error {
		v, ok := el.(T)
		if !ok {
			return fmt.Errorf("%w: kind %s delivered %T", ErrKindAssertion, kind, el)
		}
		return fn(v, ctx)
	}
}

// Declare applies decls in order and stops at the first failure.
func (r *Registry[C]) Declare(decls ...Decl[C]) error {
	for _, d := range decls {
		if err := d(r); err != nil {
			return err
		}
	}
	return nil
}

// Build declares everything on a fresh registry and finalizes it.
func Build[C any](decls []Decl[C], opts ...TableOption) (*Table[C], error) {
	r := NewRegistry[C]()
	if err := r.Declare(decls...); err != nil {
		return nil, err
	}
	return r.Finalize(opts...), nil
}
