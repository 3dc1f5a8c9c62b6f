// Package probe walks a matroska stream and routes every element through a
// dispatch table into a Session.
//
// Ownership boundary:
// - drives traversal: reads, materializes, sends, skips
// - owns the Session handlers write to
// - never decodes payloads itself; handlers use the ebml accessors
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/mkvroute/internal/dispatch"
	"github.com/danmuck/mkvroute/internal/ebml"
	"github.com/rs/zerolog"
)

type Options struct {
	Limits ebml.Limits
	// SkipUnknownMasters discards the children of masters no handler claimed.
	SkipUnknownMasters bool
	Catalog            *ebml.Catalog
}

func DefaultOptions() Options {
	return Options{
		Limits:             ebml.DefaultLimits(),
		SkipUnknownMasters: true,
		Catalog:            ebml.Matroska,
	}
}

// ElementError reports a handler failure with the element that caused it.
type ElementError struct {
	ID     ebml.ID
	Offset int64
	Err    error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("probe: %s at offset %d: %v", e.ID, e.Offset, e.Err)
}

func (e *ElementError) Unwrap() error { return e.Err }

type Prober struct {
	table  *dispatch.Table[*Session]
	opts   Options
	logger zerolog.Logger
}

func New(table *dispatch.Table[*Session], opts Options, logger zerolog.Logger) *Prober {
	if opts.Catalog == nil {
		opts.Catalog = ebml.Matroska
	}
	if opts.Limits.MaxPayloadBytes == 0 {
		opts.Limits = ebml.DefaultLimits()
	}
	return &Prober{table: table, opts: opts, logger: logger}
}

// Probe reads r to the end. On failure the partially filled session is
// returned with the error.
func (p *Prober) Probe(ctx context.Context, r io.Reader) (*Session, error) {
	s := newSession()
	reader := ebml.NewReader(r, ebml.WithCatalog(p.opts.Catalog), ebml.WithLimits(p.opts.Limits))

	for {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		n, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return s, fmt.Errorf("probe: read at offset %d: %w", reader.Offset(), err)
		}
		s.Elements++

		el, decodeErr := p.opts.Catalog.Materialize(n)
		if decodeErr != nil {
			p.logger.Debug().
				Err(decodeErr).
				Str("element", n.ID().String()).
				Int64("offset", n.Offset).
				Msg("element decode failed; sending raw")
		}

		handled, err := p.table.Send(el, s)
		if err != nil {
			return s, &ElementError{ID: n.ID(), Offset: n.Offset, Err: err}
		}
		if !handled {
			s.Unhandled[n.ID().String()]++
		}

		skip := s.takeSkip()
		if !handled && p.opts.SkipUnknownMasters {
			skip = true
		}
		if skip && n.IsMaster() {
			if err := reader.Skip(); err != nil {
				return s, fmt.Errorf("probe: skip %s: %w", n.ID(), err)
			}
		}
	}
	s.closeGroup()

	p.logger.Debug().
		Int("elements", s.Elements).
		Int("clusters", s.Clusters).
		Int("blocks", s.Blocks).
		Int("unhandled", len(s.Unhandled)).
		Msg("probe complete")
	return s, nil
}
