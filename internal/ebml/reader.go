package ebml

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
)

var (
	ErrPayloadTooLarge = errors.New("ebml: payload too large")
	ErrChildOverflow   = errors.New("ebml: child element overruns parent")
	ErrUnknownSizeLeaf = errors.New("ebml: unknown size on non-master element")
	ErrNothingToSkip   = errors.New("ebml: no master element to skip")
)

// Limits constrains reader memory use.
type Limits struct {
	MaxPayloadBytes uint64
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: 64 * 1024 * 1024}
}

type ReaderOption func(*Reader)

func WithCatalog(c *Catalog) ReaderOption {
	return func(r *Reader) { r.catalog = c }
}

func WithLimits(l Limits) ReaderOption {
	return func(r *Reader) { r.limits = l }
}

type frame struct {
	id    ID
	level int
	end   int64 // -1 while the size is unknown
}

// Reader walks an EBML stream in document order. Master elements are
// returned before their children; leaf payloads are read fully.
// Reader never interprets payloads.
type Reader struct {
	br      *bufio.Reader
	catalog *Catalog
	limits  Limits
	pos     int64
	stack   []frame
	last    *Node
	pending *Node
	// skipDepth is non-zero while Skip scans an unsized master; leaves at or
	// below it are discarded unread.
	skipDepth int
}

func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	rd := &Reader{
		br:      bufio.NewReader(r),
		catalog: Matroska,
		limits:  DefaultLimits(),
	}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

// Offset is the current stream position.
func (r *Reader) Offset() int64 { return r.pos }

// Depth is the number of currently open master elements.
func (r *Reader) Depth() int { return len(r.stack) }

// Next returns the next node. io.EOF is returned at a clean element
// boundary with no sized master left open.
func (r *Reader) Next() (*Node, error) {
	r.last = nil
	if n := r.pending; n != nil {
		r.pending = nil
		if n.IsMaster() {
			r.last = n
		}
		return n, nil
	}
	r.closeFinished()

	start := r.pos
	value, idLen, err := ReadID(r.br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			if r.sizedOpen() {
				return nil, ErrTruncated
			}
			r.stack = r.stack[:0]
			return nil, io.EOF
		}
		return nil, err
	}
	size, sizeLen, err := ReadSize(r.br)
	if err != nil {
		return nil, err
	}
	r.pos += int64(idLen + sizeLen)
	if size != UnknownSize && size > uint64(math.MaxInt64-r.pos) {
		return nil, ErrPayloadTooLarge
	}

	id := Lookup(value, idLen)
	def, known := r.catalog.Lookup(id)
	kind := KindUnknown
	if known {
		kind = def.Kind
		r.closeUnsized(def)
	}
	node := &Node{id: id, kind: kind, Offset: start, Depth: len(r.stack), Size: size}

	if kind.IsMaster() {
		end := int64(-1)
		if size != UnknownSize {
			end = r.pos + int64(size)
			if err := r.checkParent(end); err != nil {
				return nil, err
			}
		}
		r.stack = append(r.stack, frame{id: id, level: def.Level, end: end})
		r.last = node
		return node, nil
	}

	if size == UnknownSize {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSizeLeaf, id)
	}
	end := r.pos + int64(size)
	if err := r.checkParent(end); err != nil {
		return nil, err
	}
	if !known || (r.skipDepth > 0 && node.Depth >= r.skipDepth) {
		if err := r.discard(int64(size)); err != nil {
			return nil, err
		}
		return node, nil
	}
	if size > r.limits.MaxPayloadBytes {
		return nil, fmt.Errorf("%w: %s size=%d", ErrPayloadTooLarge, id, size)
	}
	node.Data = make([]byte, size)
	if _, err := io.ReadFull(r.br, node.Data); err != nil {
		return nil, ErrTruncated
	}
	r.pos = end
	return node, nil
}

// Skip discards the children of the master node returned by the last Next.
func (r *Reader) Skip() error {
	if r.last == nil || len(r.stack) == 0 {
		return ErrNothingToSkip
	}
	r.last = nil
	depth := len(r.stack)
	top := r.stack[depth-1]
	if top.end >= 0 {
		if err := r.discard(top.end - r.pos); err != nil {
			return err
		}
		r.stack = r.stack[:depth-1]
		return nil
	}

	prevDepth := r.skipDepth
	r.skipDepth = depth
	defer func() { r.skipDepth = prevDepth }()
	for {
		child, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if child.Depth < depth {
			r.pending = child
			return nil
		}
		if child.IsMaster() {
			if err := r.Skip(); err != nil {
				return err
			}
		}
	}
}

func (r *Reader) closeFinished() {
	for len(r.stack) > 0 {
		top := r.stack[len(r.stack)-1]
		if top.end < 0 || top.end > r.pos {
			return
		}
		r.stack = r.stack[:len(r.stack)-1]
	}
}

// closeUnsized ends open-ended masters that cannot contain def.
func (r *Reader) closeUnsized(def Def) {
	if def.Level == LevelGlobal {
		return
	}
	for len(r.stack) > 0 {
		top := r.stack[len(r.stack)-1]
		if top.end >= 0 || def.Level > top.level {
			return
		}
		r.stack = r.stack[:len(r.stack)-1]
	}
}

func (r *Reader) checkParent(end int64) error {
	for i := len(r.stack) - 1; i >= 0; i-- {
		if r.stack[i].end < 0 {
			continue
		}
		if end > r.stack[i].end {
			return fmt.Errorf("%w: parent %s ends at %d, child ends at %d",
				ErrChildOverflow, r.stack[i].id, r.stack[i].end, end)
		}
		return nil
	}
	return nil
}

func (r *Reader) sizedOpen() bool {
	for _, f := range r.stack {
		if f.end >= 0 {
			return true
		}
	}
	return false
}

func (r *Reader) discard(n int64) error {
	if n <= 0 {
		return nil
	}
	copied, err := io.CopyN(io.Discard, r.br, n)
	r.pos += copied
	if err != nil {
		return ErrTruncated
	}
	return nil
}
