package ebml

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"time"
)

var (
	ErrKindMismatch  = errors.New("ebml: element kind mismatch")
	ErrInvalidLength = errors.New("ebml: invalid payload length")
)

// DateEpoch is the origin of EBML date values.
var DateEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// Element is one decoded node of an EBML tree. A nil Element is an absent node.
// Typed elements must answer ID and Kind on their zero value.
type Element interface {
	ID() ID
	Kind() Kind
}

// Node is the generic decoded element produced by Reader.
type Node struct {
	id   ID
	kind Kind

	// Offset is the stream position of the element header.
	Offset int64
	// Depth is the number of open master elements above this node.
	Depth int
	// Size is the payload size, UnknownSize for open-ended masters.
	Size uint64
	// Data holds a leaf payload; nil for masters and discarded payloads.
	Data []byte
}

func NewNode(id ID, kind Kind, data []byte) *Node {
	return &Node{id: id, kind: kind, Size: uint64(len(data)), Data: data}
}

func (n *Node) ID() ID {
	if n == nil {
		return ID{}
	}
	return n.id
}

func (n *Node) Kind() Kind {
	if n == nil {
		return KindUnknown
	}
	return n.kind
}

func (n *Node) IsMaster() bool { return n != nil && n.kind.IsMaster() }

// Uint returns the payload as an unsigned integer. Empty payloads read as 0.
func (n *Node) Uint() (uint64, error) {
	if n.kind.Storage() != KindUnsigned {
		return 0, ErrKindMismatch
	}
	if len(n.Data) > 8 {
		return 0, ErrInvalidLength
	}
	var v uint64
	for _, b := range n.Data {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// Int returns the payload as a sign-extended integer.
func (n *Node) Int() (int64, error) {
	if n.kind.Storage() != KindSigned {
		return 0, ErrKindMismatch
	}
	if len(n.Data) > 8 {
		return 0, ErrInvalidLength
	}
	if len(n.Data) == 0 {
		return 0, nil
	}
	v := int64(int8(n.Data[0]))
	for _, b := range n.Data[1:] {
		v = v<<8 | int64(b)
	}
	return v, nil
}

func (n *Node) Float() (float64, error) {
	if n.kind.Storage() != KindFloat {
		return 0, ErrKindMismatch
	}
	switch len(n.Data) {
	case 0:
		return 0, nil
	case 4:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(n.Data))), nil
	case 8:
		return math.Float64frombits(binary.BigEndian.Uint64(n.Data)), nil
	default:
		return 0, ErrInvalidLength
	}
}

// String returns string and utf-8 payloads without trailing NUL padding.
func (n *Node) String() (string, error) {
	switch n.kind.Storage() {
	case KindString, KindUTF8:
		return strings.TrimRight(string(n.Data), "\x00"), nil
	default:
		return "", ErrKindMismatch
	}
}

func (n *Node) Date() (time.Time, error) {
	if n.kind.Storage() != KindDate {
		return time.Time{}, ErrKindMismatch
	}
	switch len(n.Data) {
	case 0:
		return DateEpoch, nil
	case 8:
		ns := int64(binary.BigEndian.Uint64(n.Data))
		return DateEpoch.Add(time.Duration(ns)), nil
	default:
		return time.Time{}, ErrInvalidLength
	}
}

// Bytes returns a copy of a binary payload.
func (n *Node) Bytes() ([]byte, error) {
	if n.kind.Storage() != KindBinary {
		return nil, ErrKindMismatch
	}
	buf := make([]byte, len(n.Data))
	copy(buf, n.Data)
	return buf, nil
}
