package ebml

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"
)

// MaxIDLength is the longest element identifier accepted (class D).
const MaxIDLength = 4

var ErrInvalidID = errors.New("ebml: invalid element id")

// ID is a handle to an element identifier. Interned IDs compare by handle
// first; detached IDs (decoded but never interned) compare structurally.
type ID struct {
	handle uint32
	length uint8
	value  uint32
}

type internKey struct {
	length uint8
	value  uint32
}

type internTable struct {
	mu    sync.RWMutex
	byKey map[internKey]uint32
	names []string
}

var interned = &internTable{byKey: make(map[internKey]uint32)}

// IDLength derives the encoded length of value from its marker bit.
func IDLength(value uint32) (int, error) {
	if value == 0 {
		return 0, ErrInvalidID
	}
	width := bits.Len32(value)
	// marker bit must sit at the top of a whole byte: bit 8, 15, 22 or 29.
	for n := 1; n <= MaxIDLength; n++ {
		if width == 8*n-(n-1) {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: 0x%X", ErrInvalidID, value)
}

// Intern returns the shared handle for value, creating it on first use.
// The first name registered for a value wins.
func Intern(value uint32, name string) (ID, error) {
	length, err := IDLength(value)
	if err != nil {
		return ID{}, err
	}
	key := internKey{length: uint8(length), value: value}

	interned.mu.Lock()
	defer interned.mu.Unlock()
	if h, ok := interned.byKey[key]; ok {
		return ID{handle: h, length: key.length, value: value}, nil
	}
	interned.names = append(interned.names, name)
	h := uint32(len(interned.names))
	interned.byKey[key] = h
	return ID{handle: h, length: key.length, value: value}, nil
}

// MustIntern is Intern for package-level identifier tables.
func MustIntern(value uint32, name string) ID {
	id, err := Intern(value, name)
	if err != nil {
		panic(err)
	}
	return id
}

// Lookup resolves a decoded (value, length) pair. Unknown pairs yield a
// detached ID that still orders and compares correctly.
func Lookup(value uint32, length int) ID {
	key := internKey{length: uint8(length), value: value}
	interned.mu.RLock()
	h := interned.byKey[key]
	interned.mu.RUnlock()
	return ID{handle: h, length: key.length, value: value}
}

// Value is the identifier as written on the wire, marker bits included.
func (id ID) Value() uint32 { return id.value }

// Len is the encoded length in bytes.
func (id ID) Len() int { return int(id.length) }

func (id ID) IsZero() bool { return id.length == 0 }

func (id ID) Interned() bool { return id.handle != 0 }

// Equal reports whether both IDs name the same element.
func (id ID) Equal(other ID) bool {
	if id.handle != 0 && id.handle == other.handle {
		return true
	}
	return id.length == other.length && id.value == other.value
}

// Compare orders by encoded length, then by value.
func (id ID) Compare(other ID) int {
	switch {
	case id.length < other.length:
		return -1
	case id.length > other.length:
		return 1
	case id.value < other.value:
		return -1
	case id.value > other.value:
		return 1
	default:
		return 0
	}
}

// Name returns the interned name, or "" for detached IDs.
func (id ID) Name() string {
	if id.handle == 0 {
		return ""
	}
	interned.mu.RLock()
	defer interned.mu.RUnlock()
	return interned.names[id.handle-1]
}

func (id ID) String() string {
	if id.IsZero() {
		return "<none>"
	}
	hex := fmt.Sprintf("0x%0*X", id.Len()*2, id.value)
	if name := id.Name(); name != "" {
		return name + "(" + hex + ")"
	}
	return hex
}
