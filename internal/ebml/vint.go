package ebml

import (
	"errors"
	"io"
	"math/bits"
)

// UnknownSize marks a master element whose end is implied by what follows.
const UnknownSize = ^uint64(0)

const maxSizeLength = 8

var (
	ErrInvalidVINT = errors.New("ebml: invalid variable-length integer")
	ErrTruncated   = errors.New("ebml: truncated data")
)

// ReadID reads one element identifier, marker bits included.
// io.EOF is returned untouched when no byte at all is available.
func ReadID(r io.ByteReader) (value uint32, length int, err error) {
	first, err := r.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	if first == 0 {
		return 0, 0, ErrInvalidVINT
	}
	length = bits.LeadingZeros8(first) + 1
	if length > MaxIDLength {
		return 0, 0, ErrInvalidID
	}
	value = uint32(first)
	for i := 1; i < length; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, ErrTruncated
		}
		value = value<<8 | uint32(b)
	}
	return value, length, nil
}

// ReadSize reads an element data size. An all-ones payload is UnknownSize.
func ReadSize(r io.ByteReader) (size uint64, length int, err error) {
	first, err := r.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, 0, ErrTruncated
		}
		return 0, 0, err
	}
	if first == 0 {
		return 0, 0, ErrInvalidVINT
	}
	length = bits.LeadingZeros8(first) + 1
	size = uint64(first & (0xFF >> length))
	allOnes := size == uint64(0xFF>>length)
	for i := 1; i < length; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, ErrTruncated
		}
		size = size<<8 | uint64(b)
		allOnes = allOnes && b == 0xFF
	}
	if allOnes {
		return UnknownSize, length, nil
	}
	return size, length, nil
}

// SizeLen is the minimal number of bytes AppendSize uses for size.
func SizeLen(size uint64) int {
	if size == UnknownSize {
		return maxSizeLength
	}
	for n := 1; n < maxSizeLength; n++ {
		// 7n usable bits, all-ones reserved.
		if size < (uint64(1)<<(7*n))-1 {
			return n
		}
	}
	return maxSizeLength
}

// AppendID appends the wire form of id.
func AppendID(b []byte, id ID) []byte {
	for shift := (id.Len() - 1) * 8; shift >= 0; shift -= 8 {
		b = append(b, byte(id.value>>shift))
	}
	return b
}

// AppendSize appends size as a minimal-length VINT.
func AppendSize(b []byte, size uint64) []byte {
	if size == UnknownSize {
		return append(b, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
	}
	n := SizeLen(size)
	v := size | uint64(1)<<(7*n)
	for shift := (n - 1) * 8; shift >= 0; shift -= 8 {
		b = append(b, byte(v>>shift))
	}
	return b
}
