package ebml

import (
	"encoding/binary"
	"math"
	"time"
)

// AppendElement appends a complete element with a binary payload.
func AppendElement(b []byte, id ID, payload []byte) []byte {
	b = AppendID(b, id)
	b = AppendSize(b, uint64(len(payload)))
	return append(b, payload...)
}

// AppendMaster appends a sized master element wrapping already encoded children.
func AppendMaster(b []byte, id ID, children ...[]byte) []byte {
	total := 0
	for _, c := range children {
		total += len(c)
	}
	b = AppendID(b, id)
	b = AppendSize(b, uint64(total))
	for _, c := range children {
		b = append(b, c...)
	}
	return b
}

// AppendUnsizedMaster appends a master with UnknownSize, as live muxers do.
func AppendUnsizedMaster(b []byte, id ID, children ...[]byte) []byte {
	b = AppendID(b, id)
	b = AppendSize(b, UnknownSize)
	for _, c := range children {
		b = append(b, c...)
	}
	return b
}

func AppendUint(b []byte, id ID, v uint64) []byte {
	n := 1
	for n < 8 && v>>(8*n) != 0 {
		n++
	}
	buf := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return AppendElement(b, id, buf)
}

func AppendInt(b []byte, id ID, v int64) []byte {
	n := 1
	for n < 8 && (v < -(int64(1)<<(8*n-1)) || v >= int64(1)<<(8*n-1)) {
		n++
	}
	buf := make([]byte, n)
	u := uint64(v)
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(u)
		u >>= 8
	}
	return AppendElement(b, id, buf)
}

func AppendFloat(b []byte, id ID, v float64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(v))
	return AppendElement(b, id, buf)
}

func AppendString(b []byte, id ID, s string) []byte {
	return AppendElement(b, id, []byte(s))
}

func AppendDate(b []byte, id ID, t time.Time) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(t.Sub(DateEpoch).Nanoseconds()))
	return AppendElement(b, id, buf)
}

// AppendBlock appends a Block or SimpleBlock carrying a single unlaced frame.
func AppendBlock(b []byte, id ID, h BlockHeader, frame []byte) []byte {
	payload := AppendSize(nil, h.Track)
	payload = binary.BigEndian.AppendUint16(payload, uint16(h.Timecode))
	payload = append(payload, h.Flags)
	payload = append(payload, frame...)
	return AppendElement(b, id, payload)
}
