package ebml

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// Block flag bits.
const (
	FlagKeyframe    byte = 0x80
	FlagInvisible   byte = 0x08
	FlagLacingMask  byte = 0x06
	FlagDiscardable byte = 0x01
)

var ErrBlockHeader = errors.New("ebml: malformed block header")

// Concrete kinds for block payloads. Both are laid out as binary, so a
// block that fails to parse is still dispatchable as KindBinary.
var (
	KindSimpleBlock = RegisterKind("simpleblock", KindBinary)
	KindBlock       = RegisterKind("block", KindBinary)
)

// BlockHeader is the fixed prefix shared by Block and SimpleBlock.
type BlockHeader struct {
	Track    uint64
	Timecode int16
	Flags    byte
}

func (h BlockHeader) Keyframe() bool { return h.Flags&FlagKeyframe != 0 }

func (h BlockHeader) Lacing() byte { return (h.Flags & FlagLacingMask) >> 1 }

// ParseBlockHeader decodes the header and returns the number of bytes used.
func ParseBlockHeader(data []byte) (BlockHeader, int, error) {
	track, n, err := ReadSize(bytes.NewReader(data))
	if err != nil || track == UnknownSize {
		return BlockHeader{}, 0, ErrBlockHeader
	}
	if len(data) < n+3 {
		return BlockHeader{}, 0, ErrBlockHeader
	}
	h := BlockHeader{
		Track:    track,
		Timecode: int16(binary.BigEndian.Uint16(data[n : n+2])),
		Flags:    data[n+2],
	}
	return h, n + 3, nil
}

// SimpleBlock is a Cluster-level block carrying its own keyframe flag.
type SimpleBlock struct {
	BlockHeader
	Node    *Node
	Payload []byte
}

func (*SimpleBlock) ID() ID     { return IDSimpleBlock }
func (*SimpleBlock) Kind() Kind { return KindSimpleBlock }

// Block is the BlockGroup variant; keyframe state comes from ReferenceBlock.
type Block struct {
	BlockHeader
	Node    *Node
	Payload []byte
}

func (*Block) ID() ID     { return IDBlock }
func (*Block) Kind() Kind { return KindBlock }

func decodeSimpleBlock(n *Node) (Element, error) {
	h, used, err := ParseBlockHeader(n.Data)
	if err != nil {
		return nil, err
	}
	return &SimpleBlock{BlockHeader: h, Node: n, Payload: n.Data[used:]}, nil
}

func decodeBlock(n *Node) (Element, error) {
	h, used, err := ParseBlockHeader(n.Data)
	if err != nil {
		return nil, err
	}
	return &Block{BlockHeader: h, Node: n, Payload: n.Data[used:]}, nil
}
