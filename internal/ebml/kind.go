package ebml

import (
	"strconv"
	"sync"
)

// Kind discriminates the concrete shape a node was decoded into.
// Kinds compare by exact equality only.
type Kind uint16

// Storage kinds from the EBML specification.
const (
	KindUnknown Kind = iota
	KindMaster
	KindUnsigned
	KindSigned
	KindFloat
	KindString
	KindUTF8
	KindDate
	KindBinary
	kindBuiltinEnd
)

type kindInfo struct {
	name    string
	storage Kind
}

var kinds = struct {
	mu    sync.RWMutex
	infos []kindInfo
}{
	infos: []kindInfo{
		KindUnknown:  {"unknown", KindUnknown},
		KindMaster:   {"master", KindMaster},
		KindUnsigned: {"uinteger", KindUnsigned},
		KindSigned:   {"integer", KindSigned},
		KindFloat:    {"float", KindFloat},
		KindString:   {"string", KindString},
		KindUTF8:     {"utf-8", KindUTF8},
		KindDate:     {"date", KindDate},
		KindBinary:   {"binary", KindBinary},
	},
}

// RegisterKind allocates a concrete kind whose payload is laid out as storage.
// Call it while building package-level tables, before any dispatch happens.
func RegisterKind(name string, storage Kind) Kind {
	if storage >= kindBuiltinEnd {
		storage = storage.Storage()
	}
	kinds.mu.Lock()
	defer kinds.mu.Unlock()
	kinds.infos = append(kinds.infos, kindInfo{name: name, storage: storage})
	return Kind(len(kinds.infos) - 1)
}

// Storage returns the builtin kind describing the payload layout.
func (k Kind) Storage() Kind {
	if k < kindBuiltinEnd {
		return k
	}
	kinds.mu.RLock()
	defer kinds.mu.RUnlock()
	if int(k) >= len(kinds.infos) {
		return KindUnknown
	}
	return kinds.infos[k].storage
}

func (k Kind) IsMaster() bool { return k.Storage() == KindMaster }

func (k Kind) String() string {
	kinds.mu.RLock()
	defer kinds.mu.RUnlock()
	if int(k) < len(kinds.infos) {
		return kinds.infos[k].name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}
