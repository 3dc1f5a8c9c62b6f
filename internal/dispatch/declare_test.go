package dispatch

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/mkvroute/internal/ebml"
	"github.com/danmuck/mkvroute/internal/testutil/testlog"
)

type blockStats struct {
	simple   []uint64
	grouped  []uint64
	corrupt  int
	defaults int
}

func blockDecls() []Decl[*blockStats] {
	return []Decl[*blockStats]{
		Case(func(b *ebml.SimpleBlock, s *blockStats) error {
			s.simple = append(s.simple, b.Track)
			return nil
		}),
		Case(func(b *ebml.Block, s *blockStats) error {
			s.grouped = append(s.grouped, b.Track)
			return nil
		}),
		CaseAs(ebml.IDSimpleBlock, ebml.KindBinary, func(_ *ebml.Node, s *blockStats) error {
			s.corrupt++
			return nil
		}),
		Fallback(func(_ ebml.Element, s *blockStats) error {
			s.defaults++
			return nil
		}),
	}
}

func materialize(t *testing.T, raw []byte) ebml.Element {
	t.Helper()
	n, err := ebml.NewReader(bytes.NewReader(raw)).Next()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	el, _ := ebml.Matroska.Materialize(n)
	return el
}

func TestBuildRoutesTypedAndFallbackShapesOfOneID(t *testing.T) {
	testlog.Start(t)
	table, err := Build(blockDecls())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if table.Len() != 3 || !table.HasDefault() {
		t.Fatalf("unexpected table len=%d default=%v", table.Len(), table.HasDefault())
	}

	stats := &blockStats{}
	els := []ebml.Element{
		materialize(t, ebml.AppendBlock(nil, ebml.IDSimpleBlock, ebml.BlockHeader{Track: 1}, []byte{1})),
		materialize(t, ebml.AppendBlock(nil, ebml.IDBlock, ebml.BlockHeader{Track: 2}, []byte{2})),
		materialize(t, ebml.AppendElement(nil, ebml.IDSimpleBlock, []byte{0x81})),
		ebml.NewNode(ebml.IDCluster, ebml.KindMaster, nil),
	}
	for _, el := range els {
		handled, err := table.Send(el, stats)
		if err != nil || !handled {
			t.Fatalf("send %s/%s: handled=%v err=%v", el.ID(), el.Kind(), handled, err)
		}
	}
	if len(stats.simple) != 1 || stats.simple[0] != 1 {
		t.Fatalf("simple blocks: %v", stats.simple)
	}
	if len(stats.grouped) != 1 || stats.grouped[0] != 2 {
		t.Fatalf("grouped blocks: %v", stats.grouped)
	}
	if stats.corrupt != 1 || stats.defaults != 1 {
		t.Fatalf("corrupt=%d defaults=%d", stats.corrupt, stats.defaults)
	}
}

func TestCaseDerivesIdentityFromType(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry[*blockStats]()
	if err := r.Declare(Case(func(*ebml.SimpleBlock, *blockStats) error { return nil })); err != nil {
		t.Fatalf("declare: %v", err)
	}
	e := r.Finalize().Entries()[0]
	if !e.ID.Equal(ebml.IDSimpleBlock) || e.Kind != ebml.KindSimpleBlock {
		t.Fatalf("derived %s/%s", e.ID, e.Kind)
	}
}

func TestCaseRejectsTypesWithoutIdentity(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry[*blockStats]()
	err := r.Declare(Case(func(ebml.Element, *blockStats) error { return nil }))
	if !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("interface type: expected ErrInvalidEntry, got %v", err)
	}
	err = r.Declare(Case(func(*ebml.Node, *blockStats) error { return nil }))
	if !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("generic node: expected ErrInvalidEntry, got %v", err)
	}
}

func TestDeclareStopsAtDuplicate(t *testing.T) {
	testlog.Start(t)
	decls := append(blockDecls(), Case(func(*ebml.Block, *blockStats) error { return nil }))
	if _, err := Build(decls); !errors.Is(err, ErrDuplicateEntry) {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}
	twoDefaults := []Decl[*blockStats]{
		Fallback(func(ebml.Element, *blockStats) error { return nil }),
		Fallback(func(ebml.Element, *blockStats) error { return nil }),
	}
	if _, err := Build(twoDefaults); !errors.Is(err, ErrDefaultExists) {
		t.Fatalf("expected ErrDefaultExists, got %v", err)
	}
}

func TestDeclareNilHandlers(t *testing.T) {
	testlog.Start(t)
	var fn func(*ebml.SimpleBlock, *blockStats) error
	if _, err := Build([]Decl[*blockStats]{Case(fn)}); !errors.Is(err, ErrNilHandler) {
		t.Fatalf("expected ErrNilHandler, got %v", err)
	}
	if _, err := Build([]Decl[*blockStats]{Fallback[*blockStats](nil)}); !errors.Is(err, ErrNilHandler) {
		t.Fatalf("expected ErrNilHandler, got %v", err)
	}
}

func TestTrampolineReportsKindAssertion(t *testing.T) {
	testlog.Start(t)
	table, err := Build([]Decl[*blockStats]{
		CaseAs(ebml.IDSimpleBlock, ebml.KindSimpleBlock, func(*ebml.SimpleBlock, *blockStats) error { return nil }),
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// an untyped node claiming the typed kind
	liar := ebml.NewNode(ebml.IDSimpleBlock, ebml.KindSimpleBlock, []byte{0x81, 0, 0, 0})
	handled, err := table.Send(liar, &blockStats{})
	if !handled || !errors.Is(err, ErrKindAssertion) {
		t.Fatalf("expected handled with ErrKindAssertion, got handled=%v err=%v", handled, err)
	}
}
