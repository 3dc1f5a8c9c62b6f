package dispatch

import (
	"errors"
	"math/rand"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danmuck/mkvroute/internal/ebml"
	"github.com/danmuck/mkvroute/internal/testutil/testlog"
)

func mustTable(t *testing.T, entries []Entry[*calls], fallback Handler[*calls], opts ...TableOption) *Table[*calls] {
	t.Helper()
	r := NewRegistry[*calls]()
	for _, e := range entries {
		if err := r.Insert(e); err != nil {
			t.Fatalf("insert %s/%s: %v", e.ID, e.Kind, err)
		}
	}
	if fallback != nil {
		if err := r.SetDefault(fallback); err != nil {
			t.Fatalf("set default: %v", err)
		}
	}
	return r.Finalize(opts...)
}

func send(t *testing.T, table *Table[*calls], el ebml.Element) (bool, []string) {
	t.Helper()
	c := &calls{}
	handled, err := table.Send(el, c)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	return handled, c.names
}

func TestSendInvokesExactlyTheRegisteredEntry(t *testing.T) {
	testlog.Start(t)
	ids := []ebml.ID{ebml.IDEBML, ebml.IDSegment, ebml.IDCluster, ebml.IDTimecode, ebml.IDSimpleBlock, ebml.IDTrackNumber, ebml.IDTimecodeScale, ebml.IDCodecID}
	var entries []Entry[*calls]
	for _, id := range ids {
		entries = append(entries, Entry[*calls]{ID: id, Kind: kindX, Handler: record(id.Name())})
	}
	table := mustTable(t, entries, nil)

	for _, id := range ids {
		handled, names := send(t, table, fakeElement{id: id, kind: kindX})
		if !handled {
			t.Fatalf("%s not handled", id)
		}
		if !reflect.DeepEqual(names, []string{id.Name()}) {
			t.Fatalf("%s: expected exactly one call to its handler, got %v", id, names)
		}
	}
}

func TestSendUnregisteredWithoutDefaultIsUnhandled(t *testing.T) {
	testlog.Start(t)
	table := mustTable(t, []Entry[*calls]{{ID: ebml.IDCluster, Kind: ebml.KindMaster, Handler: record("cluster")}}, nil)
	handled, names := send(t, table, fakeElement{id: ebml.IDCues, kind: ebml.KindMaster})
	if handled || len(names) != 0 {
		t.Fatalf("expected unhandled with no calls, got handled=%v calls=%v", handled, names)
	}
}

func TestSendUnregisteredUsesDefault(t *testing.T) {
	testlog.Start(t)
	table := mustTable(t, []Entry[*calls]{{ID: ebml.IDCluster, Kind: ebml.KindMaster, Handler: record("cluster")}}, record("default"))
	handled, names := send(t, table, fakeElement{id: ebml.IDCues, kind: ebml.KindMaster})
	if !handled || !reflect.DeepEqual(names, []string{"default"}) {
		t.Fatalf("expected default once, got handled=%v calls=%v", handled, names)
	}
}

func TestSendKindMismatchNeverReachesOtherKind(t *testing.T) {
	testlog.Start(t)
	entries := []Entry[*calls]{{ID: ebml.IDSimpleBlock, Kind: kindX, Handler: record("x")}}

	table := mustTable(t, entries, nil)
	handled, names := send(t, table, fakeElement{id: ebml.IDSimpleBlock, kind: kindY})
	if handled || len(names) != 0 {
		t.Fatalf("mismatched kind must be unhandled, got handled=%v calls=%v", handled, names)
	}

	table = mustTable(t, entries, record("default"))
	handled, names = send(t, table, fakeElement{id: ebml.IDSimpleBlock, kind: kindY})
	if !handled || !reflect.DeepEqual(names, []string{"default"}) {
		t.Fatalf("mismatched kind must fall through to default, got %v", names)
	}
}

func TestSendSharedIDSelectsByKindRegardlessOfOrder(t *testing.T) {
	testlog.Start(t)
	x := Entry[*calls]{ID: ebml.IDSimpleBlock, Kind: kindX, Handler: record("x")}
	y := Entry[*calls]{ID: ebml.IDSimpleBlock, Kind: kindY, Handler: record("y")}
	for _, order := range [][]Entry[*calls]{{x, y}, {y, x}} {
		table := mustTable(t, order, nil)
		if _, names := send(t, table, fakeElement{id: ebml.IDSimpleBlock, kind: kindX}); !reflect.DeepEqual(names, []string{"x"}) {
			t.Fatalf("expected x, got %v", names)
		}
		if _, names := send(t, table, fakeElement{id: ebml.IDSimpleBlock, kind: kindY}); !reflect.DeepEqual(names, []string{"y"}) {
			t.Fatalf("expected y, got %v", names)
		}
	}
}

func TestSendMatchesDetachedIDsStructurally(t *testing.T) {
	testlog.Start(t)
	entryID := ebml.Lookup(0x4001, 2)
	nodeID := ebml.Lookup(0x4001, 2)
	if entryID.Interned() || nodeID.Interned() {
		t.Fatalf("test ids must be detached")
	}
	table := mustTable(t, []Entry[*calls]{{ID: entryID, Kind: ebml.KindUnknown, Handler: record("private")}}, nil)
	handled, names := send(t, table, ebml.NewNode(nodeID, ebml.KindUnknown, nil))
	if !handled || !reflect.DeepEqual(names, []string{"private"}) {
		t.Fatalf("structural match failed: handled=%v calls=%v", handled, names)
	}
}

func TestSendNilElement(t *testing.T) {
	testlog.Start(t)
	entries := []Entry[*calls]{{ID: ebml.IDCluster, Kind: ebml.KindMaster, Handler: record("cluster")}}

	handled, names := send(t, mustTable(t, entries, nil), nil)
	if handled || len(names) != 0 {
		t.Fatalf("nil without default must be unhandled, got %v", names)
	}

	var got ebml.Element = fakeElement{}
	table := mustTable(t, entries, func(el ebml.Element, c *calls) error {
		got = el
		c.names = append(c.names, "default")
		return nil
	})
	handled, names = send(t, table, nil)
	if !handled || !reflect.DeepEqual(names, []string{"default"}) || got != nil {
		t.Fatalf("nil must reach default as nil, handled=%v calls=%v el=%v", handled, names, got)
	}

	var typedNil *ebml.Node
	handled, names = send(t, table, typedNil)
	if !handled || !reflect.DeepEqual(names, []string{"default"}) {
		t.Fatalf("typed nil node must reach default, got %v", names)
	}
}

func TestSendPropagatesHandlerErrorUnchanged(t *testing.T) {
	testlog.Start(t)
	boom := errors.New("handler failed")
	table := mustTable(t, []Entry[*calls]{{
		ID:      ebml.IDCluster,
		Kind:    ebml.KindMaster,
		Handler: func(ebml.Element, *calls) error { return boom },
	}}, func(ebml.Element, *calls) error { return boom })

	handled, err := table.Send(fakeElement{id: ebml.IDCluster, kind: ebml.KindMaster}, &calls{})
	if !handled || err != boom {
		t.Fatalf("expected handled=true err=boom, got handled=%v err=%v", handled, err)
	}
	handled, err = table.Send(fakeElement{id: ebml.IDCues, kind: ebml.KindMaster}, &calls{})
	if !handled || err != boom {
		t.Fatalf("default error must propagate, got handled=%v err=%v", handled, err)
	}
}

func TestFinalizeIsOrderIndependent(t *testing.T) {
	testlog.Start(t)
	base := []Entry[*calls]{
		{ID: ebml.IDEBML, Kind: ebml.KindMaster, Handler: record("ebml")},
		{ID: ebml.IDSegment, Kind: ebml.KindMaster, Handler: record("segment")},
		{ID: ebml.IDTimecodeScale, Kind: ebml.KindUnsigned, Handler: record("scale")},
		{ID: ebml.IDTrackEntry, Kind: ebml.KindMaster, Handler: record("entry")},
		{ID: ebml.IDTrackNumber, Kind: ebml.KindUnsigned, Handler: record("number")},
		{ID: ebml.IDSimpleBlock, Kind: kindX, Handler: record("x")},
		{ID: ebml.IDSimpleBlock, Kind: kindY, Handler: record("y")},
		{ID: ebml.IDDocType, Kind: ebml.KindString, Handler: record("doctype")},
	}
	probes := []fakeElement{
		{ebml.IDEBML, ebml.KindMaster},
		{ebml.IDSegment, ebml.KindMaster},
		{ebml.IDTimecodeScale, ebml.KindUnsigned},
		{ebml.IDTrackEntry, ebml.KindMaster},
		{ebml.IDTrackNumber, ebml.KindUnsigned},
		{ebml.IDSimpleBlock, kindX},
		{ebml.IDSimpleBlock, kindY},
		{ebml.IDDocType, ebml.KindString},
		{ebml.IDCluster, ebml.KindMaster},
		{ebml.IDTrackNumber, ebml.KindSigned},
	}
	resolve := func(table *Table[*calls]) []string {
		var out []string
		for _, p := range probes {
			_, names := send(t, table, p)
			out = append(out, names...)
			out = append(out, "|")
		}
		return out
	}

	want := resolve(mustTable(t, base, record("default")))
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]Entry[*calls](nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		table := mustTable(t, shuffled, record("default"))
		if got := resolve(table); !reflect.DeepEqual(got, want) {
			t.Fatalf("shuffle %d changed lookup results:\ngot  %v\nwant %v", i, got, want)
		}

		// re-finalizing the sorted entries is a no-op for lookups
		again := mustTable(t, table.Entries(), record("default"))
		if got := resolve(again); !reflect.DeepEqual(got, want) {
			t.Fatalf("re-sort changed lookup results:\ngot  %v\nwant %v", got, want)
		}
	}
}

func TestEndToEndScenario(t *testing.T) {
	testlog.Start(t)
	a := ebml.IDTrackEntry
	b := ebml.IDChapters
	table := mustTable(t, []Entry[*calls]{
		{ID: a, Kind: kindX, Handler: record("H1")},
		{ID: a, Kind: kindY, Handler: record("H2")},
	}, record("H0"))

	cases := []struct {
		el   ebml.Element
		want string
	}{
		{fakeElement{a, kindX}, "H1"},
		{fakeElement{a, kindY}, "H2"},
		{fakeElement{b, kindX}, "H0"},
		{nil, "H0"},
	}
	for i, tc := range cases {
		handled, names := send(t, table, tc.el)
		if !handled || !reflect.DeepEqual(names, []string{tc.want}) {
			t.Fatalf("case %d: expected %s, got handled=%v calls=%v", i, tc.want, handled, names)
		}
	}
}

func TestObserverSeesEveryOutcome(t *testing.T) {
	testlog.Start(t)
	var outcomes []Outcome
	obs := ObserverFunc(func(_ ebml.Element, o Outcome) { outcomes = append(outcomes, o) })

	withDefault := mustTable(t, []Entry[*calls]{{ID: ebml.IDCluster, Kind: ebml.KindMaster, Handler: record("c")}}, record("d"), WithObserver(obs))
	send(t, withDefault, fakeElement{ebml.IDCluster, ebml.KindMaster})
	send(t, withDefault, fakeElement{ebml.IDCues, ebml.KindMaster})

	bare := mustTable(t, nil, nil, WithObserver(obs))
	send(t, bare, fakeElement{ebml.IDCues, ebml.KindMaster})

	want := []Outcome{OutcomeMatched, OutcomeDefault, OutcomeUnhandled}
	if !reflect.DeepEqual(outcomes, want) {
		t.Fatalf("got %v want %v", outcomes, want)
	}
	if OutcomeMatched.String() != "matched" || OutcomeUnhandled.String() != "unhandled" || OutcomeDefault.String() != "default" {
		t.Fatalf("unexpected outcome labels")
	}
}

func TestTableIntrospection(t *testing.T) {
	testlog.Start(t)
	table := mustTable(t, []Entry[*calls]{{ID: ebml.IDCluster, Kind: ebml.KindMaster, Handler: record("c")}}, nil)
	if table.Len() != 1 || table.HasDefault() {
		t.Fatalf("unexpected table shape len=%d default=%v", table.Len(), table.HasDefault())
	}
	entries := table.Entries()
	entries[0].ID = ebml.IDSegment
	if !table.Entries()[0].ID.Equal(ebml.IDCluster) {
		t.Fatalf("Entries must return a copy")
	}
}

func TestConcurrentSendOnSharedTable(t *testing.T) {
	testlog.Start(t)
	var matched, fallback atomic.Int64
	table := mustTable(t, []Entry[*calls]{{
		ID:      ebml.IDSimpleBlock,
		Kind:    kindX,
		Handler: func(ebml.Element, *calls) error { matched.Add(1); return nil },
	}}, func(ebml.Element, *calls) error { fallback.Add(1); return nil })

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				_, _ = table.Send(fakeElement{ebml.IDSimpleBlock, kindX}, nil)
				_, _ = table.Send(fakeElement{ebml.IDCluster, ebml.KindMaster}, nil)
			}
		}()
	}
	wg.Wait()
	if matched.Load() != 4000 || fallback.Load() != 4000 {
		t.Fatalf("matched=%d fallback=%d", matched.Load(), fallback.Load())
	}
}
