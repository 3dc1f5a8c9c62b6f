package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/mkvroute/internal/probe"
	"github.com/danmuck/mkvroute/internal/testutil/testlog"
	"github.com/rs/zerolog"
)

func TestRunWritesReadableLiveFixture(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "live.webm")

	var out bytes.Buffer
	if err := run([]string{"-output", path, "-doctype", "webm", "-clusters", "2", "-live", "-attach"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(out.String(), path+":") {
		t.Fatalf("unexpected output: %q", out.String())
	}

	in, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer in.Close()
	table, err := probe.NewTable()
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	s, err := probe.New(table, probe.Options{}, zerolog.Nop()).Probe(context.Background(), in)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if s.DocType != "webm" || s.Clusters != 2 || s.Attachments != 1 {
		t.Fatalf("doctype=%q clusters=%d attachments=%d", s.DocType, s.Clusters, s.Attachments)
	}
	if s.Blocks != 6 || len(s.Unhandled) != 0 {
		t.Fatalf("blocks=%d unhandled=%v", s.Blocks, s.Unhandled)
	}
}

func TestRunRejectsBadFlags(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	cases := map[string][]string{
		"unsupported doctype": {"-output", filepath.Join(dir, "a.mkv"), "-doctype", "avi"},
		"clusters must be":    {"-output", filepath.Join(dir, "b.mkv"), "-clusters", "-1"},
		"void must be":        {"-output", filepath.Join(dir, "c.mkv"), "-void", "-4"},
	}
	for want, args := range cases {
		err := run(args, &bytes.Buffer{})
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("%v: expected %q error, got %v", args, want, err)
		}
	}
	if err := run([]string{"-output", filepath.Join(dir, "missing", "d.mkv")}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected write error")
	}
}
