package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/danmuck/mkvroute/internal/fixture"
	"github.com/danmuck/mkvroute/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.ConfigureRuntime("")
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "mkvgen: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("mkvgen", flag.ContinueOnError)
	output := fs.String("output", "fixture.mkv", "output path")
	docType := fs.String("doctype", "matroska", "EBML DocType: matroska|webm")
	clusters := fs.Int("clusters", 3, "number of clusters")
	live := fs.Bool("live", false, "write Segment and Clusters with unknown sizes")
	void := fs.Int("void", 0, "bytes of Void padding after Info")
	attach := fs.Bool("attach", false, "add a small attachment")
	if err := fs.Parse(args); err != nil {
		return err
	}
	switch {
	case *docType != "matroska" && *docType != "webm":
		return fmt.Errorf("unsupported doctype %q", *docType)
	case *clusters < 0:
		return errors.New("clusters must be >= 0")
	case *void < 0:
		return errors.New("void must be >= 0")
	}

	f := fixture.Default()
	f.DocType = *docType
	f.Live = *live
	f.Void = *void
	f.Date = time.Now().UTC().Truncate(time.Second)
	f.Clusters = clusterRun(*clusters)
	f.Duration = float64(*clusters) * 1000
	if *attach {
		f.Attachments = []fixture.Attachment{{Name: "notes.txt", Mime: "text/plain", Data: []byte("generated by mkvgen\n")}}
	}

	raw := fixture.Matroska(f)
	if err := os.WriteFile(*output, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *output, err)
	}
	log.Info().Str("output", *output).Int("bytes", len(raw)).Int("clusters", *clusters).Bool("live", *live).Msg("fixture written")
	fmt.Fprintf(stdout, "%s: %d bytes\n", *output, len(raw))
	return nil
}

// clusterRun emits one second clusters with a video keyframe every other
// cluster and one audio block each.
func clusterRun(n int) []fixture.Cluster {
	frame := []byte{0xde, 0xad, 0xbe, 0xef}
	out := make([]fixture.Cluster, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fixture.Cluster{
			Timecode: uint64(i) * 1000,
			Blocks: []fixture.Block{
				{Track: 1, Timecode: 0, Keyframe: i%2 == 0, Frame: frame},
				{Track: 2, Timecode: 0, Keyframe: true, Frame: frame},
				{Track: 1, Timecode: 40, Frame: frame},
			},
		})
	}
	return out
}
