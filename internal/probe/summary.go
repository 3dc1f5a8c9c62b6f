package probe

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"
)

// Summary is the serialisable view of a finished Session.
type Summary struct {
	DocType        string    `json:"doc_type"`
	DocTypeVersion uint64    `json:"doc_type_version"`
	Title          string    `json:"title,omitempty"`
	MuxingApp      string    `json:"muxing_app,omitempty"`
	WritingApp     string    `json:"writing_app,omitempty"`
	Date           time.Time `json:"date,omitzero"`
	TimecodeScale  uint64    `json:"timecode_scale"`
	Duration       string    `json:"duration"`

	Tracks []Track `json:"tracks"`

	Clusters      int    `json:"clusters"`
	FirstTimecode uint64 `json:"first_timecode"`
	LastTimecode  uint64 `json:"last_timecode"`
	Blocks        int    `json:"blocks"`
	CorruptBlocks int    `json:"corrupt_blocks"`
	OrphanBlocks  int    `json:"orphan_blocks"`

	CuePoints   int `json:"cue_points"`
	Chapters    int `json:"chapters"`
	Tags        int `json:"tags"`
	Attachments int `json:"attachments"`
	Skipped     int `json:"skipped"`

	Elements  int            `json:"elements"`
	Unhandled map[string]int `json:"unhandled,omitempty"`
}

func (s *Session) Summary() Summary {
	tracks := make([]Track, 0, len(s.Tracks))
	for _, t := range s.Tracks {
		tracks = append(tracks, *t)
	}
	var unhandled map[string]int
	if len(s.Unhandled) > 0 {
		unhandled = make(map[string]int, len(s.Unhandled))
		for k, v := range s.Unhandled {
			unhandled[k] = v
		}
	}
	return Summary{
		DocType:        s.DocType,
		DocTypeVersion: s.DocTypeVersion,
		Title:          s.Title,
		MuxingApp:      s.MuxingApp,
		WritingApp:     s.WritingApp,
		Date:           s.DateUTC,
		TimecodeScale:  s.TimecodeScale,
		Duration:       s.Length().String(),
		Tracks:         tracks,
		Clusters:       s.Clusters,
		FirstTimecode:  s.FirstTimecode,
		LastTimecode:   s.LastTimecode,
		Blocks:         s.Blocks,
		CorruptBlocks:  s.CorruptBlocks,
		OrphanBlocks:   s.OrphanBlocks,
		CuePoints:      s.CuePoints,
		Chapters:       s.Chapters,
		Tags:           s.Tags,
		Attachments:    s.Attachments,
		Skipped:        s.Skipped,
		Elements:       s.Elements,
		Unhandled:      unhandled,
	}
}

// WriteText renders the summary as aligned plain text.
func (s Summary) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "doctype\t%s v%d\n", s.DocType, s.DocTypeVersion)
	if s.Title != "" {
		fmt.Fprintf(tw, "title\t%s\n", s.Title)
	}
	if s.MuxingApp != "" || s.WritingApp != "" {
		fmt.Fprintf(tw, "apps\t%s / %s\n", s.MuxingApp, s.WritingApp)
	}
	fmt.Fprintf(tw, "duration\t%s\n", s.Duration)
	fmt.Fprintf(tw, "clusters\t%d (timecode %d..%d)\n", s.Clusters, s.FirstTimecode, s.LastTimecode)
	fmt.Fprintf(tw, "blocks\t%d (corrupt %d, orphan %d)\n", s.Blocks, s.CorruptBlocks, s.OrphanBlocks)
	fmt.Fprintf(tw, "index\tcues=%d chapters=%d tags=%d attachments=%d\n", s.CuePoints, s.Chapters, s.Tags, s.Attachments)
	fmt.Fprintf(tw, "elements\t%d (skipped %d)\n", s.Elements, s.Skipped)
	for _, t := range s.Tracks {
		fmt.Fprintf(tw, "track %d\t%s %s", t.Number, t.Type, t.CodecID)
		switch {
		case t.PixelWidth > 0:
			fmt.Fprintf(tw, " %dx%d", t.PixelWidth, t.PixelHeight)
		case t.SamplingFrequency > 0:
			fmt.Fprintf(tw, " %gHz %dch", t.SamplingFrequency, t.Channels)
		}
		if t.Language != "" {
			fmt.Fprintf(tw, " [%s]", t.Language)
		}
		fmt.Fprintf(tw, " blocks=%d keyframes=%d", t.Blocks, t.Keyframes)
		if t.Laced > 0 || t.Invisible > 0 || t.Discardable > 0 {
			fmt.Fprintf(tw, " laced=%d invisible=%d discardable=%d", t.Laced, t.Invisible, t.Discardable)
		}
		fmt.Fprintln(tw)
	}
	names := make([]string, 0, len(s.Unhandled))
	for name := range s.Unhandled {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(tw, "unhandled\t%s x%d\n", name, s.Unhandled[name])
	}
	return tw.Flush()
}
