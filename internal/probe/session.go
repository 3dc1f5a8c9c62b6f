package probe

import (
	"time"

	"github.com/danmuck/mkvroute/internal/ebml"
)

// Track is one TrackEntry as seen by the probe.
type Track struct {
	Number   uint64 `json:"number"`
	UID      uint64 `json:"uid,omitempty"`
	Type     string `json:"type"`
	CodecID  string `json:"codec_id"`
	Language string `json:"language,omitempty"`
	Name     string `json:"name,omitempty"`

	PixelWidth  uint64 `json:"pixel_width,omitempty"`
	PixelHeight uint64 `json:"pixel_height,omitempty"`

	SamplingFrequency float64 `json:"sampling_frequency,omitempty"`
	Channels          uint64  `json:"channels,omitempty"`

	Blocks    int `json:"blocks"`
	Keyframes int `json:"keyframes"`
	// Header flag counts.
	Laced       int `json:"laced,omitempty"`
	Invisible   int `json:"invisible,omitempty"`
	Discardable int `json:"discardable,omitempty"`
}

// blockGroup holds the Block of an open BlockGroup until the group ends.
// A group without a ReferenceBlock is a keyframe.
type blockGroup struct {
	header     ebml.BlockHeader
	hasBlock   bool
	referenced bool
}

// Session is the per-stream state every handler in the probe table writes to.
// It is owned by a single Probe call and is not safe for concurrent use.
type Session struct {
	DocType        string
	DocTypeVersion uint64

	TimecodeScale uint64
	// Duration is in TimecodeScale units, as stored.
	Duration   float64
	Title      string
	MuxingApp  string
	WritingApp string
	DateUTC    time.Time

	Tracks []*Track

	Clusters      int
	FirstTimecode uint64
	LastTimecode  uint64
	Blocks        int
	CorruptBlocks int
	// OrphanBlocks reference a track number no TrackEntry declared.
	OrphanBlocks int

	CuePoints   int
	Chapters    int
	Tags        int
	Attachments int
	Skipped     int

	Elements  int
	Unhandled map[string]int

	current *Track
	group   *blockGroup
	skip    bool
}

func newSession() *Session {
	return &Session{
		TimecodeScale: defaultTimecodeScale,
		Unhandled:     make(map[string]int),
	}
}

const defaultTimecodeScale = 1_000_000

// SkipChildren asks the walker to discard the children of the master just
// sent. Only meaningful from a master handler.
func (s *Session) SkipChildren() { s.skip = true }

func (s *Session) takeSkip() bool {
	skip := s.skip
	s.skip = false
	return skip
}

// Track returns the track with the given number, or nil.
func (s *Session) Track(number uint64) *Track {
	for _, t := range s.Tracks {
		if t.Number == number {
			return t
		}
	}
	return nil
}

// Length converts the stored duration to wall time.
func (s *Session) Length() time.Duration {
	return time.Duration(s.Duration * float64(s.TimecodeScale))
}

func trackTypeName(code uint64) string {
	switch code {
	case 1:
		return "video"
	case 2:
		return "audio"
	case 3:
		return "complex"
	case 0x10:
		return "logo"
	case 0x11:
		return "subtitle"
	case 0x12:
		return "buttons"
	case 0x20:
		return "control"
	case 0x21:
		return "metadata"
	default:
		return "unknown"
	}
}
