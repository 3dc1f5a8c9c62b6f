// Package fixture renders small synthetic Matroska documents.
//
// Ownership boundary:
// - describes a document as plain Go values (File, Track, Cluster)
// - encodes it with the internal/ebml writer helpers
// - never reads or validates input; the probe does that
package fixture

import (
	"time"

	"github.com/danmuck/mkvroute/internal/ebml"
)

// Track types as written in TrackType.
const (
	TrackVideo    = 1
	TrackAudio    = 2
	TrackSubtitle = 17
)

type Track struct {
	Number   uint64
	UID      uint64
	Type     uint64
	CodecID  string
	Language string
	Name     string

	PixelWidth  uint64
	PixelHeight uint64

	SamplingFrequency float64
	Channels          uint64
}

type Block struct {
	Track    uint64
	Timecode int16
	Keyframe bool
	// Grouped wraps the frame in a BlockGroup instead of a SimpleBlock.
	// Grouped non-keyframes carry a ReferenceBlock.
	Grouped bool
	// Flags are extra header bits (lacing, invisible, discardable).
	Flags byte
	Frame []byte
}

type Cluster struct {
	Timecode uint64
	Blocks   []Block
}

type Tag struct {
	Name  string
	Value string
}

type Chapter struct {
	UID   uint64
	Start time.Duration
	Title string
}

type Attachment struct {
	Name string
	Mime string
	Data []byte
}

type File struct {
	DocType        string
	DocTypeVersion uint64

	Title         string
	MuxingApp     string
	WritingApp    string
	TimecodeScale uint64
	// Duration is in TimecodeScale units.
	Duration float64
	Date     time.Time

	Tracks      []Track
	Clusters    []Cluster
	Tags        []Tag
	Chapters    []Chapter
	Attachments []Attachment

	// Live writes Segment and Clusters with unknown sizes.
	Live bool
	// Void appends a Void element of this many payload bytes after Info.
	Void int
	// Unknown appends an element with an uncatalogued ID to Info.
	Unknown bool
}

// Default is a two track document with three clusters.
func Default() File {
	frame := []byte{0xde, 0xad, 0xbe, 0xef}
	return File{
		DocType:        "matroska",
		DocTypeVersion: 4,
		Title:          "fixture",
		MuxingApp:      "mkvgen",
		WritingApp:     "mkvgen",
		TimecodeScale:  1_000_000,
		Duration:       3000,
		Tracks: []Track{
			{Number: 1, UID: 0x1001, Type: TrackVideo, CodecID: "V_VP9", Language: "und", PixelWidth: 640, PixelHeight: 360},
			{Number: 2, UID: 0x1002, Type: TrackAudio, CodecID: "A_OPUS", Language: "eng", Name: "Stereo", SamplingFrequency: 48000, Channels: 2},
		},
		Clusters: []Cluster{
			{Timecode: 0, Blocks: []Block{
				{Track: 1, Timecode: 0, Keyframe: true, Frame: frame},
				{Track: 2, Timecode: 0, Keyframe: true, Frame: frame},
				{Track: 1, Timecode: 40, Frame: frame},
			}},
			{Timecode: 1000, Blocks: []Block{
				{Track: 1, Timecode: 0, Keyframe: true, Frame: frame},
				{Track: 2, Timecode: 20, Keyframe: true, Grouped: true, Frame: frame},
			}},
			{Timecode: 2000, Blocks: []Block{
				{Track: 1, Timecode: 0, Frame: frame},
			}},
		},
		Tags:     []Tag{{Name: "ENCODER", Value: "mkvgen"}},
		Chapters: []Chapter{{UID: 1, Start: 0, Title: "Intro"}},
	}
}

// Matroska encodes f as a complete document: EBML header then one Segment.
func Matroska(f File) []byte {
	out := header(f)

	body := [][]byte{info(f)}
	if f.Void > 0 {
		body = append(body, ebml.AppendElement(nil, ebml.IDVoid, make([]byte, f.Void)))
	}
	if len(f.Tracks) > 0 {
		body = append(body, tracks(f.Tracks))
	}
	if len(f.Chapters) > 0 {
		body = append(body, chapters(f.Chapters))
	}
	for _, c := range f.Clusters {
		body = append(body, cluster(c, f.Live))
	}
	if len(f.Tags) > 0 {
		body = append(body, tags(f.Tags))
	}
	if len(f.Attachments) > 0 {
		body = append(body, attachments(f.Attachments))
	}

	if f.Live {
		return ebml.AppendUnsizedMaster(out, ebml.IDSegment, body...)
	}
	return ebml.AppendMaster(out, ebml.IDSegment, body...)
}

func header(f File) []byte {
	docType := f.DocType
	if docType == "" {
		docType = "matroska"
	}
	return ebml.AppendMaster(nil, ebml.IDEBML,
		ebml.AppendUint(nil, ebml.IDEBMLVersion, 1),
		ebml.AppendUint(nil, ebml.IDEBMLReadVersion, 1),
		ebml.AppendUint(nil, ebml.IDEBMLMaxIDLength, 4),
		ebml.AppendUint(nil, ebml.IDEBMLMaxSizeLength, 8),
		ebml.AppendString(nil, ebml.IDDocType, docType),
		ebml.AppendUint(nil, ebml.IDDocTypeVersion, f.DocTypeVersion),
		ebml.AppendUint(nil, ebml.IDDocTypeReadVersion, 2),
	)
}

func info(f File) []byte {
	children := [][]byte{ebml.AppendUint(nil, ebml.IDTimecodeScale, f.TimecodeScale)}
	if f.Duration > 0 {
		children = append(children, ebml.AppendFloat(nil, ebml.IDDuration, f.Duration))
	}
	if f.Title != "" {
		children = append(children, ebml.AppendString(nil, ebml.IDTitle, f.Title))
	}
	if f.MuxingApp != "" {
		children = append(children, ebml.AppendString(nil, ebml.IDMuxingApp, f.MuxingApp))
	}
	if f.WritingApp != "" {
		children = append(children, ebml.AppendString(nil, ebml.IDWritingApp, f.WritingApp))
	}
	if !f.Date.IsZero() {
		children = append(children, ebml.AppendDate(nil, ebml.IDDateUTC, f.Date))
	}
	if f.Unknown {
		children = append(children, ebml.AppendElement(nil, ebml.Lookup(0x4FFF, 2), []byte{1, 2, 3}))
	}
	return ebml.AppendMaster(nil, ebml.IDInfo, children...)
}

func tracks(ts []Track) []byte {
	entries := make([][]byte, 0, len(ts))
	for _, t := range ts {
		children := [][]byte{
			ebml.AppendUint(nil, ebml.IDTrackNumber, t.Number),
			ebml.AppendUint(nil, ebml.IDTrackUID, t.UID),
			ebml.AppendUint(nil, ebml.IDTrackType, t.Type),
			ebml.AppendString(nil, ebml.IDCodecID, t.CodecID),
		}
		if t.Language != "" {
			children = append(children, ebml.AppendString(nil, ebml.IDLanguage, t.Language))
		}
		if t.Name != "" {
			children = append(children, ebml.AppendString(nil, ebml.IDName, t.Name))
		}
		if t.PixelWidth > 0 || t.PixelHeight > 0 {
			children = append(children, ebml.AppendMaster(nil, ebml.IDVideo,
				ebml.AppendUint(nil, ebml.IDPixelWidth, t.PixelWidth),
				ebml.AppendUint(nil, ebml.IDPixelHeight, t.PixelHeight),
			))
		}
		if t.SamplingFrequency > 0 || t.Channels > 0 {
			children = append(children, ebml.AppendMaster(nil, ebml.IDAudio,
				ebml.AppendFloat(nil, ebml.IDSamplingFrequency, t.SamplingFrequency),
				ebml.AppendUint(nil, ebml.IDChannels, t.Channels),
			))
		}
		entries = append(entries, ebml.AppendMaster(nil, ebml.IDTrackEntry, children...))
	}
	return ebml.AppendMaster(nil, ebml.IDTracks, entries...)
}

func cluster(c Cluster, live bool) []byte {
	children := [][]byte{ebml.AppendUint(nil, ebml.IDTimecode, c.Timecode)}
	for _, b := range c.Blocks {
		h := ebml.BlockHeader{Track: b.Track, Timecode: b.Timecode, Flags: b.Flags}
		if b.Grouped {
			group := [][]byte{ebml.AppendBlock(nil, ebml.IDBlock, h, b.Frame)}
			if !b.Keyframe {
				// previous frame of the track
				group = append(group, ebml.AppendInt(nil, ebml.IDReferenceBlock, -1))
			}
			children = append(children, ebml.AppendMaster(nil, ebml.IDBlockGroup, group...))
			continue
		}
		if b.Keyframe {
			h.Flags |= ebml.FlagKeyframe
		}
		children = append(children, ebml.AppendBlock(nil, ebml.IDSimpleBlock, h, b.Frame))
	}
	if live {
		return ebml.AppendUnsizedMaster(nil, ebml.IDCluster, children...)
	}
	return ebml.AppendMaster(nil, ebml.IDCluster, children...)
}

func tags(ts []Tag) []byte {
	out := make([][]byte, 0, len(ts))
	for _, t := range ts {
		out = append(out, ebml.AppendMaster(nil, ebml.IDTag,
			ebml.AppendMaster(nil, ebml.IDSimpleTag,
				ebml.AppendString(nil, ebml.IDTagName, t.Name),
				ebml.AppendString(nil, ebml.IDTagString, t.Value),
			),
		))
	}
	return ebml.AppendMaster(nil, ebml.IDTags, out...)
}

func chapters(cs []Chapter) []byte {
	atoms := make([][]byte, 0, len(cs))
	for _, c := range cs {
		atoms = append(atoms, ebml.AppendMaster(nil, ebml.IDChapterAtom,
			ebml.AppendUint(nil, ebml.IDChapterUID, c.UID),
			ebml.AppendUint(nil, ebml.IDChapterTimeStart, uint64(c.Start.Nanoseconds())),
			ebml.AppendMaster(nil, ebml.IDChapterDisplay,
				ebml.AppendString(nil, ebml.IDChapString, c.Title),
			),
		))
	}
	return ebml.AppendMaster(nil, ebml.IDChapters, ebml.AppendMaster(nil, ebml.IDEditionEntry, atoms...))
}

func attachments(as []Attachment) []byte {
	files := make([][]byte, 0, len(as))
	for _, a := range as {
		files = append(files, ebml.AppendMaster(nil, ebml.IDAttachedFile,
			ebml.AppendString(nil, ebml.IDFileName, a.Name),
			ebml.AppendString(nil, ebml.IDFileMimeType, a.Mime),
			ebml.AppendElement(nil, ebml.IDFileData, a.Data),
		))
	}
	return ebml.AppendMaster(nil, ebml.IDAttachments, files...)
}
