package ebml

// LevelGlobal marks elements allowed at any depth (Void, CRC-32).
const LevelGlobal = -1

// Def declares a known element of a document type.
type Def struct {
	ID   ID
	Kind Kind
	// Level is the nesting depth the element lives at; LevelGlobal for
	// elements that may appear anywhere.
	Level int
	// Decode materializes a typed element from the generic node. Optional.
	Decode func(*Node) (Element, error)
}

func (d Def) Name() string { return d.ID.Name() }

// Catalog resolves identifiers to element definitions.
type Catalog struct {
	defs map[internKey]Def
}

// NewCatalog builds a catalog. Later definitions replace earlier ones.
func NewCatalog(defs ...Def) *Catalog {
	c := &Catalog{defs: make(map[internKey]Def, len(defs))}
	for _, d := range defs {
		c.defs[internKey{length: d.ID.length, value: d.ID.value}] = d
	}
	return c
}

func (c *Catalog) Lookup(id ID) (Def, bool) {
	d, ok := c.defs[internKey{length: id.length, value: id.value}]
	return d, ok
}

func (c *Catalog) Len() int { return len(c.defs) }

// Materialize converts a node into its typed element when the catalog
// declares a decoder. If decoding fails the node is returned re-tagged with
// its storage kind, together with the decode error.
func (c *Catalog) Materialize(n *Node) (Element, error) {
	if n == nil {
		return nil, nil
	}
	d, ok := c.Lookup(n.id)
	if !ok || d.Decode == nil {
		return n, nil
	}
	el, err := d.Decode(n)
	if err != nil {
		fallback := *n
		fallback.kind = n.kind.Storage()
		return &fallback, err
	}
	return el, nil
}

// EBML header.
var (
	IDEBML               = MustIntern(0x1A45DFA3, "EBML")
	IDEBMLVersion        = MustIntern(0x4286, "EBMLVersion")
	IDEBMLReadVersion    = MustIntern(0x42F7, "EBMLReadVersion")
	IDEBMLMaxIDLength    = MustIntern(0x42F2, "EBMLMaxIDLength")
	IDEBMLMaxSizeLength  = MustIntern(0x42F3, "EBMLMaxSizeLength")
	IDDocType            = MustIntern(0x4282, "DocType")
	IDDocTypeVersion     = MustIntern(0x4287, "DocTypeVersion")
	IDDocTypeReadVersion = MustIntern(0x4285, "DocTypeReadVersion")
	IDVoid               = MustIntern(0xEC, "Void")
	IDCRC32              = MustIntern(0xBF, "CRC-32")
)

// Matroska segment.
var (
	IDSegment      = MustIntern(0x18538067, "Segment")
	IDSeekHead     = MustIntern(0x114D9B74, "SeekHead")
	IDSeek         = MustIntern(0x4DBB, "Seek")
	IDSeekID       = MustIntern(0x53AB, "SeekID")
	IDSeekPosition = MustIntern(0x53AC, "SeekPosition")

	IDInfo          = MustIntern(0x1549A966, "Info")
	IDTimecodeScale = MustIntern(0x2AD7B1, "TimecodeScale")
	IDDuration      = MustIntern(0x4489, "Duration")
	IDTitle         = MustIntern(0x7BA9, "Title")
	IDMuxingApp     = MustIntern(0x4D80, "MuxingApp")
	IDWritingApp    = MustIntern(0x5741, "WritingApp")
	IDDateUTC       = MustIntern(0x4461, "DateUTC")
	IDSegmentUID    = MustIntern(0x73A4, "SegmentUID")

	IDTracks            = MustIntern(0x1654AE6B, "Tracks")
	IDTrackEntry        = MustIntern(0xAE, "TrackEntry")
	IDTrackNumber       = MustIntern(0xD7, "TrackNumber")
	IDTrackUID          = MustIntern(0x73C5, "TrackUID")
	IDTrackType         = MustIntern(0x83, "TrackType")
	IDFlagEnabled       = MustIntern(0xB9, "FlagEnabled")
	IDFlagDefault       = MustIntern(0x88, "FlagDefault")
	IDFlagLacing        = MustIntern(0x9C, "FlagLacing")
	IDDefaultDuration   = MustIntern(0x23E383, "DefaultDuration")
	IDName              = MustIntern(0x536E, "Name")
	IDLanguage          = MustIntern(0x22B59C, "Language")
	IDCodecID           = MustIntern(0x86, "CodecID")
	IDCodecPrivate      = MustIntern(0x63A2, "CodecPrivate")
	IDCodecName         = MustIntern(0x258688, "CodecName")
	IDVideo             = MustIntern(0xE0, "Video")
	IDPixelWidth        = MustIntern(0xB0, "PixelWidth")
	IDPixelHeight       = MustIntern(0xBA, "PixelHeight")
	IDDisplayWidth      = MustIntern(0x54B0, "DisplayWidth")
	IDDisplayHeight     = MustIntern(0x54BA, "DisplayHeight")
	IDAudio             = MustIntern(0xE1, "Audio")
	IDSamplingFrequency = MustIntern(0xB5, "SamplingFrequency")
	IDChannels          = MustIntern(0x9F, "Channels")
	IDBitDepth          = MustIntern(0x6264, "BitDepth")

	IDCluster        = MustIntern(0x1F43B675, "Cluster")
	IDTimecode       = MustIntern(0xE7, "Timecode")
	IDPosition       = MustIntern(0xA7, "Position")
	IDPrevSize       = MustIntern(0xAB, "PrevSize")
	IDSimpleBlock    = MustIntern(0xA3, "SimpleBlock")
	IDBlockGroup     = MustIntern(0xA0, "BlockGroup")
	IDBlock          = MustIntern(0xA1, "Block")
	IDBlockDuration  = MustIntern(0x9B, "BlockDuration")
	IDReferenceBlock = MustIntern(0xFB, "ReferenceBlock")

	IDCues               = MustIntern(0x1C53BB6B, "Cues")
	IDCuePoint           = MustIntern(0xBB, "CuePoint")
	IDCueTime            = MustIntern(0xB3, "CueTime")
	IDCueTrackPositions  = MustIntern(0xB7, "CueTrackPositions")
	IDCueTrack           = MustIntern(0xF7, "CueTrack")
	IDCueClusterPosition = MustIntern(0xF1, "CueClusterPosition")

	IDChapters         = MustIntern(0x1043A770, "Chapters")
	IDEditionEntry     = MustIntern(0x45B9, "EditionEntry")
	IDChapterAtom      = MustIntern(0xB6, "ChapterAtom")
	IDChapterUID       = MustIntern(0x73C4, "ChapterUID")
	IDChapterTimeStart = MustIntern(0x91, "ChapterTimeStart")
	IDChapterTimeEnd   = MustIntern(0x92, "ChapterTimeEnd")
	IDChapterDisplay   = MustIntern(0x80, "ChapterDisplay")
	IDChapString       = MustIntern(0x85, "ChapString")
	IDChapLanguage     = MustIntern(0x437C, "ChapLanguage")

	IDTags      = MustIntern(0x1254C367, "Tags")
	IDTag       = MustIntern(0x7373, "Tag")
	IDSimpleTag = MustIntern(0x67C8, "SimpleTag")
	IDTagName   = MustIntern(0x45A3, "TagName")
	IDTagString = MustIntern(0x4487, "TagString")

	IDAttachments  = MustIntern(0x1941A469, "Attachments")
	IDAttachedFile = MustIntern(0x61A7, "AttachedFile")
	IDFileName     = MustIntern(0x466E, "FileName")
	IDFileMimeType = MustIntern(0x4660, "FileMimeType")
	IDFileData     = MustIntern(0x465C, "FileData")
)

// Matroska is the element catalog for matroska and webm documents.
var Matroska = NewCatalog(
	Def{ID: IDEBML, Kind: KindMaster, Level: 0},
	Def{ID: IDEBMLVersion, Kind: KindUnsigned, Level: 1},
	Def{ID: IDEBMLReadVersion, Kind: KindUnsigned, Level: 1},
	Def{ID: IDEBMLMaxIDLength, Kind: KindUnsigned, Level: 1},
	Def{ID: IDEBMLMaxSizeLength, Kind: KindUnsigned, Level: 1},
	Def{ID: IDDocType, Kind: KindString, Level: 1},
	Def{ID: IDDocTypeVersion, Kind: KindUnsigned, Level: 1},
	Def{ID: IDDocTypeReadVersion, Kind: KindUnsigned, Level: 1},
	Def{ID: IDVoid, Kind: KindBinary, Level: LevelGlobal},
	Def{ID: IDCRC32, Kind: KindBinary, Level: LevelGlobal},

	Def{ID: IDSegment, Kind: KindMaster, Level: 0},
	Def{ID: IDSeekHead, Kind: KindMaster, Level: 1},
	Def{ID: IDSeek, Kind: KindMaster, Level: 2},
	Def{ID: IDSeekID, Kind: KindBinary, Level: 3},
	Def{ID: IDSeekPosition, Kind: KindUnsigned, Level: 3},

	Def{ID: IDInfo, Kind: KindMaster, Level: 1},
	Def{ID: IDTimecodeScale, Kind: KindUnsigned, Level: 2},
	Def{ID: IDDuration, Kind: KindFloat, Level: 2},
	Def{ID: IDTitle, Kind: KindUTF8, Level: 2},
	Def{ID: IDMuxingApp, Kind: KindUTF8, Level: 2},
	Def{ID: IDWritingApp, Kind: KindUTF8, Level: 2},
	Def{ID: IDDateUTC, Kind: KindDate, Level: 2},
	Def{ID: IDSegmentUID, Kind: KindBinary, Level: 2},

	Def{ID: IDTracks, Kind: KindMaster, Level: 1},
	Def{ID: IDTrackEntry, Kind: KindMaster, Level: 2},
	Def{ID: IDTrackNumber, Kind: KindUnsigned, Level: 3},
	Def{ID: IDTrackUID, Kind: KindUnsigned, Level: 3},
	Def{ID: IDTrackType, Kind: KindUnsigned, Level: 3},
	Def{ID: IDFlagEnabled, Kind: KindUnsigned, Level: 3},
	Def{ID: IDFlagDefault, Kind: KindUnsigned, Level: 3},
	Def{ID: IDFlagLacing, Kind: KindUnsigned, Level: 3},
	Def{ID: IDDefaultDuration, Kind: KindUnsigned, Level: 3},
	Def{ID: IDName, Kind: KindUTF8, Level: 3},
	Def{ID: IDLanguage, Kind: KindString, Level: 3},
	Def{ID: IDCodecID, Kind: KindString, Level: 3},
	Def{ID: IDCodecPrivate, Kind: KindBinary, Level: 3},
	Def{ID: IDCodecName, Kind: KindUTF8, Level: 3},
	Def{ID: IDVideo, Kind: KindMaster, Level: 3},
	Def{ID: IDPixelWidth, Kind: KindUnsigned, Level: 4},
	Def{ID: IDPixelHeight, Kind: KindUnsigned, Level: 4},
	Def{ID: IDDisplayWidth, Kind: KindUnsigned, Level: 4},
	Def{ID: IDDisplayHeight, Kind: KindUnsigned, Level: 4},
	Def{ID: IDAudio, Kind: KindMaster, Level: 3},
	Def{ID: IDSamplingFrequency, Kind: KindFloat, Level: 4},
	Def{ID: IDChannels, Kind: KindUnsigned, Level: 4},
	Def{ID: IDBitDepth, Kind: KindUnsigned, Level: 4},

	Def{ID: IDCluster, Kind: KindMaster, Level: 1},
	Def{ID: IDTimecode, Kind: KindUnsigned, Level: 2},
	Def{ID: IDPosition, Kind: KindUnsigned, Level: 2},
	Def{ID: IDPrevSize, Kind: KindUnsigned, Level: 2},
	Def{ID: IDSimpleBlock, Kind: KindSimpleBlock, Level: 2, Decode: decodeSimpleBlock},
	Def{ID: IDBlockGroup, Kind: KindMaster, Level: 2},
	Def{ID: IDBlock, Kind: KindBlock, Level: 3, Decode: decodeBlock},
	Def{ID: IDBlockDuration, Kind: KindUnsigned, Level: 3},
	Def{ID: IDReferenceBlock, Kind: KindSigned, Level: 3},

	Def{ID: IDCues, Kind: KindMaster, Level: 1},
	Def{ID: IDCuePoint, Kind: KindMaster, Level: 2},
	Def{ID: IDCueTime, Kind: KindUnsigned, Level: 3},
	Def{ID: IDCueTrackPositions, Kind: KindMaster, Level: 3},
	Def{ID: IDCueTrack, Kind: KindUnsigned, Level: 4},
	Def{ID: IDCueClusterPosition, Kind: KindUnsigned, Level: 4},

	Def{ID: IDChapters, Kind: KindMaster, Level: 1},
	Def{ID: IDEditionEntry, Kind: KindMaster, Level: 2},
	Def{ID: IDChapterAtom, Kind: KindMaster, Level: 3},
	Def{ID: IDChapterUID, Kind: KindUnsigned, Level: 4},
	Def{ID: IDChapterTimeStart, Kind: KindUnsigned, Level: 4},
	Def{ID: IDChapterTimeEnd, Kind: KindUnsigned, Level: 4},
	Def{ID: IDChapterDisplay, Kind: KindMaster, Level: 4},
	Def{ID: IDChapString, Kind: KindUTF8, Level: 5},
	Def{ID: IDChapLanguage, Kind: KindString, Level: 5},

	Def{ID: IDTags, Kind: KindMaster, Level: 1},
	Def{ID: IDTag, Kind: KindMaster, Level: 2},
	Def{ID: IDSimpleTag, Kind: KindMaster, Level: 3},
	Def{ID: IDTagName, Kind: KindUTF8, Level: 4},
	Def{ID: IDTagString, Kind: KindUTF8, Level: 4},

	Def{ID: IDAttachments, Kind: KindMaster, Level: 1},
	Def{ID: IDAttachedFile, Kind: KindMaster, Level: 2},
	Def{ID: IDFileName, Kind: KindUTF8, Level: 3},
	Def{ID: IDFileMimeType, Kind: KindString, Level: 3},
	Def{ID: IDFileData, Kind: KindBinary, Level: 3},
)
