package probe

import (
	"errors"
	"fmt"

	"github.com/danmuck/mkvroute/internal/dispatch"
	"github.com/danmuck/mkvroute/internal/ebml"
)

var ErrUnsupportedDocType = errors.New("probe: unsupported doctype")

// NewTable builds the dispatch table for matroska and webm documents.
func NewTable(opts ...dispatch.TableOption) (*dispatch.Table[*Session], error) {
	return dispatch.Build(handlers(), opts...)
}

func handlers() []dispatch.Decl[*Session] {
	return []dispatch.Decl[*Session]{
		// EBML header
		container(ebml.IDEBML),
		stringField(ebml.IDDocType, ebml.KindString, func(s *Session, v string) { s.DocType = v }),
		uintField(ebml.IDDocTypeVersion, func(s *Session, v uint64) { s.DocTypeVersion = v }),
		ignore(ebml.IDEBMLVersion, ebml.KindUnsigned),
		ignore(ebml.IDEBMLReadVersion, ebml.KindUnsigned),
		ignore(ebml.IDEBMLMaxIDLength, ebml.KindUnsigned),
		ignore(ebml.IDEBMLMaxSizeLength, ebml.KindUnsigned),
		ignore(ebml.IDDocTypeReadVersion, ebml.KindUnsigned),
		dispatch.CaseAs(ebml.IDVoid, ebml.KindBinary, skipped),
		dispatch.CaseAs(ebml.IDCRC32, ebml.KindBinary, skipped),

		dispatch.CaseAs(ebml.IDSegment, ebml.KindMaster, checkDocType),
		dispatch.CaseAs(ebml.IDSeekHead, ebml.KindMaster, func(_ *ebml.Node, s *Session) error {
			s.SkipChildren()
			return nil
		}),

		// Info
		container(ebml.IDInfo),
		uintField(ebml.IDTimecodeScale, func(s *Session, v uint64) { s.TimecodeScale = v }),
		floatField(ebml.IDDuration, func(s *Session, v float64) { s.Duration = v }),
		stringField(ebml.IDTitle, ebml.KindUTF8, func(s *Session, v string) { s.Title = v }),
		stringField(ebml.IDMuxingApp, ebml.KindUTF8, func(s *Session, v string) { s.MuxingApp = v }),
		stringField(ebml.IDWritingApp, ebml.KindUTF8, func(s *Session, v string) { s.WritingApp = v }),
		dispatch.CaseAs(ebml.IDDateUTC, ebml.KindDate, func(n *ebml.Node, s *Session) error {
			v, err := n.Date()
			if err != nil {
				return err
			}
			s.DateUTC = v
			return nil
		}),

		// Tracks
		dispatch.CaseAs(ebml.IDTracks, ebml.KindMaster, func(_ *ebml.Node, s *Session) error {
			s.current = nil
			return nil
		}),
		dispatch.CaseAs(ebml.IDTrackEntry, ebml.KindMaster, func(_ *ebml.Node, s *Session) error {
			s.current = &Track{Type: trackTypeName(0)}
			s.Tracks = append(s.Tracks, s.current)
			return nil
		}),
		trackUint(ebml.IDTrackNumber, func(t *Track, v uint64) { t.Number = v }),
		trackUint(ebml.IDTrackUID, func(t *Track, v uint64) { t.UID = v }),
		trackUint(ebml.IDTrackType, func(t *Track, v uint64) { t.Type = trackTypeName(v) }),
		trackString(ebml.IDCodecID, ebml.KindString, func(t *Track, v string) { t.CodecID = v }),
		trackString(ebml.IDLanguage, ebml.KindString, func(t *Track, v string) { t.Language = v }),
		trackString(ebml.IDName, ebml.KindUTF8, func(t *Track, v string) { t.Name = v }),
		container(ebml.IDVideo),
		trackUint(ebml.IDPixelWidth, func(t *Track, v uint64) { t.PixelWidth = v }),
		trackUint(ebml.IDPixelHeight, func(t *Track, v uint64) { t.PixelHeight = v }),
		container(ebml.IDAudio),
		trackUint(ebml.IDChannels, func(t *Track, v uint64) { t.Channels = v }),
		dispatch.CaseAs(ebml.IDSamplingFrequency, ebml.KindFloat, func(n *ebml.Node, s *Session) error {
			if s.current == nil {
				return nil
			}
			v, err := n.Float()
			if err != nil {
				return err
			}
			s.current.SamplingFrequency = v
			return nil
		}),

		// Clusters
		dispatch.CaseAs(ebml.IDCluster, ebml.KindMaster, func(_ *ebml.Node, s *Session) error {
			s.closeGroup()
			s.Clusters++
			s.current = nil
			return nil
		}),
		uintField(ebml.IDTimecode, func(s *Session, v uint64) {
			if s.Clusters <= 1 {
				s.FirstTimecode = v
			}
			s.LastTimecode = v
		}),
		dispatch.CaseAs(ebml.IDBlockGroup, ebml.KindMaster, func(_ *ebml.Node, s *Session) error {
			s.closeGroup()
			s.group = &blockGroup{}
			return nil
		}),
		dispatch.Case(func(b *ebml.SimpleBlock, s *Session) error {
			s.closeGroup()
			s.block(b.BlockHeader, b.Keyframe())
			return nil
		}),
		dispatch.Case(func(b *ebml.Block, s *Session) error {
			g := s.group
			if g == nil {
				s.block(b.BlockHeader, false)
				return nil
			}
			if g.hasBlock {
				s.block(g.header, !g.referenced)
			}
			g.header, g.hasBlock = b.BlockHeader, true
			return nil
		}),
		dispatch.CaseAs(ebml.IDReferenceBlock, ebml.KindSigned, func(_ *ebml.Node, s *Session) error {
			if s.group != nil {
				s.group.referenced = true
			}
			return nil
		}),
		dispatch.CaseAs(ebml.IDSimpleBlock, ebml.KindBinary, corrupt),
		dispatch.CaseAs(ebml.IDBlock, ebml.KindBinary, corrupt),

		// Index and metadata: counted, children skipped
		container(ebml.IDCues),
		counted(ebml.IDCuePoint, func(s *Session) { s.CuePoints++ }),
		container(ebml.IDChapters),
		container(ebml.IDEditionEntry),
		counted(ebml.IDChapterAtom, func(s *Session) { s.Chapters++ }),
		container(ebml.IDTags),
		counted(ebml.IDTag, func(s *Session) { s.Tags++ }),
		container(ebml.IDAttachments),
		counted(ebml.IDAttachedFile, func(s *Session) { s.Attachments++ }),
	}
}

func (s *Session) block(h ebml.BlockHeader, keyframe bool) {
	s.Blocks++
	t := s.Track(h.Track)
	if t == nil {
		s.OrphanBlocks++
		return
	}
	t.Blocks++
	if keyframe {
		t.Keyframes++
	}
	if h.Lacing() != 0 {
		t.Laced++
	}
	if h.Flags&ebml.FlagInvisible != 0 {
		t.Invisible++
	}
	if h.Flags&ebml.FlagDiscardable != 0 {
		t.Discardable++
	}
}

// closeGroup counts the Block of the open BlockGroup, if any.
func (s *Session) closeGroup() {
	g := s.group
	s.group = nil
	if g != nil && g.hasBlock {
		s.block(g.header, !g.referenced)
	}
}

func checkDocType(_ *ebml.Node, s *Session) error {
	switch s.DocType {
	case "matroska", "webm":
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedDocType, s.DocType)
}

func skipped(_ *ebml.Node, s *Session) error {
	s.Skipped++
	return nil
}

func corrupt(_ *ebml.Node, s *Session) error {
	s.CorruptBlocks++
	return nil
}

func container(id ebml.ID) dispatch.Decl[*Session] {
	return ignore(id, ebml.KindMaster)
}

func ignore(id ebml.ID, kind ebml.Kind) dispatch.Decl[*Session] {
	return dispatch.CaseAs(id, kind, func(*ebml.Node, *Session) error { return nil })
}

func counted(id ebml.ID, inc func(*Session)) dispatch.Decl[*Session] {
	return dispatch.CaseAs(id, ebml.KindMaster, func(_ *ebml.Node, s *Session) error {
		inc(s)
		s.SkipChildren()
		return nil
	})
}

func uintField(id ebml.ID, set func(*Session, uint64)) dispatch.Decl[*Session] {
	return dispatch.CaseAs(id, ebml.KindUnsigned, func(n *ebml.Node, s *Session) error {
		v, err := n.Uint()
		if err != nil {
			return err
		}
		set(s, v)
		return nil
	})
}

func floatField(id ebml.ID, set func(*Session, float64)) dispatch.Decl[*Session] {
	return dispatch.CaseAs(id, ebml.KindFloat, func(n *ebml.Node, s *Session) error {
		v, err := n.Float()
		if err != nil {
			return err
		}
		set(s, v)
		return nil
	})
}

func stringField(id ebml.ID, kind ebml.Kind, set func(*Session, string)) dispatch.Decl[*Session] {
	return dispatch.CaseAs(id, kind, func(n *ebml.Node, s *Session) error {
		v, err := n.String()
		if err != nil {
			return err
		}
		set(s, v)
		return nil
	})
}

// Track fields outside a TrackEntry are ignored.
func trackUint(id ebml.ID, set func(*Track, uint64)) dispatch.Decl[*Session] {
	return uintField(id, func(s *Session, v uint64) {
		if s.current != nil {
			set(s.current, v)
		}
	})
}

func trackString(id ebml.ID, kind ebml.Kind, set func(*Track, string)) dispatch.Decl[*Session] {
	return stringField(id, kind, func(s *Session, v string) {
		if s.current != nil {
			set(s.current, v)
		}
	})
}
