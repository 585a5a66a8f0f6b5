// Package ixml reads, validates, repairs, and writes the iXML production
// metadata chunk. iXML is free-form XML rooted at <BWFXML>; this codec
// understands a bounded set of elements (scene/take/tape/project, the
// SPEED/NOTE speed block, the track list, and sync points) and preserves
// everything else verbatim across a parse/synthesize round trip.
package ixml

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"bwfcore/internal/rational"
)

// Errors returned by this package.
var (
	ErrMalformed  = errors.New("ixml: not parseable as XML")
	ErrIncomplete = errors.New("ixml: well-formed but missing required elements")
)

const rootElement = "BWFXML"

// Fields is the set of known values extracted from an iXML document.
type Fields struct {
	Project string
	Scene   string
	Take    string
	Tape    string
	Note    string

	FrameRate     rational.Rat
	HasFrameRate  bool
	DropFrame     bool
	FileSampleRate uint64
	AudioBitDepth  int
	TimeReference  uint64
	HasTimeReference bool

	TrackCount int
	TrackNames []string
}

// Facts are the authoritative values supplied by the caller (derived from
// fmt /bext, not from iXML) that Repair and Synthesize fall back to.
type Facts struct {
	SampleRate    uint64
	BitDepth      int
	Channels      int
	TimeReference uint64
	FrameRate     rational.Rat
	TrackNames    []string
}

// Validation is the result of validating a parsed document.
type Validation struct {
	// Complete is false when the document was structurally truncated (for
	// example a missing closing tag). A document whose root is not BWFXML
	// is not validated at all: Parse fails with ErrMalformed.
	Complete bool
}

// NeedsRepair reports whether the document should be offered for repair.
func (v Validation) NeedsRepair() bool {
	return !v.Complete
}

// Document is a parsed iXML document: the extracted known Fields plus the
// full node tree, so unknown elements and any embedded MIXER_STATE survive
// into Synthesize.
type Document struct {
	Fields Fields
	root   *Node
}

// Parse parses iXML text. Malformed input (nothing recognizable as XML)
// fails with ErrMalformed. A structurally incomplete document (e.g. a
// missing closing tag) is still returned, with Validation.Complete false,
// because the caller may still want its partial fields and a repair
// suggestion — this is the tolerant behavior spec.md's iXML codec
// requires.
func Parse(text string) (*Document, Validation, error) {
	root, complete, err := parseTree([]byte(text))
	if err != nil {
		return nil, Validation{}, err
	}

	if root.Name != rootElement {
		return nil, Validation{}, fmt.Errorf("%w: root element %q, want %q", ErrMalformed, root.Name, rootElement)
	}

	doc := &Document{root: root}
	doc.Fields = extractFields(root)

	return doc, Validation{Complete: complete}, nil
}

func extractFields(root *Node) Fields {
	var f Fields

	if n := root.child("PROJECT"); n != nil {
		f.Project = n.Text
	}

	if n := root.child("SCENE"); n != nil {
		f.Scene = n.Text
	}

	if n := root.child("TAKE"); n != nil {
		f.Take = n.Text
	}

	if n := root.child("TAPE"); n != nil {
		f.Tape = n.Text
	}

	if n := root.child("NOTE"); n != nil {
		f.Note = n.Text
	}

	if n := root.at("SPEED", "NOTE", "TIMECODE_RATE"); n != nil {
		if r, ok := parseRateText(n.Text); ok {
			f.FrameRate = r
			f.HasFrameRate = true
		}
	}

	if n := root.at("SPEED", "NOTE", "TIMECODE_FLAG"); n != nil {
		f.DropFrame = strings.EqualFold(n.Text, "DF")
	}

	if n := root.at("SPEED", "NOTE", "FILE_SAMPLE_RATE"); n != nil {
		if v, err := strconv.ParseUint(n.Text, 10, 64); err == nil {
			f.FileSampleRate = v
		}
	}

	if n := root.at("SPEED", "NOTE", "AUDIO_BIT_DEPTH"); n != nil {
		if v, err := strconv.Atoi(n.Text); err == nil {
			f.AudioBitDepth = v
		}
	}

	hi, hiOK := root.at("SPEED", "NOTE", "TIMESTAMP_SAMPLES_SINCE_MIDNIGHT_HI"), false
	lo, loOK := root.at("SPEED", "NOTE", "TIMESTAMP_SAMPLES_SINCE_MIDNIGHT_LO"), false

	var hiVal, loVal uint64

	if hi != nil {
		if v, err := strconv.ParseUint(hi.Text, 10, 32); err == nil {
			hiVal, hiOK = v, true
		}
	}

	if lo != nil {
		if v, err := strconv.ParseUint(lo.Text, 10, 32); err == nil {
			loVal, loOK = v, true
		}
	}

	if hiOK && loOK {
		f.TimeReference = hiVal<<32 | loVal
		f.HasTimeReference = true
	}

	if n := root.at("TRACK_LIST", "TRACK_COUNT"); n != nil {
		if v, err := strconv.Atoi(n.Text); err == nil {
			f.TrackCount = v
		}
	}

	if list := root.child("TRACK_LIST"); list != nil {
		tracks := list.childrenNamed("TRACK")
		names := make([]string, len(tracks))

		for i, tr := range tracks {
			idx := i
			if ci := tr.child("INTERLEAVE_INDEX"); ci != nil {
				if v, err := strconv.Atoi(ci.Text); err == nil && v >= 1 && v <= len(tracks) {
					idx = v - 1
				}
			}

			name := ""
			if nm := tr.child("NAME"); nm != nil {
				name = nm.Text
			}

			if idx >= 0 && idx < len(names) {
				names[idx] = name
			}
		}

		f.TrackNames = names
	}

	return f
}

func parseRateText(s string) (rational.Rat, bool) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return rational.Rat{}, false
	}

	num, err1 := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	den, err2 := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)

	if err1 != nil || err2 != nil || den == 0 {
		return rational.Rat{}, false
	}

	return rational.New(num, den), true
}

func formatRate(r rational.Rat) string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Synthesize renders the document back to text, preserving unknown
// elements (including any embedded MIXER_STATE) untouched.
func (d *Document) Synthesize() string {
	return serialize(d.root)
}

// applyFacts writes Facts into the known-element positions of the tree,
// used by both Repair and New.
func applyFacts(root *Node, facts Facts, trackNames []string) {
	speed := root.ensure("SPEED", "NOTE")
	speed.setText("TIMECODE_RATE", formatRate(facts.FrameRate))
	speed.setText("FILE_SAMPLE_RATE", strconv.FormatUint(facts.SampleRate, 10))
	speed.setText("AUDIO_BIT_DEPTH", strconv.Itoa(facts.BitDepth))
	speed.setText("TIMESTAMP_SAMPLES_SINCE_MIDNIGHT_HI", strconv.FormatUint(facts.TimeReference>>32, 10))
	speed.setText("TIMESTAMP_SAMPLES_SINCE_MIDNIGHT_LO", strconv.FormatUint(facts.TimeReference&0xFFFFFFFF, 10))

	if len(trackNames) == 0 {
		trackNames = facts.TrackNames
	}

	if facts.Channels > 0 {
		writeTrackList(root, facts.Channels, trackNames)
	}
}

func writeTrackList(root *Node, channels int, names []string) {
	root.removeChild("TRACK_LIST")

	list := root.ensure("TRACK_LIST")
	list.setText("TRACK_COUNT", strconv.Itoa(channels))

	for i := 0; i < channels; i++ {
		name := fmt.Sprintf("Track %d", i+1)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}

		track := &Node{Name: "TRACK"}
		track.setText("CHANNEL_INDEX", strconv.Itoa(i+1))
		track.setText("INTERLEAVE_INDEX", strconv.Itoa(i+1))
		track.setText("NAME", name)
		list.Children = append(list.Children, track)
	}
}

// Repair produces a well-formed document from broken input text, preserving
// whatever extractable fields it can and filling the rest from facts. It is
// only ever applied on explicit command (spec.md §4.4), never silently.
func Repair(text string, facts Facts) (string, error) {
	root, _, err := parseTree([]byte(text))
	if err != nil {
		// Nothing usable survived; synthesize a fresh document from facts.
		return New(facts, nil), nil
	}

	if root.Name != rootElement {
		root = &Node{Name: rootElement, Children: root.Children}
	}

	existing := extractFields(root)
	applyFacts(root, facts, existing.TrackNames)

	root.setText("SCENE", existing.Scene)
	root.setText("TAKE", existing.Take)
	root.setText("TAPE", existing.Tape)
	root.setText("PROJECT", existing.Project)
	root.setText("NOTE", existing.Note)

	return serialize(root), nil
}

// New synthesizes a complete iXML document from scratch, using bext-derived
// track names as a fallback when the caller supplies none.
func New(facts Facts, trackNames []string) string {
	root := &Node{Name: rootElement}
	applyFacts(root, facts, trackNames)

	return serialize(root)
}

// FrameRateOrDefault returns the document's frame rate, or timecode's
// default of 24/1 if the document did not carry one, mirroring the
// Reconciler's fallback order in spec.md §4.6.
func (f Fields) FrameRateOrDefault() rational.Rat {
	if f.HasFrameRate {
		return f.FrameRate
	}

	return rational.New(24, 1)
}
