// Package metadata holds the unified per-file metadata record and the
// Reconciler that builds one from parsed bext/iXML/cue/fmt facts,
// mirroring the teacher's convolution-parameter model: one plain struct
// carrying every fact a downstream stage needs, built once up front.
package metadata

import (
	"errors"
	"fmt"
	"math"

	"bwfcore/internal/bext"
	"bwfcore/internal/cue"
	"bwfcore/internal/ixml"
	"bwfcore/internal/rational"
	"bwfcore/internal/timecode"
)

// ErrInconsistent is returned by Reconcile, wrapped, when fmt and iXML
// disagree on sample rate, channel count, or bit depth. The Record returned
// alongside it is fully populated with Inconsistent set, so a caller can
// warn and continue, per the "batch continues on per-file error" contract.
var ErrInconsistent = errors.New("metadata: fmt and iXML disagree")

// CueMarker is a labeled sample position, joining a cue.Point's identity
// and offset with the label carried in the paired iXML sync point.
type CueMarker struct {
	ID     uint32
	Time   float64 // seconds, for UI traversal ordering
	Sample uint64
	Label  string
}

// Record is the unified metadata for one source file.
type Record struct {
	Filename string

	SampleRate    uint64
	BitDepth      int
	Float         bool
	Channels      int
	AudioDataSize uint64
	FileSize      uint64

	TimeReference   uint64
	DurationSamples uint64
	FPSExact        rational.Rat
	DropFrame       bool

	Scene, Take, Tape, Project, Notes string
	OriginationDate, OriginationTime  string
	Originator, OriginatorReference   string
	Description                      string

	TrackNames []string

	IXMLRaw  string
	BextRaw  bext.Fields
	HasBext  bool
	HasIXML  bool
	CuePoints []CueMarker

	Inconsistent    bool
	NeedsIXMLRepair bool
	IXMLRepairData  string
}

// DurationString formats DurationSamples as "HH:MM:SS".
func (r Record) DurationString() string {
	seconds := float64(r.DurationSamples) / float64(r.SampleRate)
	return timecode.DurationString(seconds)
}

// DurationTC formats DurationSamples as "HH:MM:SS:FF" at the record's rate.
func (r Record) DurationTC() string {
	seconds := float64(r.DurationSamples) / float64(r.SampleRate)
	return timecode.DurationTC(seconds, r.FPSExact)
}

// StartTC formats TimeReference as a timecode string at the record's rate.
func (r Record) StartTC() string {
	return timecode.FromSamples(r.TimeReference, r.SampleRate, r.FPSExact)
}

// Window returns the record's active sample range [start, end).
func (r Record) Window() (start, end uint64) {
	return r.TimeReference, r.TimeReference + r.DurationSamples
}

// bytesPerSample is ceil(bitDepth/8), the Reconciler's derived-duration
// divisor.
func bytesPerSample(bitDepth int) int {
	return int(math.Ceil(float64(bitDepth) / 8))
}

// Reconcile builds a Record from independently parsed chunk facts,
// following spec.md's fixed precedence: fmt wins on format facts, bext
// wins on timeReference, iXML wins on descriptive facts and track names,
// iXML sync points win over the cue chunk.
type ParsedChunks struct {
	Filename string

	SampleRate    uint64
	BitDepth      int
	Float         bool
	Channels      int
	AudioDataSize uint64
	FileSize      uint64

	Bext    bext.Fields
	HasBext bool

	IXMLText string
	HasIXML  bool

	CuePoints []cue.Point
}

func Reconcile(p ParsedChunks) (Record, error) {
	r := Record{
		Filename:      p.Filename,
		SampleRate:    p.SampleRate,
		BitDepth:      p.BitDepth,
		Float:         p.Float,
		Channels:      p.Channels,
		AudioDataSize: p.AudioDataSize,
		FileSize:      p.FileSize,
		HasBext:       p.HasBext,
		HasIXML:       p.HasIXML,
		IXMLRaw:       p.IXMLText,
		BextRaw:       p.Bext,
		FPSExact:      rational.New(24, 1),
	}

	var doc *ixml.Document

	if p.HasIXML {
		d, val, err := ixml.Parse(p.IXMLText)
		if err != nil {
			r.NeedsIXMLRepair = true
		} else {
			doc = d
			r.NeedsIXMLRepair = val.NeedsRepair()

			if val.NeedsRepair() {
				r.IXMLRepairData = d.Synthesize()
			}
		}
	}

	var ixf ixml.Fields
	if doc != nil {
		ixf = doc.Fields

		if (ixf.FileSampleRate != 0 && ixf.FileSampleRate != p.SampleRate) ||
			(ixf.TrackCount != 0 && ixf.TrackCount != p.Channels) ||
			(ixf.AudioBitDepth != 0 && ixf.AudioBitDepth != p.BitDepth) {
			r.Inconsistent = true
		}
	}

	if p.HasBext {
		r.TimeReference = p.Bext.TimeReference
	} else if doc != nil && ixf.HasTimeReference {
		r.TimeReference = ixf.TimeReference
	}

	if doc != nil && ixf.HasFrameRate {
		r.FPSExact = ixf.FrameRate
		r.DropFrame = ixf.DropFrame
	}

	if doc != nil {
		r.Scene, r.Take, r.Tape, r.Project, r.Notes = ixf.Scene, ixf.Take, ixf.Tape, ixf.Project, ixf.Note
	}

	if p.HasBext {
		r.OriginationDate = p.Bext.OriginationDate
		r.OriginationTime = p.Bext.OriginationTime
		r.Originator = p.Bext.Originator
		r.OriginatorReference = p.Bext.OriginatorReference
		r.Description = p.Bext.Description
	}

	r.TrackNames = resolveTrackNames(p.Channels, ixf, p.Bext, p.HasBext)

	if doc != nil {
		r.CuePoints = markersFromSyncPoints(doc.SyncPoints())
	}

	if r.CuePoints == nil && len(p.CuePoints) > 0 {
		r.CuePoints = markersFromCuePoints(p.CuePoints, r.SampleRate, r.FPSExact)
	}

	bps := bytesPerSample(r.BitDepth)
	if r.Channels > 0 && bps > 0 {
		r.DurationSamples = r.AudioDataSize / uint64(r.Channels*bps)
	}

	if r.TimeReference+r.DurationSamples < r.TimeReference {
		return Record{}, fmt.Errorf("metadata: timeReference+duration overflows 64 bits for %q", p.Filename)
	}

	if r.Inconsistent {
		return r, fmt.Errorf("%w: file %q", ErrInconsistent, p.Filename)
	}

	return r, nil
}

func resolveTrackNames(channels int, ixf ixml.Fields, bf bext.Fields, hasBext bool) []string {
	names := make([]string, channels)

	for i := range names {
		if i < len(ixf.TrackNames) && ixf.TrackNames[i] != "" {
			names[i] = ixf.TrackNames[i]
			continue
		}

		if hasBext {
			if fromBext := bext.ExtractTrackNamesFromDescription(bf.Description); i < len(fromBext) && fromBext[i] != "" {
				names[i] = fromBext[i]
				continue
			}
		}

		names[i] = fmt.Sprintf("Track %d", i+1)
	}

	return names
}

func markersFromSyncPoints(sps []ixml.Marker) []CueMarker {
	if len(sps) == 0 {
		return nil
	}

	out := make([]CueMarker, len(sps))
	for i, sp := range sps {
		out[i] = CueMarker{ID: uint32(i + 1), Sample: sp.Position, Label: sp.Label}
	}

	return out
}

func markersFromCuePoints(points []cue.Point, sampleRate uint64, fps rational.Rat) []CueMarker {
	out := make([]CueMarker, len(points))
	for i, p := range points {
		out[i] = CueMarker{ID: p.ID, Sample: uint64(p.SampleOffset)}

		if sampleRate > 0 {
			out[i].Time = float64(p.SampleOffset) / float64(sampleRate)
		}
	}

	return out
}
