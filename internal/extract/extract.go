// Package extract implements sample-accurate audio range extraction: given
// a source record and a requested timecode window, it computes the actual
// overlapping window and slices the source's audio payload byte-for-byte
// when the output bit depth matches the source's.
package extract

import (
	"errors"
	"fmt"

	"bwfcore/internal/bext"
	"bwfcore/internal/metadata"
	"bwfcore/internal/pcm"
	"bwfcore/internal/timecode"
)

// ErrRangeOutsideFile is returned when the requested window does not
// overlap the source's active range at all.
var ErrRangeOutsideFile = errors.New("extract: requested range is outside the source file")

// Request describes one extraction.
type Request struct {
	Source   metadata.Record
	StartTC  string
	EndTC    string
	BitDepth int // not read by Extract; the output depth comes from its bitDepth argument
}

// Result is the extracted output: its new record and raw audio payload.
// The payload is in the source's own bit depth/float-ness unless Extract's
// bitDepth argument is non-zero and differs from the source, in which case
// Extract converts it through pcm.
type Result struct {
	Record       metadata.Record
	AudioPayload []byte
	SampleOffset uint64 // offset into source's data payload, in samples
}

// Extract computes the overlap between the requested window and the
// source's active window, slices the source payload, and builds a fresh
// record (never inheriting ixmlRaw verbatim, since timeReference and
// duration change).
func Extract(req Request, sourceAudio []byte, bitDepth int, float bool) (Result, error) {
	src := req.Source

	startSamples, err := timecode.ToSamples(req.StartTC, src.SampleRate, src.FPSExact)
	if err != nil {
		return Result{}, fmt.Errorf("extract: start timecode: %w", err)
	}

	endSamples, err := timecode.ToSamples(req.EndTC, src.SampleRate, src.FPSExact)
	if err != nil {
		return Result{}, fmt.Errorf("extract: end timecode: %w", err)
	}

	windowStart, windowEnd := src.Window()

	actualStart := max64(startSamples, windowStart)
	actualEnd := min64(endSamples, windowEnd)

	if actualStart >= actualEnd {
		return Result{}, fmt.Errorf("%w: requested [%d,%d), source window [%d,%d)", ErrRangeOutsideFile, startSamples, endSamples, windowStart, windowEnd)
	}

	sampleOffset := actualStart - windowStart
	durationSamples := actualEnd - actualStart

	byteOffset := int(sampleOffset) * src.Channels * ((src.BitDepth + 7) / 8)
	byteLen := int(durationSamples) * src.Channels * ((src.BitDepth + 7) / 8)

	if byteOffset+byteLen > len(sourceAudio) {
		return Result{}, fmt.Errorf("extract: computed slice [%d,%d) exceeds source payload of %d bytes", byteOffset, byteOffset+byteLen, len(sourceAudio))
	}

	slice := sourceAudio[byteOffset : byteOffset+byteLen]

	outPayload := slice
	outBitDepth := src.BitDepth
	outFloat := src.Float

	if bitDepth != 0 && (bitDepth != src.BitDepth || float != src.Float) {
		samples, err := pcm.Decode(slice, src.BitDepth, src.Float)
		if err != nil {
			return Result{}, fmt.Errorf("extract: decode for bit depth conversion: %w", err)
		}

		outPayload, err = pcm.Encode(samples, bitDepth, float)
		if err != nil {
			return Result{}, fmt.Errorf("extract: encode for bit depth conversion: %w", err)
		}

		outBitDepth = bitDepth
		outFloat = float
		byteLen = len(outPayload)
	}

	out := src
	out.TimeReference = actualStart
	out.DurationSamples = durationSamples
	out.AudioDataSize = uint64(byteLen)
	out.BitDepth = outBitDepth
	out.Float = outFloat
	out.IXMLRaw = ""
	out.HasIXML = false
	out.NeedsIXMLRepair = false
	out.CuePoints = nil
	out.Description = bext.DescriptionWithTrackNames(out.TrackNames)

	return Result{Record: out, AudioPayload: outPayload, SampleOffset: sampleOffset}, nil
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}

	return b
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}

	return b
}
