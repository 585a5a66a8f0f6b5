// Package bwftest builds synthetic BWF byte buffers for use in other
// packages' tests, the way the teacher's dsp tests build synthetic
// impulse responses instead of shipping binary fixtures.
package bwftest

import (
	"math"

	"bwfcore/internal/bext"
	"bwfcore/internal/cue"
	"bwfcore/internal/ixml"
	"bwfcore/internal/pcm"
	"bwfcore/internal/rational"
	"bwfcore/internal/riff"
)

// Options describes the file to build.
type Options struct {
	SampleRate    uint64
	BitDepth      int
	Float         bool
	Channels      int
	DurationSec   float64
	TimeReference uint64
	FrameRate     rational.Rat
	TrackNames    []string
	CuePoints     []cue.Point
	SyncMarkers   []ixml.Marker

	// WithBext/WithIXML/WithCue control which optional chunks are written;
	// all are true in DefaultOptions.
	WithBext bool
	WithIXML bool
	WithCue  bool

	// Silence, if true, writes all-zero audio instead of a tone, useful for
	// exercising the FileIsSilent path.
	Silence bool
}

// DefaultOptions returns a one-second, 48kHz/24-bit stereo file at 24fps.
func DefaultOptions() Options {
	return Options{
		SampleRate:  48000,
		BitDepth:    24,
		Channels:    2,
		DurationSec: 1,
		FrameRate:   rational.New(24, 1),
		WithBext:    true,
		WithIXML:    true,
		WithCue:     true,
	}
}

// NewWAV builds a RIFF/WAVE byte buffer per opts.
func NewWAV(opts Options) []byte {
	numSamples := int(opts.SampleRate * uint64(opts.DurationSec))
	samples := make([]float32, numSamples*opts.Channels)

	if !opts.Silence {
		for i := range samples {
			frame := i / opts.Channels
			samples[i] = 0.25 * sineAt(frame, opts.SampleRate)
		}
	}

	audio, err := pcm.Encode(samples, opts.BitDepth, opts.Float)
	if err != nil {
		panic(err)
	}

	fmtPayload := riff.SynthesizeFmt(riff.Fmt{
		Channels:      opts.Channels,
		SampleRate:    opts.SampleRate,
		BitsPerSample: opts.BitDepth,
		Float:         opts.Float,
	})

	trackNames := opts.TrackNames
	if len(trackNames) == 0 {
		trackNames = make([]string, opts.Channels)
		for i := range trackNames {
			trackNames[i] = "Track"
		}
	}

	var edits []riff.Edit

	if opts.WithBext {
		edits = append(edits, riff.Edit{
			ID: "bext", Op: riff.OpInsertAfter, Ref: "fmt ",
			Payload: bext.Synthesize(bext.Fields{
				Description:   bext.DescriptionWithTrackNames(trackNames),
				TimeReference: opts.TimeReference,
				Version:       bext.CurrentVersion,
			}),
		})
	}

	if opts.WithIXML {
		text := ixml.New(ixml.Facts{
			SampleRate:    opts.SampleRate,
			BitDepth:      opts.BitDepth,
			Channels:      opts.Channels,
			TimeReference: opts.TimeReference,
			FrameRate:     opts.FrameRate,
			TrackNames:    trackNames,
		}, nil)

		if len(opts.SyncMarkers) > 0 {
			doc, _, err := ixml.Parse(text)
			if err == nil {
				ixml.InjectSyncPoints(doc, opts.SyncMarkers)
				text = doc.Synthesize()
			}
		}

		edits = append(edits, riff.Edit{ID: "iXML", Op: riff.OpInsertAfter, Ref: "fmt ", Payload: []byte(text)})
	}

	if opts.WithCue && len(opts.CuePoints) > 0 {
		edits = append(edits, riff.Edit{ID: "cue ", Op: riff.OpInsertAfter, Ref: "fmt ", Payload: cue.Synthesize(opts.CuePoints)})
	}

	base := buildMinimal(fmtPayload, audio)

	out, err := riff.Rewrite(base, edits, riff.RewriteOptions{SampleCountHint: uint64(numSamples)})
	if err != nil {
		panic(err)
	}

	return out
}

func buildMinimal(fmtPayload, audio []byte) []byte {
	var buf []byte

	appendChunk := func(id string, payload []byte) {
		buf = append(buf, id...)
		size := uint32(len(payload))
		buf = append(buf, byte(size), byte(size>>8), byte(size>>16), byte(size>>24))
		buf = append(buf, payload...)

		if len(payload)%2 != 0 {
			buf = append(buf, 0)
		}
	}

	appendChunk("fmt ", fmtPayload)
	appendChunk("data", audio)

	total := uint32(4 + len(buf))

	header := []byte("RIFF")
	header = append(header, byte(total), byte(total>>8), byte(total>>16), byte(total>>24))
	header = append(header, "WAVE"...)

	return append(header, buf...)
}

func sineAt(frame int, sampleRate uint64) float32 {
	const freq = 440.0

	t := float64(frame) / float64(sampleRate)

	return float32(math.Sin(2 * math.Pi * freq * t))
}
