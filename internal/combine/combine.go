// Package combine interleaves monophonic sources into one polyphonic BWF
// and deinterleaves a polyphonic source back into mono files, the way the
// teacher's convolution engine's channel-splitting helpers move between
// interleaved and per-channel buffer layouts.
package combine

import (
	"errors"
	"fmt"
	"strings"

	"bwfcore/internal/bext"
	"bwfcore/internal/metadata"
	"bwfcore/internal/pcm"
)

// ErrMismatchedSources is returned when Combine's inputs disagree on
// sample rate, bit depth, duration, or time reference.
var ErrMismatchedSources = errors.New("combine: sources are not compatible")

// Source pairs a record with its decoded mono audio.
type Source struct {
	Record metadata.Record
	Audio  []float32 // mono, one sample per frame
}

// Result is a freshly combined or split file: its record plus the decoded
// float32 samples, which still have to be encoded before a file is written.
type Result struct {
	Record metadata.Record
	Audio  []float32 // interleaved for Combine, mono for each Split output
}

// Combine interleaves n >= 2 monophonic sources sharing sample rate, bit
// depth, duration, and timeReference into one polyphonic Result. order, if
// non-nil, permutes which source maps to which output channel; its length
// must equal len(sources).
func Combine(sources []Source, order []int) (Result, error) {
	if len(sources) < 2 {
		return Result{}, fmt.Errorf("%w: need at least 2 sources, got %d", ErrMismatchedSources, len(sources))
	}

	first := sources[0].Record

	for _, s := range sources[1:] {
		r := s.Record
		if r.SampleRate != first.SampleRate || r.BitDepth != first.BitDepth ||
			r.DurationSamples != first.DurationSamples || r.TimeReference != first.TimeReference {
			return Result{}, fmt.Errorf("%w: %q disagrees with %q", ErrMismatchedSources, r.Filename, first.Filename)
		}
	}

	perm := order
	if perm == nil {
		perm = make([]int, len(sources))
		for i := range perm {
			perm[i] = i
		}
	}

	if len(perm) != len(sources) {
		return Result{}, fmt.Errorf("%w: channel order length %d != %d sources", ErrMismatchedSources, len(perm), len(sources))
	}

	n := len(sources)
	frames := int(first.DurationSamples)
	interleaved := make([]float32, frames*n)

	trackNames := make([]string, n)

	for outCh, srcIdx := range perm {
		src := sources[srcIdx]

		for frame := 0; frame < frames; frame++ {
			interleaved[frame*n+outCh] = src.Audio[frame]
		}

		trackNames[outCh] = firstTrackName(src.Record, outCh)
	}

	rec := first
	rec.Channels = n
	rec.TrackNames = trackNames
	rec.AudioDataSize = uint64(frames * n * bytesPerSample(first.BitDepth))

	return Result{Record: rec, Audio: interleaved}, nil
}

// Split deinterleaves one polyphonic source into one mono Result per
// channel, named "<base>_<k+1>.wav".
func Split(src metadata.Record, interleaved []float32, baseName string) ([]Result, error) {
	n := src.Channels
	if n < 1 {
		return nil, fmt.Errorf("combine: split source has %d channels", n)
	}

	frames := len(interleaved) / n
	results := make([]Result, n)

	for ch := 0; ch < n; ch++ {
		mono := make([]float32, frames)
		for frame := 0; frame < frames; frame++ {
			mono[frame] = interleaved[frame*n+ch]
		}

		name := src.TrackNames
		trackName := fmt.Sprintf("Track %d", ch+1)

		if ch < len(name) && name[ch] != "" {
			trackName = name[ch]
		}

		rec := src
		rec.Channels = 1
		rec.TrackNames = []string{trackName}
		rec.AudioDataSize = uint64(frames * bytesPerSample(src.BitDepth))
		rec.Filename = fmt.Sprintf("%s_%d.wav", strings.TrimSuffix(baseName, ".wav"), ch+1)
		rec.Description = bext.DescriptionWithTrackNames([]string{trackName})

		results[ch] = Result{Record: rec, Audio: mono}
	}

	return results, nil
}

func firstTrackName(r metadata.Record, fallbackIdx int) string {
	if len(r.TrackNames) > 0 && r.TrackNames[0] != "" {
		return r.TrackNames[0]
	}

	return fmt.Sprintf("Track %d", fallbackIdx+1)
}

func bytesPerSample(bitDepth int) int {
	return (bitDepth + 7) / 8
}

// DecodeMono decodes a mono source's audio payload using pcm, a thin
// convenience wrapper so callers don't need to import pcm directly just to
// build a Source.
func DecodeMono(payload []byte, bitDepth int, float bool) ([]float32, error) {
	return pcm.Decode(payload, bitDepth, float)
}
