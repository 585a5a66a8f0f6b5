package pipeline

import (
	"errors"
	"fmt"
	"math"

	"bwfcore/internal/bext"
	"bwfcore/internal/combine"
)

// ErrNoTracksToMix is returned when SummedMix is handed fewer than 2
// tracks.
var ErrNoTracksToMix = errors.New("pipeline: summed mix needs at least 2 tracks")

// SummedMix produces one mono mix-down of tracks, attenuated by
// 0.9/sqrt(N) per input channel to leave headroom against clipping when
// all sources peak simultaneously. Output is named "<sceneTake>_mix.wav".
// Tracks are expected to already share sampleRate, bitDepth,
// durationSamples, and timeReference, the same precondition combine.Combine
// enforces for the group they came from.
func SummedMix(tracks []combine.Source, sceneTake string) (combine.Result, error) {
	if len(tracks) < 2 {
		return combine.Result{}, fmt.Errorf("%w: got %d", ErrNoTracksToMix, len(tracks))
	}

	n := len(tracks)
	gain := float32(0.9 / math.Sqrt(float64(n)))

	frames := len(tracks[0].Audio)
	for _, t := range tracks[1:] {
		if len(t.Audio) < frames {
			frames = len(t.Audio)
		}
	}

	mono := make([]float32, frames)
	for _, t := range tracks {
		for i := 0; i < frames; i++ {
			mono[i] += t.Audio[i] * gain
		}
	}

	first := tracks[0].Record

	rec := first
	rec.Channels = 1
	rec.TrackNames = []string{"Mix"}
	rec.AudioDataSize = uint64(frames) * uint64(bytesPerSample(first.BitDepth))
	rec.Filename = fmt.Sprintf("%s_mix.wav", sceneTake)
	rec.Description = bext.DescriptionWithTrackNames([]string{"Mix"})

	return combine.Result{Record: rec, Audio: mono}, nil
}

// CombineWithMix interleaves tracks into one polyphonic Result via
// combine.Combine, optionally prepending mix as channel 0 when non-nil
// (Combine stage's "placement = embed" option).
func CombineWithMix(tracks []combine.Source, mix *combine.Source) (combine.Result, error) {
	sources := tracks
	if mix != nil {
		sources = make([]combine.Source, 0, len(tracks)+1)
		sources = append(sources, *mix)
		sources = append(sources, tracks...)
	}

	return combine.Combine(sources, nil)
}

func bytesPerSample(bitDepth int) int {
	return (bitDepth + 7) / 8
}
