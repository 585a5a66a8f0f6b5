package pipeline

import (
	"fmt"
	"math"

	"bwfcore/internal/metadata"
)

// Normalize finds audio's peak absolute amplitude and scales every sample
// by 10^(targetDB/20)/peak. Fails with ErrFileIsSilent when peak is zero,
// since no scalar gain can bring silence up to targetDB.
func Normalize(rec metadata.Record, audio []float32, targetDB float64) (metadata.Record, []float32, error) {
	var peak float32

	for _, s := range audio {
		a := s
		if a < 0 {
			a = -a
		}

		if a > peak {
			peak = a
		}
	}

	if peak == 0 {
		return metadata.Record{}, nil, fmt.Errorf("%w: %s", ErrFileIsSilent, rec.Filename)
	}

	gain := float32(math.Pow(10, targetDB/20) / float64(peak))

	out := make([]float32, len(audio))
	for i, s := range audio {
		out[i] = s * gain
	}

	return rec, out, nil
}
