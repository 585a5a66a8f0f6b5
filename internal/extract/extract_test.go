package extract

import (
	"testing"

	"bwfcore/internal/metadata"
	"bwfcore/internal/rational"
)

func sourceRecord() metadata.Record {
	return metadata.Record{
		Filename:        "source.wav",
		SampleRate:      48000,
		BitDepth:        16,
		Channels:        1,
		TimeReference:   172_972_800, // 01:00:00:00 at 29.97 (108000 frames x 1601.6 samples)
		DurationSamples: 48000 * 60,
		FPSExact:        rational.New(30000, 1001),
		TrackNames:      []string{"Mix"},
	}
}

func TestExtract_FullOverlap(t *testing.T) {
	t.Parallel()

	src := sourceRecord()

	// Build synthetic audio: one byte-identifiable pattern per sample so we
	// can check the slice is byte-exact.
	audio := make([]byte, src.DurationSamples*2)
	for i := range audio {
		audio[i] = byte(i)
	}

	startTC := "01:00:10:00"
	endTC := "01:00:20:00"

	result, err := Extract(Request{Source: src, StartTC: startTC, EndTC: endTC}, audio, 0, false)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if result.Record.DurationSamples == 0 {
		t.Fatalf("DurationSamples = 0")
	}

	wantOffset := int(result.SampleOffset) * 2
	wantLen := int(result.Record.DurationSamples) * 2

	if len(result.AudioPayload) != wantLen {
		t.Fatalf("len(AudioPayload) = %d, want %d", len(result.AudioPayload), wantLen)
	}

	for i := 0; i < wantLen; i++ {
		if result.AudioPayload[i] != audio[wantOffset+i] {
			t.Fatalf("byte %d mismatch: got %d, want %d", i, result.AudioPayload[i], audio[wantOffset+i])
		}
	}

	if result.Record.TimeReference < src.TimeReference {
		t.Errorf("output TimeReference %d precedes source start %d", result.Record.TimeReference, src.TimeReference)
	}
}

func TestExtract_RangeOutsideFile(t *testing.T) {
	t.Parallel()

	src := sourceRecord()
	audio := make([]byte, src.DurationSamples*2)

	_, err := Extract(Request{Source: src, StartTC: "02:00:00:00", EndTC: "02:01:00:00"}, audio, 0, false)
	if err == nil {
		t.Fatal("Extract = nil error, want ErrRangeOutsideFile")
	}
}

func TestExtract_ClampsToSourceWindow(t *testing.T) {
	t.Parallel()

	src := sourceRecord()
	audio := make([]byte, src.DurationSamples*2)

	// Requested window starts before the source and ends after it; the
	// result must clamp to the source's own window.
	result, err := Extract(Request{Source: src, StartTC: "00:00:00:00", EndTC: "23:00:00:00"}, audio, 0, false)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if result.Record.TimeReference != src.TimeReference {
		t.Errorf("TimeReference = %d, want clamped to %d", result.Record.TimeReference, src.TimeReference)
	}

	if result.Record.DurationSamples != src.DurationSamples {
		t.Errorf("DurationSamples = %d, want clamped to %d", result.Record.DurationSamples, src.DurationSamples)
	}
}
