package rewriter

import (
	"os"
	"path/filepath"
	"testing"

	"bwfcore/internal/bwftest"
	"bwfcore/internal/metadata"
	"bwfcore/internal/rational"
	"bwfcore/internal/riff"
)

func writeTempWAV(t *testing.T, opts bwftest.Options) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "source.wav")

	if err := os.WriteFile(path, bwftest.NewWAV(opts), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	return path
}

func TestSave_PreservesAudioWhenNoRepack(t *testing.T) {
	t.Parallel()

	opts := bwftest.DefaultOptions()
	path := writeTempWAV(t, opts)

	original, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	chunks, err := riff.Walk(original)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	dataChunk, _ := riff.FindChunk(chunks, "data")
	originalAudio := append([]byte(nil), riff.Payload(original, dataChunk)...)

	rec := metadata.Record{
		SampleRate:    opts.SampleRate,
		BitDepth:      opts.BitDepth,
		Channels:      opts.Channels,
		TimeReference: 48000,
		FPSExact:      rational.New(24, 1),
		TrackNames:    []string{"Boom", "Lav"},
		Scene:         "5", Take: "2",
	}

	rw := New()
	if err := rw.Save(path, rec, Repack{}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(after save): %v", err)
	}

	chunks2, err := riff.Walk(out)
	if err != nil {
		t.Fatalf("Walk(after save): %v", err)
	}

	dataChunk2, ok := riff.FindChunk(chunks2, "data")
	if !ok {
		t.Fatalf("no data chunk after save")
	}

	newAudio := riff.Payload(out, dataChunk2)
	if len(newAudio) != len(originalAudio) {
		t.Fatalf("audio length changed: %d vs %d", len(newAudio), len(originalAudio))
	}

	for i := range originalAudio {
		if newAudio[i] != originalAudio[i] {
			t.Fatalf("audio byte %d changed: %d vs %d", i, newAudio[i], originalAudio[i])
		}
	}

	bextChunk, ok := riff.FindChunk(chunks2, "bext")
	if !ok {
		t.Fatalf("no bext chunk after save")
	}

	_ = bextChunk
}

func TestSave_Repack16To24(t *testing.T) {
	t.Parallel()

	opts := bwftest.DefaultOptions()
	opts.BitDepth = 16
	path := writeTempWAV(t, opts)

	rec := metadata.Record{
		SampleRate: opts.SampleRate,
		BitDepth:   24,
		Channels:   opts.Channels,
		FPSExact:   rational.New(24, 1),
		TrackNames: []string{"Boom", "Lav"},
	}

	rw := New()
	if err := rw.Save(path, rec, Repack{Enabled: true, BitDepth: 24}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	chunks, err := riff.Walk(out)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	fmtChunk, _ := riff.FindChunk(chunks, "fmt ")

	f, err := riff.ParseFmt(riff.Payload(out, fmtChunk))
	if err != nil {
		t.Fatalf("ParseFmt: %v", err)
	}

	if f.BitsPerSample != 24 {
		t.Errorf("BitsPerSample = %d, want 24", f.BitsPerSample)
	}
}

func TestSave_FileTooLarge(t *testing.T) {
	t.Parallel()

	path := writeTempWAV(t, bwftest.DefaultOptions())

	rw := New(WithMaxEditableSize(10))
	if err := rw.Save(path, metadata.Record{FPSExact: rational.New(24, 1)}, Repack{}); err == nil {
		t.Fatal("Save = nil error, want ErrFileTooLarge")
	}
}
