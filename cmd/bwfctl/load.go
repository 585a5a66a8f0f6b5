package main

import (
	"fmt"
	"os"

	"bwfcore/internal/bext"
	"bwfcore/internal/cue"
	"bwfcore/internal/metadata"
	"bwfcore/internal/pcm"
	"bwfcore/internal/riff"
)

// loadRecord reads path and reconciles its fmt/bext/iXML/cue chunks into a
// metadata.Record, returning the raw file bytes alongside so callers that
// need the audio payload can slice it without a second read.
func loadRecord(path string) (metadata.Record, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return metadata.Record{}, nil, fmt.Errorf("read %s: %w", path, err)
	}

	chunks, err := riff.Walk(data)
	if err != nil {
		return metadata.Record{}, nil, fmt.Errorf("%s: %w", path, err)
	}

	fmtChunk, ok := riff.FindChunk(chunks, "fmt ")
	if !ok {
		return metadata.Record{}, nil, fmt.Errorf("%s: no fmt chunk", path)
	}

	f, err := riff.ParseFmt(riff.Payload(data, fmtChunk))
	if err != nil {
		return metadata.Record{}, nil, fmt.Errorf("%s: %w", path, err)
	}

	dataChunk, ok := riff.FindChunk(chunks, "data")
	if !ok {
		return metadata.Record{}, nil, fmt.Errorf("%s: no data chunk", path)
	}

	parsed := metadata.ParsedChunks{
		Filename:      path,
		SampleRate:    f.SampleRate,
		BitDepth:      f.BitsPerSample,
		Float:         f.Float,
		Channels:      f.Channels,
		AudioDataSize: dataChunk.Size,
		FileSize:      uint64(len(data)),
	}

	if bextChunk, ok := riff.FindChunk(chunks, "bext"); ok {
		bf, err := bext.Parse(riff.Payload(data, bextChunk))
		if err == nil {
			parsed.Bext = bf
			parsed.HasBext = true
		}
	}

	if ixmlChunk, ok := riff.FindChunk(chunks, "iXML"); ok {
		parsed.IXMLText = string(riff.Payload(data, ixmlChunk))
		parsed.HasIXML = true
	}

	if cueChunk, ok := riff.FindChunk(chunks, "cue "); ok {
		points, err := cue.Parse(riff.Payload(data, cueChunk))
		if err == nil {
			parsed.CuePoints = points
		}
	}

	rec, err := metadata.Reconcile(parsed)
	if err != nil {
		// Reconcile still returns a usable record on ErrInconsistent; the
		// caller decides whether to warn and continue.
		return rec, data, err
	}

	return rec, data, nil
}

// rawAudioPayload slices a record's undecoded data chunk bytes out of its
// source file, for callers (like the Range Extractor) that need byte-exact
// slicing rather than a decode/re-encode round trip.
func rawAudioPayload(rec metadata.Record, data []byte) ([]byte, error) {
	chunks, err := riff.Walk(data)
	if err != nil {
		return nil, err
	}

	dataChunk, ok := riff.FindChunk(chunks, "data")
	if !ok {
		return nil, fmt.Errorf("%s: no data chunk", rec.Filename)
	}

	return riff.Payload(data, dataChunk), nil
}

// decodeAudio slices and decodes a record's audio payload out of its raw
// file bytes to mono/interleaved float32 samples.
func decodeAudio(rec metadata.Record, data []byte) ([]float32, error) {
	payload, err := rawAudioPayload(rec, data)
	if err != nil {
		return nil, err
	}

	return pcm.Decode(payload, rec.BitDepth, rec.Float)
}
