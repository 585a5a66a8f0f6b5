package main

import (
	"os"

	"bwfcore/internal/metadata"
	"bwfcore/internal/pcm"
	"bwfcore/internal/rewriter"
	"bwfcore/internal/riff"
)

// writeWAV encodes audio at rec's bit depth, wraps it in a minimal
// fmt+data container, and hands it to rewriter.Save to fill in
// bext/iXML/cue from rec.
func writeWAV(path string, rec metadata.Record, audio []float32) error {
	payload, err := pcm.Encode(audio, rec.BitDepth, rec.Float)
	if err != nil {
		return err
	}

	return writeWAVRaw(path, rec, payload)
}

// writeWAVRaw writes an already-encoded audio payload verbatim, for
// callers (the Range Extractor) whose byte-exact slicing requirement
// would be broken by a decode/re-encode round trip.
func writeWAVRaw(path string, rec metadata.Record, payload []byte) error {
	f := riff.Fmt{
		Channels:      rec.Channels,
		SampleRate:    rec.SampleRate,
		BitsPerSample: rec.BitDepth,
		Float:         rec.Float,
	}

	container := buildMinimalContainer(riff.SynthesizeFmt(f), payload)

	if err := os.WriteFile(path, container, 0o644); err != nil {
		return err
	}

	return rewriter.New().Save(path, rec, rewriter.Repack{})
}

// buildMinimalContainer assembles a bare RIFF/WAVE file with only fmt and
// data chunks, the starting point rewriter.Save fills bext/iXML/cue into.
func buildMinimalContainer(fmtPayload, audio []byte) []byte {
	var body []byte

	body = append(body, []byte("fmt ")...)
	body = append(body, leUint32(uint32(len(fmtPayload)))...)
	body = append(body, fmtPayload...)

	if len(fmtPayload)%2 != 0 {
		body = append(body, 0)
	}

	body = append(body, []byte("data")...)
	body = append(body, leUint32(uint32(len(audio)))...)
	body = append(body, audio...)

	if len(audio)%2 != 0 {
		body = append(body, 0)
	}

	out := make([]byte, 0, 12+len(body))
	out = append(out, []byte("RIFF")...)
	out = append(out, leUint32(uint32(4+len(body)))...)
	out = append(out, []byte("WAVE")...)
	out = append(out, body...)

	return out
}

func leUint32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
