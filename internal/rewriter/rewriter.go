// Package rewriter implements the WAV save state machine: given a
// metadata.Record and optionally a replacement audio payload, it rebuilds
// a BWF file with updated bext/iXML/cue chunks while preserving fmt and
// data verbatim unless a bit-depth repack was requested, and writes the
// result atomically (temp file + rename), the way the teacher's
// irformat writer stages output before committing it.
package rewriter

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"bwfcore/internal/bext"
	"bwfcore/internal/cue"
	"bwfcore/internal/ixml"
	"bwfcore/internal/metadata"
	"bwfcore/internal/pcm"
	"bwfcore/internal/riff"
)

// ErrFileTooLarge is returned when the source file exceeds the configured
// editable-size cutoff.
var ErrFileTooLarge = errors.New("rewriter: file exceeds editable size limit")

const defaultMaxEditableSize = 2 << 30 // 2 GiB

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithMaxEditableSize overrides the editable-size cutoff.
func WithMaxEditableSize(n int64) Option {
	return func(rw *Rewriter) { rw.maxEditableSize = n }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(rw *Rewriter) { rw.logger = l }
}

// Rewriter rebuilds BWF files from a metadata.Record.
type Rewriter struct {
	maxEditableSize int64
	logger          *slog.Logger
}

// New builds a Rewriter with the given options.
func New(opts ...Option) *Rewriter {
	rw := &Rewriter{
		maxEditableSize: defaultMaxEditableSize,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		opt(rw)
	}

	return rw
}

// Repack describes an optional bit-depth/format change applied to the
// audio payload during Save. A zero value performs no repack.
type Repack struct {
	Enabled  bool
	BitDepth int
	Float    bool
}

// Save rewrites path's BWF container from r's metadata, optionally
// repacking the audio payload, and atomically replaces the file.
func (rw *Rewriter) Save(path string, r metadata.Record, repack Repack) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("rewriter: stat %s: %w", path, err)
	}

	if info.Size() > rw.maxEditableSize {
		return fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, path, info.Size())
	}

	// Source bytes are the sole authoritative payload source; never trust a
	// stale in-memory copy after any prior write.
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("rewriter: read %s: %w", path, err)
	}

	out, sampleCount, err := rw.build(data, r, repack)
	if err != nil {
		return err
	}

	if err := atomicWrite(path, out); err != nil {
		return err
	}

	rw.logger.Info("saved metadata", "file", filepath.Base(path), "stage", "rewriter", "samples", sampleCount)

	return nil
}

// build performs steps 2-7 of the save state machine and returns the new
// file bytes.
func (rw *Rewriter) build(data []byte, r metadata.Record, repack Repack) ([]byte, uint64, error) {
	chunks, err := riff.Walk(data)
	if err != nil {
		return nil, 0, err
	}

	fmtChunk, ok := riff.FindChunk(chunks, "fmt ")
	if !ok {
		return nil, 0, fmt.Errorf("rewriter: source has no fmt chunk")
	}

	srcFmt, err := riff.ParseFmt(riff.Payload(data, fmtChunk))
	if err != nil {
		return nil, 0, err
	}

	dataChunk, ok := riff.FindChunk(chunks, "data")
	if !ok {
		return nil, 0, fmt.Errorf("rewriter: source has no data chunk")
	}

	audioPayload := riff.Payload(data, dataChunk)

	edits := []riff.Edit{}

	newFmt := srcFmt
	if repack.Enabled && (repack.BitDepth != srcFmt.BitsPerSample || repack.Float != srcFmt.Float) {
		samples, err := pcm.Decode(audioPayload, srcFmt.BitsPerSample, srcFmt.Float)
		if err != nil {
			return nil, 0, fmt.Errorf("rewriter: decode for repack: %w", err)
		}

		audioPayload, err = pcm.Encode(samples, repack.BitDepth, repack.Float)
		if err != nil {
			return nil, 0, fmt.Errorf("rewriter: encode for repack: %w", err)
		}

		newFmt.BitsPerSample = repack.BitDepth
		newFmt.Float = repack.Float

		edits = append(edits, riff.Edit{ID: "fmt ", Op: riff.OpReplace, Payload: riff.SynthesizeFmt(newFmt)})
		edits = append(edits, riff.Edit{ID: "data", Op: riff.OpReplace, Payload: audioPayload})
	}

	bextPayload := bext.Synthesize(bext.Fields{
		Description:          bext.DescriptionWithTrackNames(r.TrackNames),
		Originator:           r.Originator,
		OriginatorReference:  r.OriginatorReference,
		OriginationDate:      r.OriginationDate,
		OriginationTime:      r.OriginationTime,
		TimeReference:        r.TimeReference,
		Version:              bext.CurrentVersion,
	})

	edits = append(edits, replaceOrInsert(chunks, "bext", bextPayload)...)

	ixmlText := buildIXML(r)
	edits = append(edits, replaceOrInsert(chunks, "iXML", []byte(ixmlText))...)

	if len(r.CuePoints) > 0 {
		points := make([]cue.Point, len(r.CuePoints))
		for i, m := range r.CuePoints {
			points[i] = cue.Point{ID: m.ID, SampleOffset: uint32(m.Sample)}
		}

		edits = append(edits, replaceOrInsert(chunks, "cue ", cue.Synthesize(points))...)
	}

	sampleCount := r.DurationSamples

	out, err := riff.Rewrite(data, edits, riff.RewriteOptions{SampleCountHint: sampleCount})
	if err != nil {
		return nil, 0, err
	}

	return out, sampleCount, nil
}

func buildIXML(r metadata.Record) string {
	facts := ixml.Facts{
		SampleRate:    r.SampleRate,
		BitDepth:      r.BitDepth,
		Channels:      r.Channels,
		TimeReference: r.TimeReference,
		FrameRate:     r.FPSExact,
		TrackNames:    r.TrackNames,
	}

	if r.HasIXML && !r.NeedsIXMLRepair {
		doc, _, err := ixml.Parse(r.IXMLRaw)
		if err == nil {
			if len(r.CuePoints) > 0 {
				markers := make([]ixml.Marker, len(r.CuePoints))
				for i, m := range r.CuePoints {
					markers[i] = ixml.Marker{Position: m.Sample, Label: m.Label, Type: "USER_INSERTED"}
				}

				ixml.InjectSyncPoints(doc, markers)
			}

			return doc.Synthesize()
		}
	}

	text := ixml.New(facts, r.TrackNames)

	doc, _, err := ixml.Parse(text)
	if err == nil && len(r.CuePoints) > 0 {
		markers := make([]ixml.Marker, len(r.CuePoints))
		for i, m := range r.CuePoints {
			markers[i] = ixml.Marker{Position: m.Sample, Label: m.Label, Type: "USER_INSERTED"}
		}

		ixml.InjectSyncPoints(doc, markers)

		return doc.Synthesize()
	}

	return text
}

// replaceOrInsert replaces id if present, else inserts it after "fmt "
// and before "data", per spec.md's fixed insertion position.
func replaceOrInsert(chunks []riff.Chunk, id string, payload []byte) []riff.Edit {
	if _, ok := riff.FindChunk(chunks, id); ok {
		return []riff.Edit{{ID: id, Op: riff.OpReplace, Payload: payload}}
	}

	return []riff.Edit{{ID: id, Op: riff.OpInsertAfter, Ref: "fmt ", Payload: payload}}
}

// atomicWrite writes data to a temp file in the same directory as path and
// renames it into place, so a crash mid-write never leaves path truncated.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".bwfcore-tmp-*")
	if err != nil {
		return fmt.Errorf("rewriter: create temp file: %w", err)
	}

	tmpName := tmp.Name()

	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("rewriter: write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("rewriter: fsync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("rewriter: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rewriter: rename into place: %w", err)
	}

	return nil
}
