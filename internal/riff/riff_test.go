package riff

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildWAV assembles a minimal RIFF/WAVE buffer with the given chunks, in
// order, after the mandatory "fmt " and "data" chunks.
func buildWAV(t *testing.T, extra ...[2]any) []byte {
	t.Helper()

	var buf bytes.Buffer

	fmtPayload := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtPayload[0:2], 1)
	binary.LittleEndian.PutUint16(fmtPayload[2:4], 2)
	binary.LittleEndian.PutUint32(fmtPayload[4:8], 48000)
	binary.LittleEndian.PutUint32(fmtPayload[8:12], 192000)
	binary.LittleEndian.PutUint16(fmtPayload[12:14], 4)
	binary.LittleEndian.PutUint16(fmtPayload[14:16], 16)

	dataPayload := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	chunks := []builtChunk{
		{id: "fmt ", payload: fmtPayload},
		{id: "data", payload: dataPayload},
	}

	for _, e := range extra {
		chunks = append(chunks, builtChunk{id: e[0].(string), payload: e[1].([]byte)})
	}

	var totalBody uint32
	for _, c := range chunks {
		totalBody += 8 + uint32(len(c.payload))
		if len(c.payload)%2 != 0 {
			totalBody++
		}
	}

	buf.WriteString("RIFF")
	writeU32(&buf, 4+totalBody)
	buf.WriteString("WAVE")

	for _, c := range chunks {
		buf.WriteString(c.id)
		writeU32(&buf, uint32(len(c.payload)))
		buf.Write(c.payload)
		if len(c.payload)%2 != 0 {
			buf.WriteByte(0)
		}
	}

	return buf.Bytes()
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func TestWalk_Basic(t *testing.T) {
	t.Parallel()

	data := buildWAV(t)

	chunks, err := Walk(data)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("Walk returned %d chunks, want 2", len(chunks))
	}

	if chunks[0].ID != "fmt " || chunks[1].ID != "data" {
		t.Fatalf("Walk order = %q, %q", chunks[0].ID, chunks[1].ID)
	}

	if chunks[1].Size != 10 {
		t.Fatalf("data chunk size = %d, want 10", chunks[1].Size)
	}
}

func TestWalk_BadHeader(t *testing.T) {
	t.Parallel()

	if _, err := Walk([]byte("not a riff file at all")); err == nil {
		t.Fatal("Walk on garbage = nil error, want ErrBadRiffHeader")
	}
}

func TestWalk_Truncated(t *testing.T) {
	t.Parallel()

	data := buildWAV(t)
	if _, err := Walk(data[:len(data)-5]); err == nil {
		t.Fatal("Walk on truncated buffer = nil error, want ErrTruncated")
	}
}

func TestFindChunk(t *testing.T) {
	t.Parallel()

	data := buildWAV(t)
	chunks, err := Walk(data)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	c, ok := FindChunk(chunks, "data")
	if !ok {
		t.Fatal("FindChunk(\"data\") not found")
	}

	if !bytes.Equal(Payload(data, c), []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}) {
		t.Fatalf("Payload mismatch")
	}

	if _, ok := FindChunk(chunks, "bext"); ok {
		t.Fatal("FindChunk(\"bext\") unexpectedly found")
	}
}

// TestRewrite_Identity exercises invariant 1: rewriting with no edits
// reproduces the input byte for byte.
func TestRewrite_Identity(t *testing.T) {
	t.Parallel()

	data := buildWAV(t)

	out, err := Rewrite(data, nil, RewriteOptions{})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}

	if !bytes.Equal(out, data) {
		t.Fatalf("Rewrite(data, nil) != data\ngot:  % x\nwant: % x", out, data)
	}
}

func TestRewrite_ReplaceAndInsert(t *testing.T) {
	t.Parallel()

	data := buildWAV(t)

	edits := []Edit{
		{ID: "data", Op: OpReplace, Payload: []byte{9, 9, 9}},
		{ID: "bext", Op: OpInsertAfter, Ref: "fmt ", Payload: bytes.Repeat([]byte{0}, 602)},
	}

	out, err := Rewrite(data, edits, RewriteOptions{})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}

	chunks, err := Walk(out)
	if err != nil {
		t.Fatalf("Walk(out): %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("Walk(out) returned %d chunks, want 3", len(chunks))
	}

	if chunks[0].ID != "fmt " || chunks[1].ID != "bext" || chunks[2].ID != "data" {
		t.Fatalf("unexpected chunk order: %v", chunks)
	}

	dataChunk, _ := FindChunk(chunks, "data")
	if !bytes.Equal(Payload(out, dataChunk), []byte{9, 9, 9}) {
		t.Fatalf("data payload not replaced")
	}
}

// TestRewrite_RF64Promotion exercises invariant 7 and scenario S3: a data
// chunk larger than the classic-size threshold forces RF64 + ds64 output,
// and a data chunk under the threshold does not. MaxClassicSize is lowered
// for the duration of the test so the "huge" case doesn't need a real
// multi-gigabyte buffer.
func TestRewrite_RF64Promotion(t *testing.T) {
	orig := MaxClassicSize
	MaxClassicSize = 1000
	defer func() { MaxClassicSize = orig }()

	data := buildWAV(t)

	smallOut, err := Rewrite(data, []Edit{{ID: "data", Op: OpReplace, Payload: make([]byte, 100)}}, RewriteOptions{})
	if err != nil {
		t.Fatalf("Rewrite (small): %v", err)
	}

	if string(smallOut[0:4]) != "RIFF" {
		t.Fatalf("data chunk under threshold unexpectedly promoted to RF64")
	}

	bigData := make([]byte, 5000)
	out, err := Rewrite(data, []Edit{{ID: "data", Op: OpReplace, Payload: bigData}}, RewriteOptions{SampleCountHint: 1250})
	if err != nil {
		t.Fatalf("Rewrite (big): %v", err)
	}

	if string(out[0:4]) != "RF64" {
		t.Fatalf("data chunk over threshold not promoted to RF64, header = %q", out[0:4])
	}

	chunks, err := Walk(out)
	if err != nil {
		t.Fatalf("Walk(out): %v", err)
	}

	ds64Chunk, ok := FindChunk(chunks, "ds64")
	if !ok {
		t.Fatal("RF64 output missing ds64 chunk")
	}

	ds64, err := parseDs64Payload(out, ds64Chunk.Offset, int64(ds64Chunk.Size))
	if err != nil {
		t.Fatalf("parseDs64Payload: %v", err)
	}

	if ds64.DataSize != uint64(len(bigData)) {
		t.Fatalf("ds64.DataSize = %d, want %d", ds64.DataSize, len(bigData))
	}

	dataChunk, ok := FindChunk(chunks, "data")
	if !ok {
		t.Fatal("data chunk not found in RF64 output")
	}

	if dataChunk.Size != uint64(len(bigData)) {
		t.Fatalf("data chunk size after RF64 round trip = %d, want %d", dataChunk.Size, len(bigData))
	}
}

func TestWalk_RF64_DataChunkSizeOverride(t *testing.T) {
	t.Parallel()

	// Build an RF64 input with a ds64 chunk and an oversized-marker data chunk,
	// verifying Walk substitutes the 64-bit size correctly.
	var buf bytes.Buffer
	buf.WriteString("RF64")
	writeU32(&buf, 0xFFFFFFFF)
	buf.WriteString("WAVE")

	dataPayload := []byte{1, 2, 3, 4}

	buf.WriteString("ds64")
	writeU32(&buf, 28)
	writeU64(&buf, uint64(4+8+28+8+len(dataPayload)))
	writeU64(&buf, uint64(len(dataPayload)))
	writeU64(&buf, 1)
	writeU32(&buf, 0)

	buf.WriteString("data")
	writeU32(&buf, 0xFFFFFFFF)
	buf.Write(dataPayload)

	chunks, err := Walk(buf.Bytes())
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	dataChunk, ok := FindChunk(chunks, "data")
	if !ok {
		t.Fatal("data chunk not found")
	}

	if dataChunk.Size != uint64(len(dataPayload)) {
		t.Fatalf("data chunk size = %d, want %d", dataChunk.Size, len(dataPayload))
	}
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}
