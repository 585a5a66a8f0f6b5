package riff

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// EditOp identifies what a single Edit does to the chunk sequence.
type EditOp int

// Edit operations.
const (
	OpReplace EditOp = iota
	OpInsertBefore
	OpInsertAfter
)

// Edit describes one change to apply during Rewrite. For OpReplace, ID
// names the existing chunk to replace. For OpInsertBefore/OpInsertAfter, ID
// names the new chunk being inserted and Ref names the existing chunk it is
// positioned relative to.
type Edit struct {
	ID      string
	Payload []byte
	Op      EditOp
	Ref     string
}

// RewriteOptions carries the one piece of information the chunk codec can't
// derive on its own: the sample count to record in a synthesized ds64
// chunk. Callers that don't care about RF64 (most won't need to) pass a
// zero value.
type RewriteOptions struct {
	SampleCountHint uint64
}

type builtChunk struct {
	id      string
	payload []byte
}

// Rewrite applies edits to data and returns a freshly assembled container.
// Unedited chunks, including their pad byte, are copied verbatim. If the
// result would exceed the 32-bit RIFF size limit — either the whole file or
// the data chunk alone — the output is emitted as RF64 with a leading ds64
// chunk; otherwise it is a plain RIFF file. Rewrite(data, nil) reproduces
// data byte for byte, aside from permissible pad bytes.
func Rewrite(data []byte, edits []Edit, opts RewriteOptions) ([]byte, error) {
	chunks, err := Walk(data)
	if err != nil {
		return nil, err
	}

	replaceByID := make(map[string][]byte)
	beforeByRef := make(map[string][]Edit)
	afterByRef := make(map[string][]Edit)

	for _, e := range edits {
		switch e.Op {
		case OpReplace:
			replaceByID[e.ID] = e.Payload
		case OpInsertBefore:
			beforeByRef[e.Ref] = append(beforeByRef[e.Ref], e)
		case OpInsertAfter:
			afterByRef[e.Ref] = append(afterByRef[e.Ref], e)
		}
	}

	var built []builtChunk

	for _, c := range chunks {
		if c.ID == idDs64 {
			// Regenerated fresh below if RF64 promotion is still needed.
			continue
		}

		for _, e := range beforeByRef[c.ID] {
			built = append(built, builtChunk{id: e.ID, payload: e.Payload})
		}

		payload := Payload(data, c)
		if replacement, ok := replaceByID[c.ID]; ok {
			payload = replacement
		}

		built = append(built, builtChunk{id: c.ID, payload: payload})

		for _, e := range afterByRef[c.ID] {
			built = append(built, builtChunk{id: e.ID, payload: e.Payload})
		}
	}

	return assemble(built, opts)
}

func assemble(chunks []builtChunk, opts RewriteOptions) ([]byte, error) {
	var dataLen uint64

	for _, c := range chunks {
		if c.id == idData {
			dataLen = uint64(len(c.payload))
		}
	}

	bodySize := func(needsRF64 bool) uint64 {
		var total uint64
		if needsRF64 {
			total += 8 + 28 // ds64 header + fixed payload, table omitted
		}

		for _, c := range chunks {
			total += 8 + uint64(len(c.payload))
			if len(c.payload)%2 != 0 {
				total++
			}
		}

		return total
	}

	needsRF64 := dataLen > MaxClassicSize
	if !needsRF64 {
		total := 4 /* WAVE */ + bodySize(false)
		needsRF64 = total > MaxClassicSize
	}

	total := uint64(4) + bodySize(needsRF64)

	var buf bytes.Buffer
	buf.Grow(int(total) + 8)

	if needsRF64 {
		buf.WriteString(tagRF64)
		writeUint32(&buf, 0xFFFFFFFF)
	} else {
		buf.WriteString(tagRIFF)
		writeUint32(&buf, uint32(total))
	}

	buf.WriteString(tagWAVE)

	if needsRF64 {
		writeDs64(&buf, total, dataLen, opts.SampleCountHint)
	}

	for _, c := range chunks {
		if err := writeChunk(&buf, c, needsRF64); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func writeChunk(buf *bytes.Buffer, c builtChunk, rf64 bool) error {
	if len(c.id) != 4 {
		return fmt.Errorf("riff: chunk id %q must be 4 characters", c.id)
	}

	buf.WriteString(c.id)

	if rf64 && c.id == idData {
		writeUint32(buf, 0xFFFFFFFF)
	} else {
		if uint64(len(c.payload)) > 0xFFFFFFFF {
			return fmt.Errorf("riff: chunk %q payload %d bytes exceeds 32-bit size field", c.id, len(c.payload))
		}

		writeUint32(buf, uint32(len(c.payload)))
	}

	buf.Write(c.payload)

	if len(c.payload)%2 != 0 {
		buf.WriteByte(0)
	}

	return nil
}

func writeDs64(buf *bytes.Buffer, riffSize, dataSize, sampleCount uint64) {
	buf.WriteString(idDs64)
	writeUint32(buf, 28) // fixed payload, zero-length table

	writeUint64(buf, riffSize)
	writeUint64(buf, dataSize)
	writeUint64(buf, sampleCount)
	writeUint32(buf, 0) // tableLength
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}
