// Package cue reads and writes the RIFF "cue " chunk: an ordered list of
// named sample positions. The cue chunk itself carries no labels — labels
// live in the paired iXML sync-point list — so this package only carries
// id and sample position.
package cue

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncated is returned when a cue payload is shorter than its declared
// count requires.
var ErrTruncated = errors.New("cue: payload shorter than declared count")

const recordSize = 24 // id(4) + position(4) + "data"(4) + chunkStart(4) + blockStart(4) + sampleOffset(4)

// Point is one cue point: a stable id and its sample offset into the data
// chunk. The authoritative position is SampleOffset; Position is written
// equal to it by convention, per the BWF cue chunk layout.
type Point struct {
	ID           uint32
	SampleOffset uint32
}

// Parse decodes a "cue " chunk payload.
func Parse(payload []byte) ([]Point, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("%w: missing count field", ErrTruncated)
	}

	count := binary.LittleEndian.Uint32(payload[0:4])
	need := 4 + int(count)*recordSize

	if len(payload) < need {
		return nil, fmt.Errorf("%w: declares %d points, have %d bytes", ErrTruncated, count, len(payload))
	}

	points := make([]Point, count)

	for i := range points {
		off := 4 + i*recordSize
		rec := payload[off : off+recordSize]

		points[i] = Point{
			ID:           binary.LittleEndian.Uint32(rec[0:4]),
			SampleOffset: binary.LittleEndian.Uint32(rec[20:24]),
		}
	}

	return points, nil
}

// Synthesize encodes a cue chunk payload from points.
func Synthesize(points []Point) []byte {
	payload := make([]byte, 4+len(points)*recordSize)
	binary.LittleEndian.PutUint32(payload[0:4], uint32(len(points)))

	for i, p := range points {
		off := 4 + i*recordSize
		rec := payload[off : off+recordSize]

		binary.LittleEndian.PutUint32(rec[0:4], p.ID)
		binary.LittleEndian.PutUint32(rec[4:8], p.SampleOffset) // Position == SampleOffset, by convention
		copy(rec[8:12], "data")
		// chunkStart, blockStart left zero
		binary.LittleEndian.PutUint32(rec[20:24], p.SampleOffset)
	}

	return payload
}
