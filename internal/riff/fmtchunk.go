package riff

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrFmtTooShort is returned when a "fmt " payload is shorter than the
// 16-byte PCM-minimum layout.
var ErrFmtTooShort = errors.New("riff: fmt chunk shorter than 16 bytes")

const (
	formatPCM       = 1
	formatIEEEFloat = 3
	formatExtensible = 0xFFFE
)

// Fmt is the decoded "fmt " chunk: the format facts every other component
// treats as authoritative.
type Fmt struct {
	AudioFormat   uint16
	Channels      int
	SampleRate    uint64
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample int
	Float         bool
}

// ParseFmt decodes a "fmt " chunk payload. It accepts the minimal 16-byte
// PCM layout as well as the 18- and 40-byte extensible forms, reading only
// the fields this engine needs.
func ParseFmt(payload []byte) (Fmt, error) {
	if len(payload) < 16 {
		return Fmt{}, fmt.Errorf("%w: got %d bytes", ErrFmtTooShort, len(payload))
	}

	f := Fmt{
		AudioFormat:   binary.LittleEndian.Uint16(payload[0:2]),
		Channels:      int(binary.LittleEndian.Uint16(payload[2:4])),
		SampleRate:    uint64(binary.LittleEndian.Uint32(payload[4:8])),
		ByteRate:      binary.LittleEndian.Uint32(payload[8:12]),
		BlockAlign:    binary.LittleEndian.Uint16(payload[12:14]),
		BitsPerSample: int(binary.LittleEndian.Uint16(payload[14:16])),
	}

	format := f.AudioFormat
	if format == formatExtensible && len(payload) >= 40 {
		format = binary.LittleEndian.Uint16(payload[24:26])
	}

	f.Float = format == formatIEEEFloat

	return f, nil
}

// SynthesizeFmt encodes a minimal 16-byte PCM/IEEE-float "fmt " chunk.
func SynthesizeFmt(f Fmt) []byte {
	payload := make([]byte, 16)

	format := uint16(formatPCM)
	if f.Float {
		format = formatIEEEFloat
	}

	blockAlign := uint16(f.Channels * ((f.BitsPerSample + 7) / 8))
	byteRate := uint32(f.SampleRate) * uint32(blockAlign)

	binary.LittleEndian.PutUint16(payload[0:2], format)
	binary.LittleEndian.PutUint16(payload[2:4], uint16(f.Channels))
	binary.LittleEndian.PutUint32(payload[4:8], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(payload[8:12], byteRate)
	binary.LittleEndian.PutUint16(payload[12:14], blockAlign)
	binary.LittleEndian.PutUint16(payload[14:16], uint16(f.BitsPerSample))

	return payload
}
