// Package pcm decodes and encodes interleaved PCM/IEEE-float sample data
// at 16, 24, and 32-bit depths into normalized float32, the common
// currency the rewriter's bit-depth repack, the mixer's summed mix, and
// the normalizer all operate on.
package pcm

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrUnsupportedDepth is returned for bit depths this codec does not
// handle.
var ErrUnsupportedDepth = errors.New("pcm: unsupported bit depth")

const (
	scale16 = 32768.0
	scale24 = 8388608.0
	scale32 = 2147483648.0
)

// Decode converts interleaved PCM bytes at the given bit depth (16, 24, or
// 32 integer, or 32 float) into normalized float32 samples in [-1, 1].
func Decode(data []byte, bitDepth int, float bool) ([]float32, error) {
	switch {
	case float && bitDepth == 32:
		return decodeFloat32(data), nil
	case bitDepth == 16:
		return decode16(data), nil
	case bitDepth == 24:
		return decode24(data), nil
	case bitDepth == 32:
		return decode32(data), nil
	default:
		return nil, ErrUnsupportedDepth
	}
}

// Encode converts normalized float32 samples back to interleaved PCM bytes
// at the given bit depth, clipping to the representable range.
func Encode(samples []float32, bitDepth int, float bool) ([]byte, error) {
	switch {
	case float && bitDepth == 32:
		return encodeFloat32(samples), nil
	case bitDepth == 16:
		return encode16(samples), nil
	case bitDepth == 24:
		return encode24(samples), nil
	case bitDepth == 32:
		return encode32(samples), nil
	default:
		return nil, ErrUnsupportedDepth
	}
}

func decode16(data []byte) []float32 {
	out := make([]float32, len(data)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		out[i] = float32(v) / scale16
	}

	return out
}

func encode16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := clip(s) * (scale16 - 1)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}

	return out
}

func decode24(data []byte) []float32 {
	out := make([]float32, len(data)/3)
	for i := range out {
		off := i * 3
		v := int32(data[off]) | int32(data[off+1])<<8 | int32(data[off+2])<<16

		if v&0x800000 != 0 {
			v |= ^int32(0xFFFFFF) // sign-extend
		}

		out[i] = float32(v) / scale24
	}

	return out
}

func encode24(samples []float32) []byte {
	out := make([]byte, len(samples)*3)

	for i, s := range samples {
		v := int32(clip(s) * (scale24 - 1))
		off := i * 3
		out[off] = byte(v)
		out[off+1] = byte(v >> 8)
		out[off+2] = byte(v >> 16)
	}

	return out
}

func decode32(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		v := int32(binary.LittleEndian.Uint32(data[i*4:]))
		out[i] = float32(v) / scale32
	}

	return out
}

func encode32(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		v := int64(clip(s) * (scale32 - 1))
		binary.LittleEndian.PutUint32(out[i*4:], uint32(int32(v)))
	}

	return out
}

func decodeFloat32(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}

	return out
}

func encodeFloat32(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}

	return out
}

func clip(s float32) float32 {
	switch {
	case s > 1:
		return 1
	case s < -1:
		return -1
	default:
		return s
	}
}
