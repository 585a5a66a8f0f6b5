// Package timecode implements exact rational frame-rate arithmetic between
// SMPTE timecode strings, sample counts, and elapsed seconds. All sample
// math is carried out with 128-bit intermediates so multi-hour timecodes at
// 192 kHz never overflow and never drift the way floating-point fps would.
package timecode

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"bwfcore/internal/rational"
)

// Errors returned by this package.
var (
	ErrMalformed       = errors.New("timecode: malformed timecode")
	ErrUnknownFrameRate = errors.New("timecode: unknown frame rate label")
)

// FrameRate is an exact frame rate plus the drop-frame label it was parsed
// from. DropFrame is carried for display only: this package never performs
// drop-frame arithmetic (see spec's Open Question on drop-frame timecode).
type FrameRate struct {
	Rate      rational.Rat
	Label     string
	DropFrame bool
}

var labelTable = map[string]FrameRate{
	"23.98":  {Rate: rational.New(24000, 1001), Label: "23.98"},
	"23.976": {Rate: rational.New(24000, 1001), Label: "23.976"},
	"24":     {Rate: rational.New(24, 1), Label: "24"},
	"25":     {Rate: rational.New(25, 1), Label: "25"},
	"29.97":  {Rate: rational.New(30000, 1001), Label: "29.97"},
	"29.97df": {Rate: rational.New(30000, 1001), Label: "29.97df", DropFrame: true},
	"30":     {Rate: rational.New(30, 1), Label: "30"},
	"48":     {Rate: rational.New(48, 1), Label: "48"},
	"50":     {Rate: rational.New(50, 1), Label: "50"},
	"59.94":  {Rate: rational.New(60000, 1001), Label: "59.94"},
	"60":     {Rate: rational.New(60, 1), Label: "60"},
}

// FPSFromLabel maps a frame-rate label as commonly found in iXML/bEXT
// metadata to its exact rational rate. Unknown labels fail with
// ErrUnknownFrameRate.
func FPSFromLabel(label string) (FrameRate, error) {
	fr, ok := labelTable[strings.TrimSpace(label)]
	if !ok {
		return FrameRate{}, fmt.Errorf("%w: %q", ErrUnknownFrameRate, label)
	}

	return fr, nil
}

// fieldRate is the nominal integer frames-per-second used to decompose a
// frame count into H:M:S:F, per SMPTE non-drop convention (23.976 uses
// field 24, 29.97 uses field 30).
func fieldRate(fps rational.Rat) int64 {
	return fps.Round()
}

// ToSamples parses "HH:MM:SS:FF" (or "HH:MM:SS" with an implicit zero frame
// field) and returns the absolute sample count at sampleRate, given the
// exact frame rate fps in effect.
//
// The HH:MM:SS:FF fields are interpreted as a nominal frame count at
// round(fps) frames/sec (the SMPTE convention), which is then converted to
// samples using the exact fps — this is what produces the well-known
// non-drop drift against wall-clock time at fractional rates.
func ToSamples(tc string, sampleRate uint64, fps rational.Rat) (uint64, error) {
	h, m, s, f, err := parseFields(tc)
	if err != nil {
		return 0, err
	}

	field := fieldRate(fps)
	if field <= 0 {
		return 0, fmt.Errorf("%w: non-positive field rate", ErrMalformed)
	}

	totalSeconds := h*3600 + m*60 + s
	frames := totalSeconds*field + f

	if frames < 0 {
		return 0, fmt.Errorf("%w: negative frame count", ErrMalformed)
	}

	mul := sampleRate * uint64(fps.Den)

	return rational.MulDivFloor(uint64(frames), mul, uint64(fps.Num)), nil
}

// FromSamples is the inverse of ToSamples: given an absolute sample count,
// returns the "HH:MM:SS:FF" timecode string at sampleRate and fps.
func FromSamples(samples uint64, sampleRate uint64, fps rational.Rat) string {
	field := fieldRate(fps)
	if field <= 0 {
		field = 1
	}

	mul := uint64(fps.Num)
	div := uint64(fps.Den) * sampleRate
	if div == 0 {
		div = 1
	}

	frames := rational.MulDivFloor(samples, mul, div)

	f := int64(frames % uint64(field))
	totalSeconds := int64(frames / uint64(field))
	s := totalSeconds % 60
	m := (totalSeconds / 60) % 60
	h := totalSeconds / 3600

	return formatTC(h, m, s, f)
}

// DurationString renders seconds as "HH:MM:SS".
func DurationString(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}

	total := int64(math.Floor(seconds))
	s := total % 60
	m := (total / 60) % 60
	h := total / 3600

	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// DurationTC renders an elapsed-seconds duration as "HH:MM:SS:FF" at the
// given exact frame rate.
func DurationTC(seconds float64, fps rational.Rat) string {
	if seconds < 0 {
		seconds = 0
	}

	field := fieldRate(fps)
	if field <= 0 {
		field = 1
	}

	frames := int64(math.Floor(seconds * fps.Float64()))
	f := frames % field
	totalSeconds := frames / field
	s := totalSeconds % 60
	m := (totalSeconds / 60) % 60
	h := totalSeconds / 3600

	return formatTC(h, m, s, f)
}

// FrameCount parses tc and returns its nominal frame count at round(fps)
// frames/sec, the same domain ToSamples decomposes H:M:S:F in.
func FrameCount(tc string, fps rational.Rat) (int64, error) {
	h, m, s, f, err := parseFields(tc)
	if err != nil {
		return 0, err
	}

	field := fieldRate(fps)
	if field <= 0 {
		return 0, fmt.Errorf("%w: non-positive field rate", ErrMalformed)
	}

	return (h*3600+m*60+s)*field + f, nil
}

// FromFrameCount is the inverse of FrameCount: it renders a nominal frame
// count back to "HH:MM:SS:FF" at round(fps) frames/sec. Negative counts
// clamp to zero.
func FromFrameCount(frames int64, fps rational.Rat) string {
	field := fieldRate(fps)
	if field <= 0 {
		field = 1
	}

	if frames < 0 {
		frames = 0
	}

	f := frames % field
	totalSeconds := frames / field
	s := totalSeconds % 60
	m := (totalSeconds / 60) % 60
	h := totalSeconds / 3600

	return formatTC(h, m, s, f)
}

// ShiftTC adds deltaSeconds (which may be negative) to tc, in the nominal
// frame domain: deltaSeconds is rounded to the nearest whole frame at
// round(fps) frames/sec and added to tc's frame count, rather than
// converted through samples. This is what pre/post-roll needs: shifting a
// timecode by "1 second" must land on the timecode exactly one second
// earlier, even though a real second's worth of samples at a fractional
// rate like 29.97 does not correspond to exactly round(fps) frames of
// sample-accurate playback time. The result is clamped to non-negative.
func ShiftTC(tc string, deltaSeconds float64, fps rational.Rat) (string, error) {
	frames, err := FrameCount(tc, fps)
	if err != nil {
		return "", err
	}

	field := fieldRate(fps)
	deltaFrames := int64(math.Round(deltaSeconds * float64(field)))

	return FromFrameCount(frames+deltaFrames, fps), nil
}

func formatTC(h, m, s, f int64) string {
	return fmt.Sprintf("%02d:%02d:%02d:%02d", h, m, s, f)
}

// parseFields splits "HH:MM:SS:FF" or "HH:MM:SS" into integer fields.
func parseFields(tc string) (h, m, s, f int64, err error) {
	parts := strings.Split(tc, ":")
	if len(parts) != 3 && len(parts) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("%w: %q has %d fields, want 3 or 4", ErrMalformed, tc, len(parts))
	}

	nums := make([]int64, len(parts))

	for i, p := range parts {
		v, convErr := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if convErr != nil || v < 0 {
			return 0, 0, 0, 0, fmt.Errorf("%w: field %q is not a nonnegative integer", ErrMalformed, p)
		}

		nums[i] = v
	}

	if len(nums) == 3 {
		return nums[0], nums[1], nums[2], 0, nil
	}

	return nums[0], nums[1], nums[2], nums[3], nil
}
