package timecode

import (
	"testing"

	"bwfcore/internal/rational"
)

func TestToSamples_23976(t *testing.T) {
	t.Parallel()

	fps := rational.New(24000, 1001)

	got, err := ToSamples("01:00:00:00", 48000, fps)
	if err != nil {
		t.Fatalf("ToSamples: %v", err)
	}

	const want = 172_972_800
	if got != want {
		t.Fatalf("ToSamples() = %d, want %d", got, want)
	}
}

func TestRoundTrip_23976(t *testing.T) {
	t.Parallel()

	fps := rational.New(24000, 1001)

	samples, err := ToSamples("01:00:00:00", 48000, fps)
	if err != nil {
		t.Fatalf("ToSamples: %v", err)
	}

	got := FromSamples(samples, 48000, fps)
	if got != "01:00:00:00" {
		t.Fatalf("FromSamples() = %q, want 01:00:00:00", got)
	}
}

func TestRoundTripTable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		tc         string
		sampleRate uint64
		fps        rational.Rat
	}{
		{"00:00:00:00", 48000, rational.New(24, 1)},
		{"00:00:10:05", 48000, rational.New(25, 1)},
		{"01:02:03:00", 48000, rational.New(30000, 1001)},
		{"23:59:59:29", 96000, rational.New(30, 1)},
		{"10:00:00:00", 44100, rational.New(24000, 1001)},
		{"00:01:00", 48000, rational.New(25, 1)},
	}

	for _, tc := range cases {
		samples, err := ToSamples(tc.tc, tc.sampleRate, tc.fps)
		if err != nil {
			t.Fatalf("ToSamples(%q): %v", tc.tc, err)
		}

		got := FromSamples(samples, tc.sampleRate, tc.fps)

		want := tc.tc
		if len(want) == 8 { // "HH:MM:SS" implicit zero frame
			want += ":00"
		}

		if got != want {
			t.Errorf("round trip %q -> %d -> %q, want %q", tc.tc, samples, got, want)
		}
	}
}

func TestToSamples_Malformed(t *testing.T) {
	t.Parallel()

	fps := rational.New(25, 1)

	cases := []string{"", "1:2", "a:b:c:d", "01:02:03:04:05", "-1:00:00:00"}
	for _, tc := range cases {
		if _, err := ToSamples(tc, 48000, fps); err == nil {
			t.Errorf("ToSamples(%q) = nil error, want ErrMalformed", tc)
		}
	}
}

func TestFPSFromLabel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		label   string
		num     int64
		den     int64
		dropFrm bool
	}{
		{"23.98", 24000, 1001, false},
		{"29.97", 30000, 1001, false},
		{"29.97df", 30000, 1001, true},
		{"24", 24, 1, false},
		{"25", 25, 1, false},
		{"30", 30, 1, false},
		{"48", 48, 1, false},
		{"50", 50, 1, false},
		{"59.94", 60000, 1001, false},
		{"60", 60, 1, false},
	}

	for _, tc := range cases {
		fr, err := FPSFromLabel(tc.label)
		if err != nil {
			t.Fatalf("FPSFromLabel(%q): %v", tc.label, err)
		}

		if fr.Rate.Num != tc.num || fr.Rate.Den != tc.den {
			t.Errorf("FPSFromLabel(%q) = %v, want %d/%d", tc.label, fr.Rate, tc.num, tc.den)
		}

		if fr.DropFrame != tc.dropFrm {
			t.Errorf("FPSFromLabel(%q).DropFrame = %v, want %v", tc.label, fr.DropFrame, tc.dropFrm)
		}
	}
}

func TestFPSFromLabel_Unknown(t *testing.T) {
	t.Parallel()

	if _, err := FPSFromLabel("nonsense"); err == nil {
		t.Fatal("FPSFromLabel(\"nonsense\") = nil error, want ErrUnknownFrameRate")
	}
}

func TestDurationString(t *testing.T) {
	t.Parallel()

	if got := DurationString(3661); got != "01:01:01" {
		t.Fatalf("DurationString(3661) = %q, want 01:01:01", got)
	}
}

func TestDurationTC(t *testing.T) {
	t.Parallel()

	fps := rational.New(25, 1)
	if got := DurationTC(1.2, fps); got != "00:00:01:05" {
		t.Fatalf("DurationTC(1.2, 25) = %q, want 00:00:01:05", got)
	}
}

func TestShiftTC_NonDropSecondBoundary(t *testing.T) {
	t.Parallel()

	// At 29.97 (30000/1001), shifting by a whole nominal second must land
	// on a whole nominal-second timecode, even though that does not
	// correspond to exactly sampleRate samples of real playback time.
	fps := rational.New(30000, 1001)

	got, err := ShiftTC("01:02:03:00", -1, fps)
	if err != nil {
		t.Fatalf("ShiftTC: %v", err)
	}

	if got != "01:02:02:00" {
		t.Fatalf("ShiftTC(-1s) = %q, want 01:02:02:00", got)
	}

	got, err = ShiftTC("01:02:03:00", 6, fps)
	if err != nil {
		t.Fatalf("ShiftTC: %v", err)
	}

	if got != "01:02:09:00" {
		t.Fatalf("ShiftTC(+6s) = %q, want 01:02:09:00", got)
	}
}

func TestFrameCount_RoundTrip(t *testing.T) {
	t.Parallel()

	fps := rational.New(24, 1)

	frames, err := FrameCount("01:00:00:12", fps)
	if err != nil {
		t.Fatalf("FrameCount: %v", err)
	}

	if got := FromFrameCount(frames, fps); got != "01:00:00:12" {
		t.Fatalf("FromFrameCount(%d) = %q, want 01:00:00:12", frames, got)
	}
}

func TestFromFrameCount_ClampsNegative(t *testing.T) {
	t.Parallel()

	if got := FromFrameCount(-5, rational.New(25, 1)); got != "00:00:00:00" {
		t.Fatalf("FromFrameCount(-5) = %q, want 00:00:00:00", got)
	}
}
