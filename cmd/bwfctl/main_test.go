package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bwfcore/internal/bwftest"
	"bwfcore/internal/rational"
)

func writeTestWAV(t *testing.T, dir, name string, opts bwftest.Options) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, bwftest.NewWAV(opts), 0o644))

	return path
}

func TestRun_MissingVerb(t *testing.T) {
	err := run(nil)
	assert.ErrorIs(t, err, errMissingVerb)
}

func TestRun_UnknownVerb(t *testing.T) {
	err := run([]string{"frobnicate"})
	assert.Error(t, err)
}

func TestRun_Inspect(t *testing.T) {
	dir := t.TempDir()
	path := writeTestWAV(t, dir, "source.wav", bwftest.DefaultOptions())

	err := run([]string{"inspect", path})
	assert.NoError(t, err)
}

func TestRun_InspectNoFiles(t *testing.T) {
	err := run([]string{"inspect"})
	assert.Error(t, err)
}

func TestRun_Group(t *testing.T) {
	dir := t.TempDir()

	opts := bwftest.DefaultOptions()
	opts.Channels = 1

	left := writeTestWAV(t, dir, "take1_1.wav", opts)
	right := writeTestWAV(t, dir, "take1_2.wav", opts)

	err := run([]string{"group", left, right})
	assert.NoError(t, err)
}

func TestRun_Combine(t *testing.T) {
	dir := t.TempDir()

	opts := bwftest.DefaultOptions()
	opts.Channels = 1

	left := writeTestWAV(t, dir, "pair_1.wav", opts)
	right := writeTestWAV(t, dir, "pair_2.wav", opts)
	out := filepath.Join(dir, "combined.wav")

	err := run([]string{"combine", "-out", out, left, right})
	require.NoError(t, err)

	_, err = os.Stat(out)
	assert.NoError(t, err)
}

func TestRun_Split(t *testing.T) {
	dir := t.TempDir()

	opts := bwftest.DefaultOptions()
	opts.Channels = 2

	src := writeTestWAV(t, dir, "stereo.wav", opts)

	err := run([]string{"split", "-out", dir, src})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Greater(t, len(entries), 1)
}

func TestRun_ConformRequiresReport(t *testing.T) {
	dir := t.TempDir()
	path := writeTestWAV(t, dir, "source.wav", bwftest.DefaultOptions())

	err := run([]string{"conform", path})
	assert.Error(t, err)
}

func TestRun_Conform(t *testing.T) {
	dir := t.TempDir()

	opts := bwftest.DefaultOptions()
	opts.FrameRate = rational.New(25, 1)
	opts.DurationSec = 10
	opts.TimeReference = 0

	src := writeTestWAV(t, dir, "roll1_take1.wav", opts)

	csv := "SOUND REPORT\n" +
		"File Name,Scene,Take,Start TC,Length\n" +
		"take1.wav,1,1,00:00:01:00,00:00:02:00\n"
	reportPath := filepath.Join(dir, "report.csv")
	require.NoError(t, os.WriteFile(reportPath, []byte(csv), 0o644))

	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(outDir, 0o755))

	err := run([]string{"conform", "-report", reportPath, "-out", outDir, src})
	require.NoError(t, err)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}
