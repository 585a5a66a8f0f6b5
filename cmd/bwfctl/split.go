package main

import (
	"errors"
	"flag"
	"fmt"
	"path/filepath"

	"bwfcore/internal/combine"
)

func runSplit(args []string) error {
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	outDir := fs.String("out", ".", "output directory")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return errors.New("split: expected exactly one source file")
	}

	path := fs.Arg(0)

	rec, data, err := loadRecord(path)
	if err != nil {
		return fmt.Errorf("split: %w", err)
	}

	audio, err := decodeAudio(rec, data)
	if err != nil {
		return fmt.Errorf("split: %s: %w", path, err)
	}

	base := filepath.Base(path)

	results, err := combine.Split(rec, audio, base)
	if err != nil {
		return fmt.Errorf("split: %w", err)
	}

	for _, r := range results {
		outPath := filepath.Join(*outDir, r.Record.Filename)
		if err := writeWAV(outPath, r.Record, r.Audio); err != nil {
			return fmt.Errorf("split: write %s: %w", outPath, err)
		}
	}

	return nil
}
