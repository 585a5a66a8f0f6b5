package main

import (
	"errors"
	"flag"
	"fmt"

	"bwfcore/internal/combine"
)

func runCombine(args []string) error {
	fs := flag.NewFlagSet("combine", flag.ExitOnError)
	out := fs.String("out", "", "output WAV path")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *out == "" {
		return errors.New("combine: -out is required")
	}

	if fs.NArg() < 2 {
		return errors.New("combine: need at least 2 source files")
	}

	sources := make([]combine.Source, 0, fs.NArg())

	for _, path := range fs.Args() {
		rec, data, err := loadRecord(path)
		if err != nil {
			return fmt.Errorf("combine: %w", err)
		}

		audio, err := decodeAudio(rec, data)
		if err != nil {
			return fmt.Errorf("combine: %s: %w", path, err)
		}

		sources = append(sources, combine.Source{Record: rec, Audio: audio})
	}

	result, err := combine.Combine(sources, nil)
	if err != nil {
		return fmt.Errorf("combine: %w", err)
	}

	return writeWAV(*out, result.Record, result.Audio)
}
