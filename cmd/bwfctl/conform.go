package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"bwfcore/internal/conform"
	"bwfcore/internal/extract"
	"bwfcore/internal/metadata"
)

func runConform(args []string) error {
	fs := flag.NewFlagSet("conform", flag.ExitOnError)
	report := fs.String("report", "", "Sound Report CSV path")
	outDir := fs.String("out", ".", "output directory")
	preRoll := fs.Float64("preroll", 0, "seconds of pre-roll to extend each match")
	postRoll := fs.Float64("postroll", 0, "seconds of post-roll to extend each match")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *report == "" {
		return errors.New("conform: -report is required")
	}

	if fs.NArg() == 0 {
		return errors.New("conform: no source files given")
	}

	f, err := os.Open(*report)
	if err != nil {
		return fmt.Errorf("conform: %w", err)
	}
	defer f.Close()

	rows, err := conform.ParseCSV(f)
	if err != nil {
		return fmt.Errorf("conform: %w", err)
	}

	var sources []metadata.Record

	rawByFilename := make(map[string][]byte)

	for _, path := range fs.Args() {
		rec, data, err := loadRecord(path)
		if err != nil && !errors.Is(err, metadata.ErrInconsistent) {
			fmt.Fprintf(os.Stderr, "conform: skipping %s: %v\n", path, err)
			continue
		}

		sources = append(sources, rec)
		rawByFilename[rec.Filename] = data
	}

	plans, unmatched := conform.Resolve(rows, sources, *preRoll, *postRoll)

	for _, row := range unmatched {
		fmt.Fprintf(os.Stderr, "conform: %v\n", conform.ErrNoMatchingTakeFor(row))
	}

	var failed bool

	for _, plan := range plans {
		rawPayload, err := rawAudioPayload(plan.Source, rawByFilename[plan.Source.Filename])
		if err != nil {
			fmt.Fprintf(os.Stderr, "conform: %s: %v\n", plan.Source.Filename, err)

			failed = true

			continue
		}

		result, err := extract.Extract(extract.Request{Source: plan.Source, StartTC: plan.StartTC, EndTC: plan.EndTC}, rawPayload, 0, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "conform: %s: %v\n", plan.OutputName, err)

			failed = true

			continue
		}

		result.Record.Filename = plan.OutputName

		outPath := filepath.Join(*outDir, plan.OutputName)
		if err := writeWAVRaw(outPath, result.Record, result.AudioPayload); err != nil {
			fmt.Fprintf(os.Stderr, "conform: write %s: %v\n", outPath, err)

			failed = true
		}
	}

	if failed {
		return errors.New("conform: one or more files failed")
	}

	return nil
}
