package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"bwfcore/internal/metadata"
)

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	verbose := fs.Bool("verbose", false, "print every field instead of the summary line")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() == 0 {
		return errors.New("inspect: no files given")
	}

	var failed bool

	for _, path := range fs.Args() {
		rec, _, err := loadRecord(path)
		if err != nil && !errors.Is(err, metadata.ErrInconsistent) {
			fmt.Fprintf(os.Stderr, "inspect: %s: %v\n", path, err)

			failed = true

			continue
		}

		printRecord(rec, *verbose)

		if errors.Is(err, metadata.ErrInconsistent) {
			fmt.Fprintf(os.Stderr, "inspect: %s: fmt/iXML disagree\n", path)
		}
	}

	if failed {
		return errors.New("inspect: one or more files failed to parse")
	}

	return nil
}

func printRecord(rec metadata.Record, verbose bool) {
	fmt.Printf("%s\t%dHz\t%dbit\t%dch\t%s\t%s/%s/%s\n",
		rec.Filename, rec.SampleRate, rec.BitDepth, rec.Channels,
		rec.StartTC(), rec.Project, rec.Scene, rec.Take)

	if !verbose {
		return
	}

	fmt.Printf("  tape=%s originator=%s originatorRef=%s\n", rec.Tape, rec.Originator, rec.OriginatorReference)
	fmt.Printf("  notes=%q\n", rec.Notes)
	fmt.Printf("  trackNames=%v\n", rec.TrackNames)
	fmt.Printf("  duration=%s cues=%d inconsistent=%v\n", rec.DurationTC(), len(rec.CuePoints), rec.Inconsistent)
}
