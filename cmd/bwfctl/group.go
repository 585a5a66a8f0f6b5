package main

import (
	"errors"
	"flag"
	"fmt"

	"bwfcore/internal/grouping"
	"bwfcore/internal/metadata"
)

func runGroup(args []string) error {
	fs := flag.NewFlagSet("group", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() == 0 {
		return errors.New("group: no files given")
	}

	var records []metadata.Record

	for _, path := range fs.Args() {
		rec, _, err := loadRecord(path)
		if err != nil && !errors.Is(err, metadata.ErrInconsistent) {
			fmt.Printf("%s: skipped (%v)\n", path, err)
			continue
		}

		records = append(records, rec)
	}

	for _, item := range grouping.Group(records) {
		if item.Group != nil {
			fmt.Printf("group %s: %d channels, members=%v\n", item.Group.Base, item.Group.Channels, filenames(item.Group.Members))
			continue
		}

		fmt.Printf("singleton: %s\n", item.Record.Filename)
	}

	return nil
}

func filenames(recs []metadata.Record) []string {
	names := make([]string, len(recs))
	for i, r := range recs {
		names[i] = r.Filename
	}

	return names
}
