// Command bwfctl inspects and batch-processes BWF/RF64 field-recorder
// files: metadata inspection, CSV-driven conformance, and polyphonic
// combine/split, in the shape of the teacher's cmd/ir-convert (one
// flag.FlagSet per verb, a run(args) error separated from main for
// testability). It exercises the library end to end; it is not part of
// the contractual interface.
//
// Usage:
//
//	bwfctl <verb> [options] <args...>
//
// Verbs:
//
//	inspect <file.wav...>
//	group   <file.wav...>
//	combine -out <file.wav> <src.wav...>
//	split   -out <dir> <src.wav>
//	conform -report <csv> -out <dir> [-preroll s] [-postroll s] <file.wav...>
package main

import (
	"errors"
	"fmt"
	"os"
)

var errMissingVerb = errors.New("bwfctl: missing verb")

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "bwfctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return errMissingVerb
	}

	verb, rest := args[0], args[1:]

	switch verb {
	case "inspect":
		return runInspect(rest)
	case "group":
		return runGroup(rest)
	case "combine":
		return runCombine(rest)
	case "split":
		return runSplit(rest)
	case "conform":
		return runConform(rest)
	default:
		usage()
		return fmt.Errorf("bwfctl: unknown verb %q", verb)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: bwfctl <inspect|group|combine|split|conform> [options] <args...>")
}
