// Package pipeline chains Extract, SummedMix, Combine, Normalize, and
// Rename into the fixed-order Multi-Process Pipeline: each stage consumes
// the previous stage's in-memory output, and a failure at one stage skips
// that group for the remaining stages without aborting the batch. Groups are
// processed one after another; one group's failure never stops the others.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"bwfcore/internal/combine"
	"bwfcore/internal/events"
	"bwfcore/internal/metadata"
)

// ErrFileIsSilent is returned by Normalize when a file's peak amplitude is
// zero, so a scalar gain cannot be computed.
var ErrFileIsSilent = errors.New("pipeline: file is silent, cannot normalize")

// Placement controls whether a group's SummedMix output is embedded as
// channel 0 of its Combine output.
type Placement int

const (
	PlacementNone Placement = iota
	PlacementEmbed
)

// Options configures a pipeline run.
type Options struct {
	KeepIntermediate bool
	TargetDB         float64
	Placement        Placement
	Template         Template
	Hub              *events.Hub
	Logger           *slog.Logger
}

// Group is one unit of pipeline work: the ≥1 mono tracks a grouping.TakeGroup
// (or a size-unique singleton passed through as a one-track Group)
// produced, already decoded to samples by the caller's Extract step
// (Range Extractor or CSV Conformer, per spec).
type Group struct {
	SceneTake string // used to name the SummedMix output, "<scene>_<take>"
	Tracks    []combine.Source
}

// StageOutput is one stage's result for one group, tagged so callers know
// whether it's an intermediate file to delete when the pipeline succeeds
// and KeepIntermediate is false.
type StageOutput struct {
	Stage        string
	Record       metadata.Record
	Audio        []float32
	Intermediate bool
}

// GroupResult carries every stage output produced for one input Group, in
// pipeline order, plus the final renamed record if the group reached the
// Rename stage.
type GroupResult struct {
	SceneTake string
	Stages    []StageOutput
	Final     *StageOutput
}

// Failure records the stage and reason a group stopped progressing.
type Failure struct {
	SceneTake string
	Stage     string
	Err       error
}

// Run executes Extract's output (groups) through SummedMix, Combine,
// Normalize, and Rename in fixed order. A stage failure for one group is
// recorded in the returned failures and that group produces no further
// stage output, but remaining groups still run every stage.
func Run(groups []Group, opts Options, exists func(name string) bool) ([]GroupResult, []Failure) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]GroupResult, 0, len(groups))
	var failures []Failure

	usedNames := make(map[string]int)

	for i, g := range groups {
		if opts.Hub != nil {
			opts.Hub.PublishProgress(i+1, len(groups), "pipeline")
		}

		gr := GroupResult{SceneTake: g.SceneTake}

		rec, audio, ok := runCombineStages(g, opts, &gr, &failures, logger)
		if !ok {
			results = append(results, gr)
			continue
		}

		normRec, normAudio, ok := runNormalize(g.SceneTake, rec, audio, opts, &gr, &failures, logger)
		if !ok {
			results = append(results, gr)
			continue
		}

		final := runRename(normRec, normAudio, opts.Template, usedNames, exists)
		gr.Stages = append(gr.Stages, final)
		gr.Final = &gr.Stages[len(gr.Stages)-1]

		results = append(results, gr)
	}

	return results, failures
}

// runCombineStages runs SummedMix (if the group has ≥2 tracks) and
// Combine, returning the record and audio to hand to Normalize, plus false
// if a stage failed and the group is skipped.
// A one-track group skips both and flows its sole track straight through.
func runCombineStages(g Group, opts Options, gr *GroupResult, failures *[]Failure, logger *slog.Logger) (metadata.Record, []float32, bool) {
	if len(g.Tracks) == 1 {
		t := g.Tracks[0]
		return t.Record, t.Audio, true
	}

	if len(g.Tracks) < 2 {
		*failures = append(*failures, Failure{SceneTake: g.SceneTake, Stage: "combine", Err: fmt.Errorf("pipeline: group %q has no tracks", g.SceneTake)})
		return metadata.Record{}, nil, false
	}

	mix, err := SummedMix(g.Tracks, g.SceneTake)
	if err != nil {
		logger.Warn("summed mix failed", "sceneTake", g.SceneTake, "error", err)
		*failures = append(*failures, Failure{SceneTake: g.SceneTake, Stage: "summedmix", Err: err})

		return metadata.Record{}, nil, false
	}

	gr.Stages = append(gr.Stages, StageOutput{Stage: "summedmix", Record: mix.Record, Audio: mix.Audio, Intermediate: true})

	var mixSource *combine.Source
	if opts.Placement == PlacementEmbed {
		mixSource = &combine.Source{Record: mix.Record, Audio: mix.Audio}
	}

	combined, err := CombineWithMix(g.Tracks, mixSource)
	if err != nil {
		logger.Warn("combine failed", "sceneTake", g.SceneTake, "error", err)
		*failures = append(*failures, Failure{SceneTake: g.SceneTake, Stage: "combine", Err: err})

		return metadata.Record{}, nil, false
	}

	gr.Stages = append(gr.Stages, StageOutput{Stage: "combine", Record: combined.Record, Audio: combined.Audio, Intermediate: true})

	return combined.Record, combined.Audio, true
}

func runNormalize(sceneTake string, rec metadata.Record, audio []float32, opts Options, gr *GroupResult, failures *[]Failure, logger *slog.Logger) (metadata.Record, []float32, bool) {
	normRec, normAudio, err := Normalize(rec, audio, opts.TargetDB)
	if err != nil {
		logger.Warn("normalize failed", "sceneTake", sceneTake, "error", err)
		*failures = append(*failures, Failure{SceneTake: sceneTake, Stage: "normalize", Err: err})

		return metadata.Record{}, nil, false
	}

	gr.Stages = append(gr.Stages, StageOutput{Stage: "normalize", Record: normRec, Audio: normAudio, Intermediate: true})

	return normRec, normAudio, true
}

func runRename(rec metadata.Record, audio []float32, tmpl Template, usedNames map[string]int, exists func(name string) bool) StageOutput {
	name := tmpl.Apply(rec, func(candidate string) bool {
		if usedNames[candidate] > 0 {
			return true
		}

		if exists != nil {
			return exists(candidate)
		}

		return false
	})

	usedNames[name]++

	rec.Filename = name

	return StageOutput{Stage: "rename", Record: rec, Audio: audio, Intermediate: false}
}
