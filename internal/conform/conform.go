// Package conform parses a Sound Report CSV and drives extract.Extract to
// produce one output per row, adopting the producing source's frame rate
// on first match and disambiguating filenames when more than one source
// satisfies a row. Header discovery and quoted-field handling follow
// encoding/csv's own conventions, the way the teacher's CSV import code
// leans on it rather than hand-rolling a parser.
package conform

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"bwfcore/internal/metadata"
	"bwfcore/internal/rational"
	"bwfcore/internal/timecode"
)

// ErrNoMatchingTake is returned when a Sound Report row matches no source
// record's window.
var ErrNoMatchingTake = errors.New("conform: no source file contains the requested window")

// Row is one parsed Sound Report line.
type Row struct {
	FileName string
	Scene    string
	Take     string
	StartTC  string
	LengthTC string
}

// ParseCSV reads a Sound Report CSV. The first row must contain the
// literal token "SOUND REPORT"; the following row is a header whose
// column order is discovered by name, not position.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // header/body widths can differ across Sound Devices firmware

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("conform: parse CSV: %w", err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("conform: CSV has no data rows")
	}

	if !containsToken(records[0], "SOUND REPORT") {
		return nil, fmt.Errorf("conform: first row does not contain SOUND REPORT marker")
	}

	header := records[1]
	col := indexColumns(header)

	required := []string{"File Name", "Scene", "Take", "Length", "Start TC"}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("conform: CSV header missing column %q", name)
		}
	}

	rows := make([]Row, 0, len(records)-2)

	for _, rec := range records[2:] {
		if len(strings.TrimSpace(strings.Join(rec, ""))) == 0 {
			continue
		}

		rows = append(rows, Row{
			FileName: field(rec, col, "File Name"),
			Scene:    field(rec, col, "Scene"),
			Take:     field(rec, col, "Take"),
			StartTC:  field(rec, col, "Start TC"),
			LengthTC: field(rec, col, "Length"),
		})
	}

	return rows, nil
}

func containsToken(rec []string, token string) bool {
	for _, f := range rec {
		if strings.Contains(strings.ToUpper(f), token) {
			return true
		}
	}

	return false
}

func indexColumns(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	return col
}

func field(rec []string, col map[string]int, name string) string {
	idx, ok := col[name]
	if !ok || idx >= len(rec) {
		return ""
	}

	return strings.TrimSpace(rec[idx])
}

// Plan is one resolved extraction derived from a Row matched against a
// source.
type Plan struct {
	Row          Row
	Source       metadata.Record
	StartTC      string
	EndTC        string
	OutputName   string
}

// Resolve matches each row against sources and emits one plan per matching
// source, computed at that source's own frame rate, with pre/post-roll
// applied symmetrically (clamped to the source's window). When a row matches
// several sources their output names are disambiguated. Only rows with no
// match are reported in unmatched.
func Resolve(rows []Row, sources []metadata.Record, preRoll, postRoll float64) (plans []Plan, unmatched []Row) {
	usedNames := make(map[string]int)

	for _, row := range rows {
		var matches []metadata.Record

		for _, src := range sources {
			ss, es, err := rowWindow(row, src.FPSExact, src.SampleRate)
			if err != nil {
				continue
			}

			ws, we := src.Window()
			if ss >= ws && es <= we {
				matches = append(matches, src)
			}
		}

		if len(matches) == 0 {
			unmatched = append(unmatched, row)
			continue
		}

		for _, src := range matches {
			startTC, endTC := applyRoll(row, src, preRoll, postRoll)

			name := outputName(row)
			usedNames[name]++

			if n := usedNames[name]; n > 1 {
				name = disambiguate(name, n)
			}

			plans = append(plans, Plan{
				Row:        row,
				Source:     src,
				StartTC:    startTC,
				EndTC:      endTC,
				OutputName: name,
			})
		}
	}

	return plans, unmatched
}

func rowWindow(row Row, fps rational.Rat, sampleRate uint64) (start, end uint64, err error) {
	start, err = timecode.ToSamples(row.StartTC, sampleRate, fps)
	if err != nil {
		return 0, 0, err
	}

	lengthSamples, err := timecode.ToSamples(row.LengthTC, sampleRate, fps)
	if err != nil {
		return 0, 0, err
	}

	return start, start + lengthSamples, nil
}

// applyRoll shifts a row's start/end by preRoll/postRoll seconds in the
// nominal frame domain, then clamps the result to the source's own window.
// Shifting by raw sample counts would drift against nominal-second
// boundaries at fractional frame rates (29.97, 23.976): a real second of
// samples there doesn't span exactly round(fps) frames of nominal timecode.
func applyRoll(row Row, src metadata.Record, preRoll, postRoll float64) (startTC, endTC string) {
	startFrames, err := timecode.FrameCount(row.StartTC, src.FPSExact)
	if err != nil {
		return row.StartTC, row.LengthTC
	}

	lengthFrames, err := timecode.FrameCount(row.LengthTC, src.FPSExact)
	if err != nil {
		return row.StartTC, row.LengthTC
	}

	field := src.FPSExact.Round()
	preFrames := int64(preRoll * float64(field))
	postFrames := int64(postRoll * float64(field))

	shiftedStart := timecode.FromFrameCount(startFrames-preFrames, src.FPSExact)
	shiftedEnd := timecode.FromFrameCount(startFrames+lengthFrames+postFrames, src.FPSExact)

	ws, we := src.Window()

	if actualStart, err := timecode.ToSamples(shiftedStart, src.SampleRate, src.FPSExact); err != nil || actualStart < ws {
		shiftedStart = timecode.FromSamples(ws, src.SampleRate, src.FPSExact)
	}

	if actualEnd, err := timecode.ToSamples(shiftedEnd, src.SampleRate, src.FPSExact); err != nil || actualEnd > we {
		shiftedEnd = timecode.FromSamples(we, src.SampleRate, src.FPSExact)
	}

	return shiftedStart, shiftedEnd
}

var trailingDigits = regexp.MustCompile(`([0-9]+)(\.[A-Za-z0-9]+)?$`)

func outputName(row Row) string {
	name := row.FileName
	if name == "" {
		name = fmt.Sprintf("%s_%s", row.Scene, row.Take)
	}

	if !strings.HasSuffix(strings.ToLower(name), ".wav") {
		name += ".wav"
	}

	return name
}

// disambiguate inserts a letter ('a','b',...) before the trailing digit
// sequence of name so repeated matches don't collide.
func disambiguate(name string, n int) string {
	letter := string(rune('a' + n - 2))

	loc := trailingDigits.FindStringSubmatchIndex(name)
	if loc == nil {
		ext := ""
		base := name

		if dot := strings.LastIndex(name, "."); dot >= 0 {
			ext = name[dot:]
			base = name[:dot]
		}

		return base + letter + ext
	}

	return name[:loc[2]] + letter + name[loc[2]:]
}

// ErrNoMatchingTakeFor wraps ErrNoMatchingTake with the offending row's
// identity, the shape a batch caller reports per-file failures in.
func ErrNoMatchingTakeFor(row Row) error {
	return fmt.Errorf("%w: %s (scene %s take %s)", ErrNoMatchingTake, row.FileName, row.Scene, row.Take)
}
