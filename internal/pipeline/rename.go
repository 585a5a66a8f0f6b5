package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"bwfcore/internal/metadata"
)

// Field selects which record attribute a Template slot renders.
type Field int

const (
	FieldNone Field = iota
	FieldProject
	FieldTape
	FieldScene
	FieldTake
	FieldCustom
)

// Template is the three-field rename pattern "<f1><sep1><f2><sep2><f3>".
// Separators are free-form strings; spec.md enumerates the palette a UI
// would offer ('', T, -, _, =, ~, +, ,, .) but this package doesn't
// restrict the value, since any separator composes the same way.
type Template struct {
	Field1, Field2, Field3    Field
	Custom1, Custom2, Custom3 string
	Sep1, Sep2                string
}

// Apply renders tmpl against rec, zero-padding numeric scene/take to width
// 2. If all three fields evaluate to empty, it falls back to
// "YYMMDD-HHMMSS-NN.wav" derived from the record's bext origination
// date/time, incrementing NN until exists reports the candidate is free.
func (t Template) Apply(rec metadata.Record, exists func(name string) bool) string {
	f1 := fieldValue(t.Field1, t.Custom1, rec)
	f2 := fieldValue(t.Field2, t.Custom2, rec)
	f3 := fieldValue(t.Field3, t.Custom3, rec)

	name := f1 + t.Sep1 + f2 + t.Sep2 + f3
	if f1 == "" && f2 == "" && f3 == "" {
		name = fallbackName(rec, exists)
	} else {
		name += ".wav"
	}

	return name
}

func fieldValue(f Field, custom string, rec metadata.Record) string {
	switch f {
	case FieldNone:
		return ""
	case FieldProject:
		return rec.Project
	case FieldTape:
		return rec.Tape
	case FieldScene:
		return padNumeric(rec.Scene)
	case FieldTake:
		return padNumeric(rec.Take)
	case FieldCustom:
		return custom
	default:
		return ""
	}
}

// padNumeric zero-pads s to width 2 if it parses as a nonnegative integer;
// non-numeric values (e.g. "12A") pass through unchanged.
func padNumeric(s string) string {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return s
	}

	return fmt.Sprintf("%02d", n)
}

// fallbackName derives "YYMMDD-HHMMSS-NN.wav" from rec's bext origination
// date ("YYYY-MM-DD") and time ("HH:MM:SS"), incrementing NN from 1 until
// exists reports the candidate free. A record with no usable origination
// fields falls back to an all-zero stamp, still disambiguated by NN.
func fallbackName(rec metadata.Record, exists func(name string) bool) string {
	stamp := originationStamp(rec.OriginationDate, rec.OriginationTime)

	for n := 1; n < 100; n++ {
		candidate := fmt.Sprintf("%s-%02d.wav", stamp, n)
		if exists == nil || !exists(candidate) {
			return candidate
		}
	}

	return fmt.Sprintf("%s-99.wav", stamp)
}

func originationStamp(date, clock string) string {
	dateParts := strings.Split(date, "-")

	yy, mm, dd := "00", "00", "00"
	if len(dateParts) == 3 && len(dateParts[0]) >= 2 {
		yy = dateParts[0][len(dateParts[0])-2:]
		mm = zeroPad2(dateParts[1])
		dd = zeroPad2(dateParts[2])
	}

	timeParts := strings.Split(clock, ":")

	hh, mi, ss := "00", "00", "00"
	if len(timeParts) == 3 {
		hh = zeroPad2(timeParts[0])
		mi = zeroPad2(timeParts[1])
		ss = zeroPad2(timeParts[2])
	}

	return fmt.Sprintf("%s%s%s-%s%s%s", yy, mm, dd, hh, mi, ss)
}

func zeroPad2(s string) string {
	if len(s) >= 2 {
		return s[:2]
	}

	return "0" + s
}
