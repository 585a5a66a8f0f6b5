// Package grouping classifies a flat list of metadata records into
// polyphonic "take groups" by structural fingerprint: files a field
// recorder wrote as separate mono tracks for the same take share an
// identical (audioDataSize, timeReference) pair and a common basename.
package grouping

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"bwfcore/internal/metadata"
)

// suffixPattern matches "<base>_<suffix>.wav" where suffix is a run of
// digits, a run of letters optionally followed by digits, or a single
// letter.
var suffixPattern = regexp.MustCompile(`(?i)^(.*)_([0-9]+|[A-Z]+[0-9]*|[A-Z])\.wav$`)

// TakeGroup is a set of sibling records believed to be one polyphonic take.
type TakeGroup struct {
	Base       string
	Members    []metadata.Record
	Channels   int
	TrackNames []string
}

// Item is either a bare record or a TakeGroup, the Grouping Engine's output
// shape.
type Item struct {
	Record *metadata.Record
	Group  *TakeGroup
}

type fingerprint struct {
	audioDataSize uint64
	timeReference uint64
}

// Group buckets records by fingerprint, then by common basename within
// each bucket, producing Groups for buckets with two or more matching
// siblings and passing everything else through as a bare Item.
func Group(records []metadata.Record) []Item {
	buckets := make(map[fingerprint][]metadata.Record)
	order := make([]fingerprint, 0)

	for _, r := range records {
		fp := fingerprint{audioDataSize: r.AudioDataSize, timeReference: r.TimeReference}
		if _, seen := buckets[fp]; !seen {
			order = append(order, fp)
		}

		buckets[fp] = append(buckets[fp], r)
	}

	var out []Item

	for _, fp := range order {
		members := buckets[fp]
		if len(members) < 2 {
			out = append(out, Item{Record: recPtr(members[0])})
			continue
		}

		out = append(out, groupByBasename(members)...)
	}

	return out
}

func groupByBasename(members []metadata.Record) []Item {
	type subgroup struct {
		base    string
		recs    []metadata.Record
		suffix  []string
	}

	bases := make(map[string]*subgroup)
	var order []string

	for _, r := range members {
		base, suffix, ok := splitSuffix(r.Filename)
		if !ok {
			continue
		}

		key := strings.ToLower(base)

		sg, exists := bases[key]
		if !exists {
			sg = &subgroup{base: base}
			bases[key] = sg
			order = append(order, key)
		}

		sg.recs = append(sg.recs, r)
		sg.suffix = append(sg.suffix, suffix)
	}

	matched := make(map[string]bool)

	var out []Item

	for _, key := range order {
		sg := bases[key]
		if len(sg.recs) < 2 {
			continue
		}

		sortBySuffix(sg.recs, sg.suffix)

		out = append(out, Item{Group: &TakeGroup{
			Base:       sg.base,
			Members:    sg.recs,
			Channels:   sumChannels(sg.recs),
			TrackNames: buildTrackNames(sg.recs, sg.suffix),
		}})

		for _, r := range sg.recs {
			matched[r.Filename] = true
		}
	}

	for _, r := range members {
		if !matched[r.Filename] {
			rc := r
			out = append(out, Item{Record: &rc})
		}
	}

	return out
}

func splitSuffix(filename string) (base, suffix string, ok bool) {
	m := suffixPattern.FindStringSubmatch(filepath.Base(filename))
	if m == nil {
		return "", "", false
	}

	return m[1], m[2], true
}

// sortBySuffix orders recs (and the parallel suffix slice) using natural
// (numeric-aware) comparison, so "_2" sorts before "_10".
func sortBySuffix(recs []metadata.Record, suffix []string) {
	idx := make([]int, len(recs))
	for i := range idx {
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool {
		return suffixLess(suffix[idx[a]], suffix[idx[b]])
	})

	sortedRecs := make([]metadata.Record, len(recs))
	sortedSuffix := make([]string, len(suffix))

	for i, j := range idx {
		sortedRecs[i] = recs[j]
		sortedSuffix[i] = suffix[j]
	}

	copy(recs, sortedRecs)
	copy(suffix, sortedSuffix)
}

func suffixLess(a, b string) bool {
	an, aerr := strconv.Atoi(a)
	bn, berr := strconv.Atoi(b)

	if aerr == nil && berr == nil {
		return an < bn
	}

	return strings.ToLower(a) < strings.ToLower(b)
}

func sumChannels(recs []metadata.Record) int {
	total := 0
	for _, r := range recs {
		total += r.Channels
	}

	return total
}

func buildTrackNames(recs []metadata.Record, suffix []string) []string {
	var names []string

	for i, r := range recs {
		if len(r.TrackNames) > 0 && r.TrackNames[0] != "" {
			names = append(names, r.TrackNames[0])
			continue
		}

		names = append(names, fmt.Sprintf("Ch%s", suffix[i]))
	}

	return names
}

func recPtr(r metadata.Record) *metadata.Record {
	rc := r
	return &rc
}

// Ungroup flattens Items back into the original bare records, discarding
// no metadata; it is the exact inverse of Group for any input that
// produced no Groups, and for Groups it simply returns their Members.
func Ungroup(items []Item) []metadata.Record {
	var out []metadata.Record

	for _, it := range items {
		if it.Group != nil {
			out = append(out, it.Group.Members...)
			continue
		}

		out = append(out, *it.Record)
	}

	return out
}
