package ixml

import (
	"strconv"
)

// Marker is a named sync point: a sample-accurate position with a label
// and a type tag (iXML distinguishes "RELATIVE" time-of-day markers from
// general-purpose ones). It is declared here, rather than imported from
// internal/cue, specifically to avoid a cue<->ixml import cycle: cue only
// knows id+offset, ixml only knows label+offset, and internal/metadata is
// the package that joins the two by ID.
type Marker struct {
	ID       uint32
	Position uint64
	Label    string
	Type     string
}

// SyncPoints returns every SYNC_POINT under BWFXML/SYNC_POINT_LIST.
func (d *Document) SyncPoints() []Marker {
	list := d.root.child("SYNC_POINT_LIST")
	if list == nil {
		return nil
	}

	var out []Marker

	for _, sp := range list.childrenNamed("SYNC_POINT") {
		m := Marker{Type: "RELATIVE"}

		if n := sp.child("SYNC_POINT_TYPE"); n != nil {
			m.Type = n.Text
		}

		if n := sp.child("SYNC_POINT_FUNCTION"); n != nil {
			m.Label = n.Text
		}

		if n := sp.child("SYNC_POINT_COMMENT"); n != nil && m.Label == "" {
			m.Label = n.Text
		}

		hi := sp.child("SYNC_POINT_HIGH")
		lo := sp.child("SYNC_POINT_LOW")

		if hi != nil && lo != nil {
			hv, errH := strconv.ParseUint(hi.Text, 10, 32)
			lv, errL := strconv.ParseUint(lo.Text, 10, 32)

			if errH == nil && errL == nil {
				m.Position = hv<<32 | lv
			}
		}

		if id := sp.child("SYNC_POINT_EVENT_DURATION"); id != nil {
			// some writers reuse the event duration field as identity; ignore,
			// cue.Point.ID is the canonical identity and carried separately.
			_ = id
		}

		out = append(out, m)
	}

	return out
}

// InjectSyncPoints replaces BWFXML/SYNC_POINT_LIST with markers, assigning
// each a stable SYNC_POINT_ID in encounter order. It is the counterpart of
// cue.Synthesize: the caller is expected to also emit matching cue.Point
// entries with the same sample position so the two chunks describe the
// same locations.
func InjectSyncPoints(d *Document, markers []Marker) {
	d.root.removeChild("SYNC_POINT_LIST")

	if len(markers) == 0 {
		return
	}

	list := d.root.ensure("SYNC_POINT_LIST")

	for i, m := range markers {
		sp := &Node{Name: "SYNC_POINT"}
		sp.setText("SYNC_POINT_ID", strconv.Itoa(i))

		typ := m.Type
		if typ == "" {
			typ = "RELATIVE"
		}

		sp.setText("SYNC_POINT_TYPE", typ)
		sp.setText("SYNC_POINT_FUNCTION", m.Label)
		sp.setText("SYNC_POINT_HIGH", strconv.FormatUint(m.Position>>32, 10))
		sp.setText("SYNC_POINT_LOW", strconv.FormatUint(m.Position&0xFFFFFFFF, 10))

		list.Children = append(list.Children, sp)
	}
}
