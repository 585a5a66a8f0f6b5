package ixml

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"bwfcore/pkg/f16"
)

// MixerState is a compact automation envelope: one curve per mixed input
// channel, sampled at a fixed stride in source samples. It is carried
// inside iXML as a vendor MIXER_STATE element rather than a standard one —
// unrecognized by other iXML readers, but preserved verbatim by this
// codec's Node-tree round trip even when this file is never touched.
type MixerState struct {
	Version    int
	StrideSamples uint64
	Channels   [][]float32
}

const mixerStateVersion = 1

// ExtractMixerState reads a MIXER_STATE element back out, if present.
func (d *Document) ExtractMixerState() (MixerState, bool, error) {
	n := d.root.child("MIXER_STATE")
	if n == nil {
		return MixerState{}, false, nil
	}

	var ms MixerState

	if v := n.child("VERSION"); v != nil {
		if i, err := strconv.Atoi(v.Text); err == nil {
			ms.Version = i
		}
	}

	if s := n.child("STRIDE_SAMPLES"); s != nil {
		if v, err := strconv.ParseUint(s.Text, 10, 64); err == nil {
			ms.StrideSamples = v
		}
	}

	for _, ch := range n.childrenNamed("CHANNEL") {
		countStr := ""
		if c := ch.child("COUNT"); c != nil {
			countStr = c.Text
		}

		count, err := strconv.Atoi(countStr)
		if err != nil {
			return MixerState{}, false, fmt.Errorf("ixml: mixer state channel missing sample count: %w", err)
		}

		dataNode := ch.child("DATA")
		if dataNode == nil {
			return MixerState{}, false, fmt.Errorf("ixml: mixer state channel missing DATA")
		}

		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(dataNode.Text))
		if err != nil {
			return MixerState{}, false, fmt.Errorf("ixml: mixer state channel data: %w", err)
		}

		if len(raw) != count*2 {
			return MixerState{}, false, fmt.Errorf("ixml: mixer state channel declares %d samples, got %d bytes", count, len(raw))
		}

		ms.Channels = append(ms.Channels, f16.F16ToFloat32(raw))
	}

	return ms, true, nil
}

// InjectMixerState encodes automation envelopes into a MIXER_STATE element,
// using half-precision floats (pkg/f16) so curves add negligible size to
// the chunk relative to carrying them as float32 text.
func InjectMixerState(d *Document, ms MixerState) {
	d.root.removeChild("MIXER_STATE")

	if len(ms.Channels) == 0 {
		return
	}

	n := &Node{Name: "MIXER_STATE"}

	version := ms.Version
	if version == 0 {
		version = mixerStateVersion
	}

	n.setText("VERSION", strconv.Itoa(version))
	n.setText("STRIDE_SAMPLES", strconv.FormatUint(ms.StrideSamples, 10))

	for _, curve := range ms.Channels {
		ch := &Node{Name: "CHANNEL"}
		ch.setText("COUNT", strconv.Itoa(len(curve)))

		encoded := base64.StdEncoding.EncodeToString(f16.Float32ToF16(curve))
		ch.setText("DATA", encoded)

		n.Children = append(n.Children, ch)
	}

	d.root.Children = append(d.root.Children, n)
}
