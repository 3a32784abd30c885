// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package freq

import (
	"github.com/grailbio/spectra/profile"
)

// withKey attaches partition context to a degenerate input error.
func withKey(err error, key profile.Key, w profile.Window) error {
	if d, ok := err.(*DegenerateInputError); ok {
		c := *d
		c.Key, c.Start, c.End = key, w.Start, w.End
		return &c
	}
	return err
}

// ToFrequencies converts a count table to a frequency table. Windows too
// short to hold a k-mer get an all-zero profile and are reported in flagged.
func ToFrequencies(t *profile.Table) (out *profile.Table, flagged []error, err error) {
	if t.Kind == profile.Frequencies {
		return t, nil, nil
	}
	k, err := K(t)
	if err != nil {
		return nil, nil, err
	}
	out = profile.NewTable(t.Mers, profile.Frequencies)
	for _, p := range t.Partitions {
		conv := profile.Partition{Key: p.Key, Windows: make([]profile.Window, len(p.Windows))}
		for i, w := range p.Windows {
			f, err := CountsToFrequencies(w, k)
			if err != nil {
				flagged = append(flagged, withKey(err, p.Key, w))
				f = make([]float64, len(t.Mers))
			}
			w.Values = f
			conv.Windows[i] = w
		}
		if err := out.AddPartition(conv); err != nil {
			return nil, nil, err
		}
	}
	return out, flagged, nil
}

// TableGlobal computes the global frequency profile of every window of t.
// Frequency tables are averaged with Global. Count tables are pooled with
// GlobalFromCounts when weighted, which weighs each window by its k-mer
// positions; otherwise each window is converted to frequencies and the
// windows are averaged with equal weight, skipping windows too short to hold
// a k-mer.
func TableGlobal(t *profile.Table, weighted bool) ([]float64, error) {
	var all []profile.Window
	for _, p := range t.Partitions {
		all = append(all, p.Windows...)
	}
	if t.Kind == profile.Frequencies {
		return Global(all, weighted)
	}
	k, err := K(t)
	if err != nil {
		return nil, err
	}
	if weighted {
		return GlobalFromCounts(all, k)
	}
	conv := make([]profile.Window, 0, len(all))
	for _, w := range all {
		f, err := CountsToFrequencies(w, k)
		if err != nil {
			continue
		}
		w.Values = f
		conv = append(conv, w)
	}
	return Global(conv, false)
}

// NormalizeTable applies Normalize to every window of t. Windows that cannot
// be normalized are copied unchanged and reported in flagged.
func NormalizeTable(t *profile.Table, global []float64) (out *profile.Table, flagged []error, err error) {
	k, err := K(t)
	if err != nil {
		return nil, nil, err
	}
	out = profile.NewTable(t.Mers, t.Kind)
	for _, p := range t.Partitions {
		norm := profile.Partition{Key: p.Key, Windows: make([]profile.Window, len(p.Windows))}
		for i, w := range p.Windows {
			nw, err := Normalize(w, t.Kind, global, k)
			if err != nil {
				flagged = append(flagged, withKey(err, p.Key, w))
			}
			norm.Windows[i] = nw
		}
		if err := out.AddPartition(norm); err != nil {
			return nil, nil, err
		}
	}
	return out, flagged, nil
}
