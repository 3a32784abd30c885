// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package bins assigns segment labels to windows and aggregates the windows
// of each segment into a bin.
package bins

import (
	"fmt"

	"github.com/grailbio/spectra/freq"
	"github.com/grailbio/spectra/profile"
)

// Label returns the bin label "{library}_{sequence}_{ordinal}", with the
// ordinal zero-padded to four digits.
func Label(key profile.Key, ordinal int) string {
	return fmt.Sprintf("%s_%s_%04d", key.Library, key.Sequence, ordinal)
}

// Assign labels every window of p. coords are segment boundaries as returned
// by segment.Coordinates: a window whose Start is at or past coords[i] (for
// every i but the last) belongs to a later segment. The windows of the
// result share their values with p.
func Assign(p profile.Partition, coords []int) profile.Partition {
	out := profile.Partition{Key: p.Key, Windows: make([]profile.Window, len(p.Windows))}
	var interior []int
	if len(coords) > 0 {
		interior = coords[:len(coords)-1]
	}
	seg, ordinal, lastSeg := 0, -1, -1
	for i, w := range p.Windows {
		for seg < len(interior) && w.Start >= interior[seg] {
			seg++
		}
		if seg != lastSeg {
			ordinal++
			lastSeg = seg
		}
		w.Bin = Label(p.Key, ordinal)
		out.Windows[i] = w
	}
	return out
}

// Bin is a maximal run of windows sharing a label.
type Bin struct {
	profile.Key
	Label string
	// Start and End span the member windows, 1-based inclusive.
	Start, End int
	// Windows is the number of member windows.
	Windows int
	// Values is the frequency profile of the bin. It is all zero if the bin is
	// Degenerate.
	Values     []float64
	Degenerate bool
}

// Length returns End-Start+1.
func (b Bin) Length() int { return b.End - b.Start + 1 }

// Aggregate collects the bins of a labeled table. Count tables are pooled
// with freq.GlobalFromCounts, frequency tables with a span-weighted
// freq.Global. Consecutive windows with the same label form one bin;
// unlabeled windows are skipped.
func Aggregate(t *profile.Table) ([]Bin, []error, error) {
	k, err := freq.K(t)
	if err != nil {
		return nil, nil, err
	}
	var (
		result  []Bin
		flagged []error
	)
	for _, p := range t.Partitions {
		for i := 0; i < len(p.Windows); {
			j := i + 1
			for j < len(p.Windows) && p.Windows[j].Bin == p.Windows[i].Bin {
				j++
			}
			if label := p.Windows[i].Bin; label != "" {
				b, err := aggregate(p.Key, label, p.Windows[i:j], t.Kind, k)
				if err != nil {
					flagged = append(flagged, err)
				}
				result = append(result, b)
			}
			i = j
		}
	}
	return result, flagged, nil
}

func aggregate(key profile.Key, label string, windows []profile.Window, kind profile.Kind, k int) (Bin, error) {
	b := Bin{Key: key, Label: label, Start: windows[0].Start, End: windows[0].End, Windows: len(windows)}
	for _, w := range windows {
		if w.Start < b.Start {
			b.Start = w.Start
		}
		if w.End > b.End {
			b.End = w.End
		}
	}
	var err error
	if kind == profile.Frequencies {
		b.Values, err = freq.Global(windows, true)
	} else {
		b.Values, err = freq.GlobalFromCounts(windows, k)
	}
	if err != nil {
		if d, ok := err.(*freq.DegenerateInputError); ok {
			c := *d
			c.Key, c.Start, c.End = key, b.Start, b.End
			err = &c
		}
		b.Values = make([]float64, len(windows[0].Values))
		b.Degenerate = true
	}
	return b, err
}
