// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package profile holds per-window k-mer profiles grouped by (library,
// sequence) and reads and writes them as tab-separated tables.
//
// Window coordinates are 1-based and closed: a window covering the first 50
// bases of a sequence has Start=1 and End=50.
package profile

import (
	"fmt"
	"math"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/spectra/window"
)

// Kind says how the values of a table are to be interpreted.
type Kind int

const (
	// Counts are non-negative mer occurrence counts.
	Counts Kind = iota
	// Frequencies are proportions in [0, 1].
	Frequencies
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k == Frequencies {
		return "frequencies"
	}
	return "counts"
}

// Window is the profile of one window.
type Window struct {
	// Start and End are 1-based, inclusive.
	Start, End int
	// Values has one entry per mer column of the owning table.
	Values []float64
	// Bin is the label assigned by segmentation. It is empty until then.
	Bin string
}

// NewWindow creates a window for a 0-based half-open span.
func NewWindow(span window.Span, values []float64) Window {
	return Window{Start: span.Start + 1, End: span.End, Values: values}
}

// Len returns the number of bases covered by the window.
func (w Window) Len() int { return w.End - w.Start + 1 }

// Span returns the window coordinates as a 0-based half-open span.
func (w Window) Span() window.Span { return window.Span{Start: w.Start - 1, End: w.End} }

// Key identifies a partition.
type Key struct {
	Library, Sequence string
}

// String returns "library/sequence".
func (k Key) String() string { return k.Library + "/" + k.Sequence }

// Partition is the ordered list of windows of one (library, sequence).
type Partition struct {
	Key
	Windows []Window
}

// Table is an ordered collection of partitions sharing one mer layout.
type Table struct {
	Mers       []string
	Kind       Kind
	Partitions []Partition

	index map[Key]int
}

// NewTable creates an empty table with the given mer columns.
func NewTable(mers []string, kind Kind) *Table {
	return &Table{Mers: mers, Kind: kind}
}

func (t *Table) reindex() {
	t.index = make(map[Key]int, len(t.Partitions))
	for i, p := range t.Partitions {
		t.index[p.Key] = i
	}
}

// Partition returns the partition with the given key, or nil.
func (t *Table) Partition(key Key) *Partition {
	if t.index == nil || len(t.index) != len(t.Partitions) {
		t.reindex()
	}
	i, ok := t.index[key]
	if !ok {
		return nil
	}
	return &t.Partitions[i]
}

// Add appends windows to the partition with the given key, creating the
// partition at the end of the table if needed.
func (t *Table) Add(key Key, windows ...Window) {
	p := t.Partition(key)
	if p == nil {
		t.Partitions = append(t.Partitions, Partition{Key: key})
		t.index[key] = len(t.Partitions) - 1
		p = &t.Partitions[len(t.Partitions)-1]
	}
	p.Windows = append(p.Windows, windows...)
}

// AddPartition appends a whole partition. It is an error if the key already
// exists.
func (t *Table) AddPartition(p Partition) error {
	if t.Partition(p.Key) != nil {
		return errors.E(errors.Invalid, fmt.Sprintf("profile: duplicate partition %v", p.Key))
	}
	t.Partitions = append(t.Partitions, p)
	t.index[p.Key] = len(t.Partitions) - 1
	return nil
}

// NumWindows returns the number of windows in all partitions.
func (t *Table) NumWindows() int {
	n := 0
	for _, p := range t.Partitions {
		n += len(p.Windows)
	}
	return n
}

// HasBins reports whether any window carries a bin label.
func (t *Table) HasBins() bool {
	for _, p := range t.Partitions {
		for _, w := range p.Windows {
			if w.Bin != "" {
				return true
			}
		}
	}
	return false
}

// Sort orders the windows of every partition by coordinate.
func (t *Table) Sort() {
	for _, p := range t.Partitions {
		sort.SliceStable(p.Windows, func(i, j int) bool {
			a, b := p.Windows[i], p.Windows[j]
			if a.Start != b.Start {
				return a.Start < b.Start
			}
			return a.End < b.End
		})
	}
}

// Validate checks the structural invariants of t: each window has one value
// per mer, positive length, finite non-negative values, and windows within a
// partition are sorted with no repeated coordinates.
func (t *Table) Validate() error {
	for _, p := range t.Partitions {
		for i, w := range p.Windows {
			if len(w.Values) != len(t.Mers) {
				return errors.E(errors.Invalid, fmt.Sprintf("profile: %v:%d-%d has %d values, want %d",
					p.Key, w.Start, w.End, len(w.Values), len(t.Mers)))
			}
			if w.End < w.Start {
				return errors.E(errors.Invalid, fmt.Sprintf("profile: %v: bad window %d-%d", p.Key, w.Start, w.End))
			}
			for j, v := range w.Values {
				if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
					return errors.E(errors.Invalid, fmt.Sprintf("profile: %v:%d-%d: bad value %v for %s",
						p.Key, w.Start, w.End, v, t.Mers[j]))
				}
			}
			if i == 0 {
				continue
			}
			prev := p.Windows[i-1]
			if prev.Start > w.Start || (prev.Start == w.Start && prev.End >= w.End) {
				return errors.E(errors.Invalid, fmt.Sprintf("profile: %v: window %d-%d out of order after %d-%d",
					p.Key, w.Start, w.End, prev.Start, prev.End))
			}
		}
	}
	return nil
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	c := &Table{Mers: append([]string(nil), t.Mers...), Kind: t.Kind}
	c.Partitions = make([]Partition, len(t.Partitions))
	for i, p := range t.Partitions {
		c.Partitions[i] = p.Clone()
	}
	return c
}

// Clone returns a deep copy of p.
func (p Partition) Clone() Partition {
	c := Partition{Key: p.Key, Windows: make([]Window, len(p.Windows))}
	for i, w := range p.Windows {
		w.Values = append([]float64(nil), w.Values...)
		c.Windows[i] = w
	}
	return c
}

// Matrix returns the profile values of p, one row per window. The rows alias
// the window values.
func (p Partition) Matrix() [][]float64 {
	rows := make([][]float64, len(p.Windows))
	for i, w := range p.Windows {
		rows[i] = w.Values
	}
	return rows
}
