// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package profile

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/spectra/mer"
)

// ParseLibrary splits a sequence name of the form "LIBRARY_rest" into its
// library and sequence parts. Names without an underscore belong to
// defaultLibrary.
func ParseLibrary(name, defaultLibrary string) Key {
	if i := strings.IndexByte(name, '_'); i > 0 && i < len(name)-1 {
		return Key{Library: name[:i], Sequence: name[i+1:]}
	}
	return Key{Library: defaultLibrary, Sequence: name}
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Collate concatenates tables with identical mer columns and value kinds.
// Partitions that appear in more than one table are merged and re-sorted.
func Collate(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, errors.E(errors.Invalid, "profile: nothing to collate")
	}
	out := NewTable(append([]string(nil), tables[0].Mers...), tables[0].Kind)
	for i, t := range tables {
		if !sameColumns(t.Mers, out.Mers) {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("profile: table %d has different mer columns", i))
		}
		if t.Kind != out.Kind {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("profile: table %d holds %v, want %v", i, t.Kind, out.Kind))
		}
		for _, p := range t.Partitions {
			out.Add(p.Key, p.Clone().Windows...)
		}
	}
	out.Sort()
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Resize merges every run of factor consecutive windows of a partition into
// one window spanning the run, summing the counts. The last run of a
// partition may be shorter. Bin labels survive only if the whole run
// shares one label.
func Resize(t *Table, factor int) (*Table, error) {
	if factor < 1 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("profile: resize factor must be positive, got %d", factor))
	}
	if t.Kind != Counts {
		return nil, errors.E(errors.Invalid, "profile: only count tables can be resized")
	}
	out := NewTable(append([]string(nil), t.Mers...), t.Kind)
	for _, p := range t.Partitions {
		merged := Partition{Key: p.Key}
		for i := 0; i < len(p.Windows); i += factor {
			end := i + factor
			if end > len(p.Windows) {
				end = len(p.Windows)
			}
			merged.Windows = append(merged.Windows, combine(p.Windows[i:end]))
		}
		if err := out.AddPartition(merged); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func combine(run []Window) Window {
	w := Window{
		Start:  run[0].Start,
		End:    run[len(run)-1].End,
		Values: make([]float64, len(run[0].Values)),
		Bin:    run[0].Bin,
	}
	for _, r := range run {
		for j, v := range r.Values {
			w.Values[j] += v
		}
		if r.End > w.End {
			w.End = r.End
		}
		if r.Bin != w.Bin {
			w.Bin = ""
		}
	}
	return w
}

// Fold collapses each mer column with its reverse complement into one
// canonical column, summing values. Output columns follow the canonical
// layout of the alphabet, restricted to the canonical mers present in t.
func Fold(t *Table, a *mer.Alphabet) (*Table, error) {
	layout := a.CanonicalLayout()
	target := make([]int, len(t.Mers))
	present := make([]bool, layout.Len())
	for i, m := range t.Mers {
		code, err := a.Code(m)
		if err != nil {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("profile: column %q", m), err)
		}
		target[i] = layout.Column(code)
		present[target[i]] = true
	}
	remap := make([]int, layout.Len())
	var cols []string
	for c, ok := range present {
		remap[c] = -1
		if ok {
			remap[c] = len(cols)
			cols = append(cols, layout.Columns()[c])
		}
	}
	out := NewTable(cols, t.Kind)
	for _, p := range t.Partitions {
		folded := Partition{Key: p.Key, Windows: make([]Window, len(p.Windows))}
		for i, w := range p.Windows {
			fw := w
			fw.Values = make([]float64, len(cols))
			for j, v := range w.Values {
				fw.Values[remap[target[j]]] += v
			}
			folded.Windows[i] = fw
		}
		if err := out.AddPartition(folded); err != nil {
			return nil, err
		}
	}
	return out, nil
}
