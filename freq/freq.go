// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package freq converts window profiles between counts and frequencies,
// averages them into global (background) compositions, and tests windows
// against a background with a chi-square goodness-of-fit test.
package freq

import (
	"fmt"
	"math"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/spectra/profile"
	"gonum.org/v1/gonum/floats"
)

// DegenerateInputError reports a window or scope whose size leaves nothing to
// divide by.
type DegenerateInputError struct {
	Key        profile.Key
	Start, End int
	Reason     string
}

// Error implements error.
func (e *DegenerateInputError) Error() string {
	if e.Key == (profile.Key{}) && e.Start == 0 && e.End == 0 {
		return "degenerate input: " + e.Reason
	}
	return fmt.Sprintf("degenerate input %v:%d-%d: %s", e.Key, e.Start, e.End, e.Reason)
}

// K returns the mer length of a table. All mer columns must share it.
func K(t *profile.Table) (int, error) {
	if len(t.Mers) == 0 {
		return 0, errors.E(errors.Invalid, "freq: table has no mer columns")
	}
	k := len(t.Mers[0])
	for _, m := range t.Mers {
		if len(m) != k {
			return 0, errors.E(errors.Invalid, fmt.Sprintf("freq: mixed mer lengths %q and %q", t.Mers[0], m))
		}
	}
	return k, nil
}

// Positions returns the number of k-mer start positions in w, which is
// (End-Start)-(k-2) for 1-based inclusive coordinates.
func Positions(w profile.Window, k int) int {
	return (w.End - w.Start) - (k - 2)
}

// CountsToFrequencies divides the counts of w by Positions(w, k). Windows
// shorter than k yield a *DegenerateInputError.
func CountsToFrequencies(w profile.Window, k int) ([]float64, error) {
	d := Positions(w, k)
	if d <= 0 {
		return nil, &DegenerateInputError{Start: w.Start, End: w.End,
			Reason: fmt.Sprintf("window shorter than k=%d", k)}
	}
	f := append([]float64(nil), w.Values...)
	floats.Scale(1/float64(d), f)
	return f, nil
}

// FrequenciesToCounts multiplies frequencies by Positions(w, k) and rounds to
// the nearest integer. It inverts CountsToFrequencies.
func FrequenciesToCounts(w profile.Window, freqs []float64, k int) ([]float64, error) {
	d := Positions(w, k)
	if d <= 0 {
		return nil, &DegenerateInputError{Start: w.Start, End: w.End,
			Reason: fmt.Sprintf("window shorter than k=%d", k)}
	}
	c := make([]float64, len(freqs))
	for i, f := range freqs {
		c[i] = math.Round(f * float64(d))
	}
	return c, nil
}

// Global averages the values of windows. If weighted, each window is
// weighted by its span End-Start. Weighted averaging over a zero total span,
// or averaging no windows at all, yields a *DegenerateInputError.
func Global(windows []profile.Window, weighted bool) ([]float64, error) {
	if len(windows) == 0 {
		return nil, &DegenerateInputError{Reason: "no windows"}
	}
	g := make([]float64, len(windows[0].Values))
	total := 0.0
	for _, w := range windows {
		weight := 1.0
		if weighted {
			weight = float64(w.End - w.Start)
		}
		floats.AddScaled(g, weight, w.Values)
		total += weight
	}
	if total <= 0 {
		return nil, &DegenerateInputError{
			Start: windows[0].Start, End: windows[len(windows)-1].End,
			Reason: "zero total span"}
	}
	floats.Scale(1/total, g)
	return g, nil
}

// GlobalFromCounts sums the counts of windows and divides by the summed
// Positions of the windows.
func GlobalFromCounts(windows []profile.Window, k int) ([]float64, error) {
	if len(windows) == 0 {
		return nil, &DegenerateInputError{Reason: "no windows"}
	}
	g := make([]float64, len(windows[0].Values))
	total := 0
	for _, w := range windows {
		floats.Add(g, w.Values)
		total += Positions(w, k)
	}
	if total <= 0 {
		return nil, &DegenerateInputError{
			Start: windows[0].Start, End: windows[len(windows)-1].End,
			Reason: fmt.Sprintf("no %d-mer positions", k)}
	}
	floats.Scale(1/float64(total), g)
	return g, nil
}

// Frequencies returns the frequency profile of w, converting counts if the
// table holds counts.
func Frequencies(w profile.Window, kind profile.Kind, k int) ([]float64, error) {
	if kind == profile.Frequencies {
		return w.Values, nil
	}
	return CountsToFrequencies(w, k)
}
