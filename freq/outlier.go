// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package freq

import (
	"fmt"
	"math"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/spectra/profile"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultThreshold is the p-value at or above which a window is considered
// indistinguishable from the background.
const DefaultThreshold = 0.999

// ValidateThreshold checks that p is a usable p-value threshold.
func ValidateThreshold(p float64) error {
	if !(p > 0 && p <= 1) {
		return errors.E(errors.Invalid, fmt.Sprintf("freq: threshold must be in (0, 1], got %v", p))
	}
	return nil
}

// normalized returns v scaled to sum to one, or v itself if it already does.
func normalized(v []float64) []float64 {
	s := floats.Sum(v)
	if s == 0 || math.Abs(s-1) < 1e-12 {
		return v
	}
	n := append([]float64(nil), v...)
	floats.Scale(1/s, n)
	return n
}

// ChiSquare runs a chi-square goodness-of-fit test of observed against
// expected, after scaling both to sum to one. Categories where both are zero
// are ignored; an observed value in a category with zero expectation makes
// the statistic infinite. df is the number of categories used minus one.
func ChiSquare(observed, expected []float64) (chi2, p float64, df int) {
	expected = normalized(expected)
	observed = normalized(observed)
	var obs, exp []float64
	for i, e := range expected {
		if e == 0 {
			if observed[i] != 0 {
				return math.Inf(1), 0, len(expected) - 1
			}
			continue
		}
		obs = append(obs, observed[i])
		exp = append(exp, e)
	}
	df = len(obs) - 1
	if df < 1 {
		return 0, 1, 0
	}
	chi2 = stat.ChiSquare(obs, exp)
	return chi2, distuv.ChiSquared{K: float64(df)}.Survival(chi2), df
}

// Outlier reports whether a window's frequency profile is so close to the
// expected profile that the chi-square p-value reaches threshold. Such
// windows carry no composition signal beyond the background. A window with
// an all-zero profile is always an outlier. An all-zero expected profile
// yields a *DegenerateInputError.
func Outlier(observed, expected []float64, threshold float64) (bool, error) {
	if floats.Sum(expected) <= 0 {
		return false, &DegenerateInputError{Reason: "expected frequencies are all zero"}
	}
	if floats.Sum(observed) == 0 {
		return true, nil
	}
	_, p, _ := ChiSquare(observed, expected)
	return p >= threshold, nil
}

// Split divides the windows of t into those that differ from the global
// profile and the outliers, as decided by Outlier. Windows whose frequency
// cannot be computed have no profile and are outliers.
func Split(t *profile.Table, global []float64, threshold float64) (normal, outliers *profile.Table, err error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, nil, err
	}
	k, err := K(t)
	if err != nil {
		return nil, nil, err
	}
	normal = profile.NewTable(t.Mers, t.Kind)
	outliers = profile.NewTable(t.Mers, t.Kind)
	for _, p := range t.Partitions {
		for _, w := range p.Windows {
			out := true
			if f, err := Frequencies(w, t.Kind, k); err == nil {
				if out, err = Outlier(f, global, threshold); err != nil {
					return nil, nil, err
				}
			} else {
				log.Debug.Printf("%v:%d-%d: %v", p.Key, w.Start, w.End, err)
			}
			if out {
				outliers.Add(p.Key, w)
			} else {
				normal.Add(p.Key, w)
			}
		}
	}
	return normal, outliers, nil
}

// Normalize subtracts global from the frequency profile of w, flooring at
// zero. For count tables the counts are recomputed from the adjusted
// frequencies.
func Normalize(w profile.Window, kind profile.Kind, global []float64, k int) (profile.Window, error) {
	f, err := Frequencies(w, kind, k)
	if err != nil {
		return w, err
	}
	adj := make([]float64, len(f))
	for i := range f {
		adj[i] = math.Max(0, f[i]-global[i])
	}
	out := w
	if kind == profile.Frequencies {
		out.Values = adj
		return out, nil
	}
	if out.Values, err = FrequenciesToCounts(w, adj, k); err != nil {
		return w, err
	}
	return out, nil
}
