// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package mer

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// noColumn marks codes that do not contribute to any column of a Layout.
const noColumn = int32(-1)

// Layout maps mer codes onto the columns of a profile vector. A layout is
// immutable and shared read-only by all counting workers.
type Layout struct {
	alphabet  *Alphabet
	canonical bool
	cols      []string
	colOf     []int32 // indexed by code
}

// Full returns the layout with one column per mer, in code order.
func (a *Alphabet) Full() *Layout {
	l := &Layout{alphabet: a, cols: a.Enumerate(), colOf: make([]int32, a.size)}
	for code := range l.colOf {
		l.colOf[code] = int32(code)
	}
	return l
}

// CanonicalLayout returns the layout with one column per canonical mer. A mer
// and its reverse complement share a column. Columns appear in the code order
// of their representatives.
func (a *Alphabet) CanonicalLayout() *Layout {
	l := &Layout{alphabet: a, canonical: true, colOf: make([]int32, a.size)}
	for code := range l.colOf {
		l.colOf[code] = noColumn
	}
	for code := 0; code < a.size; code++ {
		if a.CanonicalCode(code) != code {
			continue
		}
		col := int32(len(l.cols))
		l.cols = append(l.cols, a.Mer(code))
		l.colOf[code] = col
		l.colOf[a.rc[code]] = col
	}
	return l
}

// QueryLayout returns a layout restricted to the given mers, in the given
// order. If canonical is set, each query also collects the occurrences of its
// reverse complement, and the column is named by the canonical mer.
func (a *Alphabet) QueryLayout(mers []string, canonical bool) (*Layout, error) {
	if len(mers) == 0 {
		return nil, errors.E(errors.Invalid, "mer: empty query")
	}
	l := &Layout{alphabet: a, canonical: canonical, colOf: make([]int32, a.size)}
	for code := range l.colOf {
		l.colOf[code] = noColumn
	}
	for _, m := range mers {
		code, err := a.Code(m)
		if err != nil {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("mer: bad query %q", m), err)
		}
		if canonical {
			code = a.CanonicalCode(code)
		}
		if l.colOf[code] != noColumn {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("mer: duplicate query %q", m))
		}
		col := int32(len(l.cols))
		l.cols = append(l.cols, a.Mer(code))
		l.colOf[code] = col
		if canonical {
			l.colOf[a.rc[code]] = col
		}
	}
	return l, nil
}

// Alphabet returns the alphabet the layout was built from.
func (l *Layout) Alphabet() *Alphabet { return l.alphabet }

// Canonical reports whether reverse complements share columns.
func (l *Layout) Canonical() bool { return l.canonical }

// Columns returns the column names. The caller must not modify the result.
func (l *Layout) Columns() []string { return l.cols }

// Len returns the number of columns.
func (l *Layout) Len() int { return len(l.cols) }

// Column returns the column that collects the given mer code, or -1 if the
// code is not counted.
func (l *Layout) Column(code int) int { return int(l.colOf[code]) }
