// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package profile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// Leading columns of every profile table, in order.
var keyColumns = []string{"Library", "Sequence", "Start", "End"}

// Names accepted for the optional trailing bin label column.
const (
	BinColumn   = "Bin"
	blockColumn = "Block"
)

// Read parses a profile table. Column order is "Library Sequence Start End"
// followed by one column per mer and an optional trailing "Bin" (or "Block")
// column. Lines starting with '#' are ignored. Windows are grouped into
// partitions in order of first appearance and sorted by coordinate.
func Read(r io.Reader, kind Kind) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.E(errors.Invalid, "profile: empty table")
	}
	if err != nil {
		return nil, errors.E(err, "profile: read header")
	}
	if len(header) < len(keyColumns)+1 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("profile: header has %d columns", len(header)))
	}
	for i, name := range keyColumns {
		if header[i] != name {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("profile: column %d is %q, want %q", i, header[i], name))
		}
	}
	last := len(header)
	binCol := -1
	if h := header[last-1]; h == BinColumn || h == blockColumn {
		binCol = last - 1
		last--
	}
	mers := append([]string(nil), header[len(keyColumns):last]...)
	if len(mers) == 0 {
		return nil, errors.E(errors.Invalid, "profile: no mer columns")
	}
	t := NewTable(mers, kind)
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.E(err, fmt.Sprintf("profile: line %d", line))
		}
		w := Window{Values: make([]float64, len(mers))}
		if w.Start, err = strconv.Atoi(row[2]); err != nil {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("profile: line %d: bad start %q", line, row[2]))
		}
		if w.End, err = strconv.Atoi(row[3]); err != nil {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("profile: line %d: bad end %q", line, row[3]))
		}
		for i := range mers {
			field := row[len(keyColumns)+i]
			if w.Values[i], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, errors.E(errors.Invalid, fmt.Sprintf("profile: line %d: bad value %q for %s", line, field, mers[i]))
			}
		}
		if binCol >= 0 {
			w.Bin = row[binCol]
		}
		t.Add(Key{Library: row[0], Sequence: row[1]}, w)
	}
	t.Sort()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Write emits t in the format accepted by Read. The Bin column is written
// only if some window has a bin label.
func Write(w io.Writer, t *Table) error {
	out := tsv.NewWriter(w)
	bins := t.HasBins()
	for _, name := range keyColumns {
		out.WriteString(name)
	}
	for _, m := range t.Mers {
		out.WriteString(m)
	}
	if bins {
		out.WriteString(BinColumn)
	}
	if err := out.EndLine(); err != nil {
		return err
	}
	for _, p := range t.Partitions {
		for _, win := range p.Windows {
			out.WriteString(p.Library)
			out.WriteString(p.Sequence)
			out.WriteInt64(int64(win.Start))
			out.WriteInt64(int64(win.End))
			for _, v := range win.Values {
				out.WriteString(FormatValue(t.Kind, v))
			}
			if bins {
				out.WriteString(win.Bin)
			}
			if err := out.EndLine(); err != nil {
				return err
			}
		}
	}
	return out.Flush()
}

// FormatValue renders a profile value. Counts are written as integers.
func FormatValue(kind Kind, v float64) string {
	if kind == Counts && v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
