// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bins

import (
	"io"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/spectra/profile"
)

// Write emits one row per bin: "Library Sequence Bin Start End Length"
// followed by the bin frequency of each mer.
func Write(w io.Writer, mers []string, bins []Bin) error {
	out := tsv.NewWriter(w)
	for _, name := range []string{"Library", "Sequence", "Bin", "Start", "End", "Length"} {
		out.WriteString(name)
	}
	for _, m := range mers {
		out.WriteString(m)
	}
	if err := out.EndLine(); err != nil {
		return err
	}
	for _, b := range bins {
		out.WriteString(b.Library)
		out.WriteString(b.Sequence)
		out.WriteString(b.Label)
		out.WriteInt64(int64(b.Start))
		out.WriteInt64(int64(b.End))
		out.WriteInt64(int64(b.Length()))
		for _, v := range b.Values {
			out.WriteString(profile.FormatValue(profile.Frequencies, v))
		}
		if err := out.EndLine(); err != nil {
			return err
		}
	}
	return out.Flush()
}
