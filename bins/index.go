// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bins

import (
	"github.com/biogo/store/llrb"
	"github.com/grailbio/spectra/profile"
)

// key orders bins by library, sequence and start.
type key struct {
	lib, seq string
	start    int
	bin      *Bin
}

// Compare implements llrb.Comparable.
func (k key) Compare(c llrb.Comparable) int {
	k2 := c.(key)
	if k.lib != k2.lib {
		if k.lib < k2.lib {
			return -1
		}
		return 1
	}
	if k.seq != k2.seq {
		if k.seq < k2.seq {
			return -1
		}
		return 1
	}
	return k.start - k2.start
}

// Index finds the bin that contains a coordinate.
type Index struct {
	tree llrb.Tree
}

// NewIndex indexes bins. Bins of one sequence must not overlap.
func NewIndex(bins []Bin) *Index {
	idx := &Index{}
	for i := range bins {
		b := &bins[i]
		idx.tree.Insert(key{b.Library, b.Sequence, b.Start, b})
	}
	return idx
}

// Len returns the number of indexed bins.
func (idx *Index) Len() int { return idx.tree.Len() }

// Locate returns the bin of the given sequence that contains the 1-based
// position pos.
func (idx *Index) Locate(k profile.Key, pos int) (*Bin, bool) {
	c := idx.tree.Floor(key{lib: k.Library, seq: k.Sequence, start: pos})
	if c == nil {
		return nil, false
	}
	b := c.(key).bin
	if b.Key != k || pos > b.End {
		return nil, false
	}
	return b, true
}
