// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package window

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// Source supplies named sequences with random access by coordinate range.
// encoding/fasta implements it.
type Source interface {
	// Get returns the subsequence [start, end) of seqName.
	Get(seqName string, start, end uint64) (string, error)
	// Len returns the length of seqName.
	Len(seqName string) (uint64, error)
}

// Each calls fn for every window of one sequence of src, in coordinate
// order. seq is the window's subsequence. Only one chunk of the sequence is
// held in memory at a time.
func Each(src Source, seqName string, g Generator, fn func(w Span, seq string) error) error {
	length, err := src.Len(seqName)
	if err != nil {
		return err
	}
	for c := 0; c < g.NumChunks(int(length)); c++ {
		if err := EachInChunk(src, seqName, int(length), g, c, fn); err != nil {
			return err
		}
	}
	return nil
}

// EachInChunk is like Each, but only visits the windows of chunk c. length
// must be the length of seqName.
func EachInChunk(src Source, seqName string, length int, g Generator, c int, fn func(w Span, seq string) error) error {
	chunk := g.Chunk(length, c)
	if chunk.Len() <= 0 {
		return nil
	}
	data, err := src.Get(seqName, uint64(chunk.Start), uint64(chunk.End))
	if err != nil {
		return errors.E(err, fmt.Sprintf("window: read %s%v", seqName, chunk))
	}
	for s := g.ScanChunk(length, c); s.Scan(); {
		w := s.Span()
		if err := fn(w, data[w.Start-chunk.Start:w.End-chunk.Start]); err != nil {
			return err
		}
	}
	return nil
}
