// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package window generates the sliding windows that k-mer profiles are
// computed over.
//
// Windows start at Offset, Offset+Spacing, Offset+2*Spacing, ... and span
// [start, start+Width), clipped to the end of the sequence. Once a window
// reaches the end of the sequence no further windows are produced, so a
// sequence shorter than Width yields exactly one window.
//
// When ChunkSize is set the sequence is cut into chunks [0, ChunkSize),
// [ChunkSize, 2*ChunkSize), ... and each chunk is windowed on its own, with
// the first window at the chunk start (or Offset, if that is later) and every
// window clipped to the end of its chunk. Coordinates remain global. When
// ChunkSize is a multiple of Spacing the windows start at the same
// coordinates as without chunking.
package window

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// Span is a 0-based half-open coordinate range [Start, End).
type Span struct {
	Start, End int
}

// Len returns End-Start.
func (s Span) Len() int { return s.End - s.Start }

// String returns "[start,end)".
func (s Span) String() string { return fmt.Sprintf("[%d,%d)", s.Start, s.End) }

// Generator describes a windowing of a sequence. The zero value is not valid;
// see Validate.
type Generator struct {
	// Width is the nominal window length.
	Width int
	// Spacing is the distance between consecutive window starts.
	Spacing int
	// Offset is the start of the first window.
	Offset int
	// ChunkSize, if positive, bounds how much of a sequence is examined at a
	// time. Windows never cross a chunk boundary.
	ChunkSize int
}

// Validate checks that g describes a usable windowing.
func (g Generator) Validate() error {
	switch {
	case g.Width <= 0:
		return errors.E(errors.Invalid, fmt.Sprintf("window: width must be positive, got %d", g.Width))
	case g.Spacing <= 0:
		return errors.E(errors.Invalid, fmt.Sprintf("window: spacing must be positive, got %d", g.Spacing))
	case g.Offset < 0:
		return errors.E(errors.Invalid, fmt.Sprintf("window: negative offset %d", g.Offset))
	case g.ChunkSize < 0:
		return errors.E(errors.Invalid, fmt.Sprintf("window: negative chunk size %d", g.ChunkSize))
	}
	return nil
}

// NumChunks returns the number of chunks a sequence of the given length is
// cut into.
func (g Generator) NumChunks(length int) int {
	if length <= 0 {
		return 0
	}
	if g.ChunkSize <= 0 {
		return 1
	}
	return (length + g.ChunkSize - 1) / g.ChunkSize
}

// Chunk returns the i'th chunk of a sequence of the given length.
func (g Generator) Chunk(length, i int) Span {
	if g.ChunkSize <= 0 {
		return Span{0, length}
	}
	end := (i + 1) * g.ChunkSize
	if end > length {
		end = length
	}
	return Span{i * g.ChunkSize, end}
}

// Chunks returns every chunk of a sequence of the given length.
func (g Generator) Chunks(length int) []Span {
	n := g.NumChunks(length)
	chunks := make([]Span, n)
	for i := range chunks {
		chunks[i] = g.Chunk(length, i)
	}
	return chunks
}

// Scan returns a scanner over every window of a sequence of the given length.
// Each call returns an independent scanner. g must be valid.
func (g Generator) Scan(length int) *Scanner {
	return g.scan(length, 0, g.NumChunks(length))
}

// ScanChunk returns a scanner over the windows of the i'th chunk only.
func (g Generator) ScanChunk(length, i int) *Scanner {
	return g.scan(length, i, i+1)
}

func (g Generator) scan(length, first, limit int) *Scanner {
	s := &Scanner{g: g, length: length, c: first, cLimit: limit}
	if s.c < s.cLimit {
		s.enter()
	}
	return s
}

// Spans returns every window of a sequence of the given length.
func (g Generator) Spans(length int) []Span {
	var spans []Span
	for s := g.Scan(length); s.Scan(); {
		spans = append(spans, s.Span())
	}
	return spans
}

// Scanner iterates over windows. Usage:
//
//	s := g.Scan(n)
//	for s.Scan() {
//		w := s.Span()
//		...
//	}
type Scanner struct {
	g         Generator
	length    int
	c, cLimit int
	chunk     Span
	next      int
	cur       Span
	n         int
}

func (s *Scanner) enter() {
	s.chunk = s.g.Chunk(s.length, s.c)
	s.next = s.chunk.Start
	if s.g.Offset > s.next {
		s.next = s.g.Offset
	}
}

// Scan advances to the next window. It returns false when there are no more
// windows.
func (s *Scanner) Scan() bool {
	for s.c < s.cLimit {
		if s.next < s.chunk.End {
			start := s.next
			end := start + s.g.Width
			if end >= s.chunk.End {
				// The remaining starts in this chunk would only produce windows
				// nested inside this one.
				end = s.chunk.End
				s.next = s.chunk.End
			} else {
				s.next += s.g.Spacing
			}
			s.cur = Span{start, end}
			s.n++
			return true
		}
		s.c++
		if s.c < s.cLimit {
			s.enter()
		}
	}
	return false
}

// Span returns the current window.
func (s *Scanner) Span() Span { return s.cur }

// Chunk returns the chunk the current window belongs to.
func (s *Scanner) Chunk() Span { return s.chunk }

// N returns the number of windows produced so far.
func (s *Scanner) N() int { return s.n }
