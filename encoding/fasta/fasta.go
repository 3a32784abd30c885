// Package fasta provides random access to the named sequences of a FASTA
// file. Sequences are either held in memory or read on demand through a
// samtools faidx index (http://www.htslib.org/doc/faidx.html).
//
// A sequence name is the first whitespace-separated field of its header line,
// so ">chr1 A viral sequence" names "chr1".
//
// Importing this package turns off the sequence validation of
// github.com/shenwei356/bio/seq for the whole program (seq.ValidateSeq), so
// that ReadFile keeps every symbol of a record.
package fasta

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Fasta is a set of named sequences. Coordinates are 0-based half-open.
// Implementations are safe for concurrent use.
type Fasta interface {
	// Get returns the bases [start, end) of the named sequence.
	Get(seqName string, start, end uint64) (string, error)
	// Len returns the length of the named sequence.
	Len(seqName string) (uint64, error)
	// SeqNames lists the sequences in file order.
	SeqNames() []string
}

type memFasta struct {
	seqs  map[string]string
	names []string
}

func newMem() *memFasta { return &memFasta{seqs: make(map[string]string)} }

func (f *memFasta) add(name, seq string) error {
	if name == "" {
		return errors.New("FASTA record without a name")
	}
	if _, ok := f.seqs[name]; ok {
		return errors.Errorf("duplicate sequence %s", name)
	}
	f.seqs[name] = seq
	f.names = append(f.names, name)
	return nil
}

// headerName extracts the sequence name from a header line without its '>'.
func headerName(h string) string {
	fields := strings.Fields(h)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// New reads all of r into memory.
func New(r io.Reader) (Fasta, error) {
	var (
		f       = newMem()
		br      = bufio.NewReader(r)
		name    string
		inSeq   bool
		seq     strings.Builder
		lineNum int
	)
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, errors.Wrap(err, "reading FASTA")
		}
		lineNum++
		if text := strings.TrimRight(line, "\r\n"); text != "" {
			if text[0] == '>' {
				if inSeq {
					if e := f.add(name, seq.String()); e != nil {
						return nil, e
					}
				}
				name, inSeq = headerName(text[1:]), true
				seq.Reset()
			} else {
				if !inSeq {
					return nil, errors.Errorf("line %d: sequence data before the first header", lineNum)
				}
				seq.WriteString(text)
			}
		}
		if err == io.EOF {
			break
		}
	}
	if inSeq {
		if err := f.add(name, seq.String()); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *memFasta) lookup(seqName string) (string, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found: %s", seqName)
	}
	return s, nil
}

func (f *memFasta) Get(seqName string, start, end uint64) (string, error) {
	s, err := f.lookup(seqName)
	if err != nil {
		return "", err
	}
	if err := checkRange(seqName, start, end, uint64(len(s))); err != nil {
		return "", err
	}
	return s[start:end], nil
}

func (f *memFasta) Len(seqName string) (uint64, error) {
	s, err := f.lookup(seqName)
	return uint64(len(s)), err
}

func (f *memFasta) SeqNames() []string { return f.names }

func checkRange(seqName string, start, end, length uint64) error {
	if end <= start {
		return errors.Errorf("empty range [%d,%d) on %s", start, end, seqName)
	}
	if end > length {
		return errors.Errorf("range [%d,%d) past the end of %s (length %d)", start, end, seqName, length)
	}
	return nil
}
