package fasta

import (
	"io"

	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
)

func init() {
	// Bases outside the IUPAC alphabet are kept and left to the counter.
	seq.ValidateSeq = false
}

// ReadFile loads every record of a FASTA or FASTQ file into memory. The path
// may be "-" for standard input and may be gzip, xz or zstd compressed.
// Bases are not validated; invalid bases are handled by the counter.
func ReadFile(path string) (Fasta, error) {
	r, err := fastx.NewDefaultReader(path)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	defer r.Close()
	f := newMem()
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, path)
		}
		if err := f.add(string(record.ID), string(record.Seq.Seq)); err != nil {
			return nil, errors.Wrap(err, path)
		}
	}
	return f, nil
}
