package fasta

import (
	"bufio"
	"bytes"
	"io"

	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
)

// GenerateIndex writes the faidx index of the FASTA data read from in. Line
// geometry is taken from the first sequence line of each record.
func GenerateIndex(out io.Writer, in io.Reader) error {
	var (
		w       = tsv.NewWriter(out)
		r       = bufio.NewReader(in)
		cur     *faiEntry
		off     uint64
		sawData bool
	)
	emit := func() error {
		if cur == nil {
			return nil
		}
		w.WriteString(cur.name)
		w.WriteInt64(int64(cur.length))
		w.WriteInt64(int64(cur.offset))
		w.WriteInt64(int64(cur.lineBases))
		w.WriteInt64(int64(cur.lineBytes))
		return w.EndLine()
	}
	for {
		raw, err := r.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return errors.Wrap(err, "reading FASTA")
		}
		off += uint64(len(raw))
		if len(raw) > 0 {
			sawData = true
		}
		if line := bytes.TrimRight(raw, "\r\n"); len(line) > 0 {
			switch {
			case line[0] == '>':
				if err := emit(); err != nil {
					return err
				}
				cur = &faiEntry{name: headerName(string(line[1:])), offset: off}
				if cur.name == "" {
					return errors.New("FASTA record without a name")
				}
			case cur == nil:
				return errors.New("malformed FASTA file: sequence data before the first header")
			default:
				if cur.lineBytes == 0 {
					cur.lineBases, cur.lineBytes = uint64(len(line)), uint64(len(raw))
				}
				cur.length += uint64(len(line))
			}
		}
		if err == io.EOF {
			break
		}
	}
	if !sawData {
		return errors.New("empty FASTA file")
	}
	if err := emit(); err != nil {
		return err
	}
	return w.Flush()
}
