package fasta

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// faiEntry is one line of a faidx index.
type faiEntry struct {
	name      string
	length    uint64
	offset    uint64 // of the first base
	lineBases uint64
	lineBytes uint64
}

// byteOffset returns the file offset of base pos.
func (e faiEntry) byteOffset(pos uint64) uint64 {
	return e.offset + (pos/e.lineBases)*e.lineBytes + pos%e.lineBases
}

func parseIndex(r io.Reader) ([]faiEntry, error) {
	var entries []faiEntry
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := sc.Text()
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) < 5 {
			return nil, errors.Errorf("fai line %d: want 5 fields, got %d", line, len(fields))
		}
		e := faiEntry{name: fields[0]}
		for i, dst := range []*uint64{&e.length, &e.offset, &e.lineBases, &e.lineBytes} {
			v, err := strconv.ParseUint(fields[i+1], 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "fai line %d", line)
			}
			*dst = v
		}
		if e.length > 0 && (e.lineBases == 0 || e.lineBytes < e.lineBases) {
			return nil, errors.Errorf("fai line %d: bad line geometry %d/%d", line, e.lineBases, e.lineBytes)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "reading fai")
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].offset < entries[j].offset })
	return entries, nil
}

type indexedFasta struct {
	mu      sync.Mutex
	r       io.ReadSeeker
	entries map[string]faiEntry
	names   []string
	buf     []byte
}

// NewIndexed returns a Fasta that reads bases from r on demand, using the
// faidx index read from index. Only the index is held in memory.
func NewIndexed(r io.ReadSeeker, index io.Reader) (Fasta, error) {
	entries, err := parseIndex(index)
	if err != nil {
		return nil, err
	}
	f := &indexedFasta{r: r, entries: make(map[string]faiEntry, len(entries))}
	for _, e := range entries {
		if _, ok := f.entries[e.name]; ok {
			return nil, errors.Errorf("duplicate sequence %s in fai", e.name)
		}
		f.entries[e.name] = e
		f.names = append(f.names, e.name)
	}
	return f, nil
}

// ReadLengths returns the sequence lengths listed in a faidx index.
func ReadLengths(index io.Reader) (map[string]uint64, error) {
	entries, err := parseIndex(index)
	if err != nil {
		return nil, err
	}
	lengths := make(map[string]uint64, len(entries))
	for _, e := range entries {
		lengths[e.name] = e.length
	}
	return lengths, nil
}

func (f *indexedFasta) entry(seqName string) (faiEntry, error) {
	e, ok := f.entries[seqName]
	if !ok {
		return e, errors.Errorf("sequence not found in index: %s", seqName)
	}
	return e, nil
}

func (f *indexedFasta) Len(seqName string) (uint64, error) {
	e, err := f.entry(seqName)
	return e.length, err
}

func (f *indexedFasta) SeqNames() []string { return f.names }

func (f *indexedFasta) Get(seqName string, start, end uint64) (string, error) {
	e, err := f.entry(seqName)
	if err != nil {
		return "", err
	}
	if err := checkRange(seqName, start, end, e.length); err != nil {
		return "", err
	}
	from, to := e.byteOffset(start), e.byteOffset(end-1)+1

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.r.Seek(int64(from), io.SeekStart); err != nil {
		return "", errors.Wrapf(err, "seek %s:%d", seqName, start)
	}
	n := int(to - from)
	if cap(f.buf) < n {
		f.buf = make([]byte, n)
	}
	f.buf = f.buf[:n]
	if _, err := io.ReadFull(f.r, f.buf); err != nil {
		return "", errors.Wrapf(err, "read %s:[%d,%d), index out of date?", seqName, start, end)
	}
	out := make([]byte, 0, end-start)
	for _, b := range f.buf {
		if b != '\n' && b != '\r' {
			out = append(out, b)
		}
	}
	if uint64(len(out)) != end-start {
		return "", errors.Errorf("read %d bases of %s:[%d,%d), index out of date?", len(out), seqName, start, end)
	}
	return string(out), nil
}
