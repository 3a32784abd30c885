// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/spectra/encoding/fasta"
	"github.com/grailbio/spectra/profile"
	"github.com/klauspost/compress/gzip"
)

// output is a destination opened by createOutput.
type output struct {
	io.Writer
	close func() error
}

func (o output) Close() error { return o.close() }

// createOutput opens path for writing. An empty path or "-" is standard
// output; a ".gz" suffix gzips the data.
func createOutput(ctx context.Context, path string) (output, error) {
	if path == "" || path == "-" {
		return output{Writer: os.Stdout, close: func() error { return nil }}, nil
	}
	f, err := file.Create(ctx, path)
	if err != nil {
		return output{}, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return output{Writer: f.Writer(ctx), close: func() error { return f.Close(ctx) }}, nil
	}
	gz := gzip.NewWriter(f.Writer(ctx))
	return output{Writer: gz, close: func() error {
		var once errors.Once
		once.Set(gz.Close())
		once.Set(f.Close(ctx))
		return once.Err()
	}}, nil
}

// openInput opens path for reading, gunzipping it if its name ends in ".gz".
func openInput(ctx context.Context, path string) (io.Reader, func() error, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f.Reader(ctx), func() error { return f.Close(ctx) }, nil
	}
	gz, err := gzip.NewReader(f.Reader(ctx))
	if err != nil {
		_ = f.Close(ctx)
		return nil, nil, errors.E(err, path)
	}
	return gz, func() error {
		var once errors.Once
		once.Set(gz.Close())
		once.Set(f.Close(ctx))
		return once.Err()
	}, nil
}

// readTable reads a profile table. kind applies to the values
// of the table.
func readTable(ctx context.Context, path string, kind profile.Kind) (t *profile.Table, err error) {
	r, closer, err := openInput(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if e := closer(); e != nil && err == nil {
			err = e
		}
	}()
	if t, err = profile.Read(r, kind); err != nil {
		return nil, errors.E(err, path)
	}
	log.Printf("%s: %d partitions, %d windows, %d mers", path, len(t.Partitions), t.NumWindows(), len(t.Mers))
	return t, nil
}

// writeTo creates path and hands it to write.
func writeTo(ctx context.Context, path string, write func(io.Writer) error) error {
	out, err := createOutput(ctx, path)
	if err != nil {
		return err
	}
	var once errors.Once
	once.Set(write(out))
	once.Set(out.Close())
	return once.Err()
}

func writeTable(ctx context.Context, path string, t *profile.Table) error {
	return writeTo(ctx, path, func(w io.Writer) error { return profile.Write(w, t) })
}

// sequences is an opened FASTA source.
type sequences struct {
	fasta.Fasta
	close func() error
}

// openSequences opens a FASTA file. With a samtools faidx index next to it,
// bases are read on demand; otherwise the whole file is loaded. Local files
// are parsed as FASTA or FASTQ, gzipped or not.
func openSequences(ctx context.Context, path string) (sequences, error) {
	if _, err := file.Stat(ctx, path+".fai"); err == nil && !strings.HasSuffix(path, ".gz") {
		in, err := file.Open(ctx, path)
		if err != nil {
			return sequences{}, err
		}
		idx, err := file.Open(ctx, path+".fai")
		if err != nil {
			_ = in.Close(ctx)
			return sequences{}, err
		}
		f, err := fasta.NewIndexed(in.Reader(ctx), idx.Reader(ctx))
		var once errors.Once
		once.Set(idx.Close(ctx))
		if err != nil {
			once.Set(in.Close(ctx))
			return sequences{}, errors.E(err, path)
		}
		if err := once.Err(); err != nil {
			_ = in.Close(ctx)
			return sequences{}, err
		}
		log.Printf("%s: using index %s.fai", path, path)
		return sequences{Fasta: f, close: func() error { return in.Close(ctx) }}, nil
	}
	if path == "-" || !strings.Contains(path, "://") {
		f, err := fasta.ReadFile(path)
		if err != nil {
			return sequences{}, err
		}
		return sequences{Fasta: f, close: func() error { return nil }}, nil
	}
	r, closer, err := openInput(ctx, path)
	if err != nil {
		return sequences{}, err
	}
	f, err := fasta.New(r)
	if e := closer(); e != nil && err == nil {
		err = e
	}
	if err != nil {
		return sequences{}, errors.E(err, path)
	}
	return sequences{Fasta: f, close: func() error { return nil }}, nil
}

var sequenceExts = []string{".gz", ".xz", ".zst", ".fasta", ".fa", ".fna", ".fastq", ".fq"}

// libraryName derives a library name from a sequence file name by dropping
// its directory and sequence file extensions.
func libraryName(path string) string {
	name := filepath.Base(path)
	for trimmed := true; trimmed; {
		trimmed = false
		for _, ext := range sequenceExts {
			if strings.HasSuffix(name, ext) && len(name) > len(ext) {
				name = name[:len(name)-len(ext)]
				trimmed = true
			}
		}
	}
	return name
}
