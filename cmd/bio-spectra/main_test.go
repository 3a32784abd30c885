// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/spectra/counter"
	"github.com/grailbio/spectra/profile"
	"github.com/grailbio/spectra/segment"
	"github.com/grailbio/spectra/spectra"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	shutdown := grail.Init()
	status := m.Run()
	shutdown()
	os.Exit(status)
}

func writeFASTA(t *testing.T, path string, seqs ...string) {
	var b strings.Builder
	for i := 0; i+1 < len(seqs); i += 2 {
		b.WriteString(">" + seqs[i] + " test\n")
		s := seqs[i+1]
		for len(s) > 70 {
			b.WriteString(s[:70] + "\n")
			s = s[70:]
		}
		b.WriteString(s + "\n")
	}
	require.NoError(t, ioutil.WriteFile(path, []byte(b.String()), 0644))
}

func readLines(t *testing.T, path string) []string {
	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func testOpts() spectra.Opts {
	opts := spectra.DefaultOpts
	opts.Width, opts.Spacing = 50, 50
	opts.Penalty = 1000
	return opts
}

var blocks = strings.Repeat("A", 500) + strings.Repeat("C", 500)

func TestCountAnalyzeLocate(t *testing.T) {
	ctx := vcontext.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	fa := filepath.Join(dir, "sample.fa")
	writeFASTA(t, fa, "chr1", blocks, "chr2", strings.Repeat("ACGT", 100))
	table := filepath.Join(dir, "sample.tsv.gz")
	opts := testOpts()
	require.NoError(t, runCount(ctx, []string{fa}, countFlags{out: table}, opts))

	tbl, err := readTable(ctx, table, profile.Counts)
	require.NoError(t, err)
	require.Equal(t, 2, len(tbl.Partitions))
	assert.Equal(t, profile.Key{Library: "sample", Sequence: "chr1"}, tbl.Partitions[0].Key)
	assert.Equal(t, 20, len(tbl.Partitions[0].Windows))
	assert.Equal(t, 8, len(tbl.Partitions[1].Windows))
	assert.Equal(t, 64, len(tbl.Mers))
	assert.Equal(t, "AAA", tbl.Mers[0])
	assert.Equal(t, "CAA", tbl.Mers[1])

	binned := filepath.Join(dir, "binned.tsv")
	binsPath := filepath.Join(dir, "bins.tsv")
	require.NoError(t, runAnalyze(ctx, table, analyzeFlags{
		tableFlags: tableFlags{out: binned},
		bins:       binsPath,
	}, opts))
	lines := readLines(t, binsPath)
	require.Equal(t, 4, len(lines))
	assert.True(t, strings.HasPrefix(lines[0], "Library\tSequence\tBin\tStart\tEnd\tLength\tAAA\t"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "sample\tchr1\tsample_chr1_0000\t1\t500\t500\t1\t"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "sample\tchr1\tsample_chr1_0001\t501\t1000\t500\t0\t"), lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "sample\tchr2\tsample_chr2_0000\t1\t400\t400\t"), lines[3])

	header := readLines(t, binned)[0]
	assert.True(t, strings.HasSuffix(header, "\tBin"), header)

	located := filepath.Join(dir, "located.tsv")
	require.NoError(t, runLocate(ctx, binned, []string{"sample/chr1:250", "sample/chr1:501", "sample/chr3:1"},
		tableFlags{out: located}))
	assert.Equal(t, []string{
		"Locus\tBin\tStart\tEnd",
		"sample/chr1:250\tsample_chr1_0000\t1\t500",
		"sample/chr1:501\tsample_chr1_0001\t501\t1000",
		"sample/chr3:1\t.\t.\t.",
	}, readLines(t, located))

	// Already binned tables can be aggregated without segmenting again.
	again := filepath.Join(dir, "again.tsv")
	require.NoError(t, runAnalyze(ctx, binned, analyzeFlags{bins: again, blocked: true}, opts))
	assert.Equal(t, readLines(t, binsPath), readLines(t, again))

	err = runLocate(ctx, table, []string{"sample/chr1:1"}, tableFlags{out: located})
	assert.True(t, errors.Is(errors.Invalid, err), "%v", err)
}

func TestIndexedCount(t *testing.T) {
	ctx := vcontext.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	fa := filepath.Join(dir, "lib.fasta")
	writeFASTA(t, fa, "x", blocks, "y", strings.Repeat("GATTACA", 40))
	opts := testOpts()
	opts.ChunkSize = 333
	plain := filepath.Join(dir, "plain.tsv")
	require.NoError(t, runCount(ctx, []string{fa}, countFlags{out: plain}, opts))

	require.NoError(t, runIndex(ctx, []string{fa}))
	assert.Equal(t, []string{"x\t1000\t8\t70\t71", "y\t280\t1031\t70\t71"}, readLines(t, fa+".fai"))
	indexed := filepath.Join(dir, "indexed.tsv")
	require.NoError(t, runCount(ctx, []string{fa}, countFlags{out: indexed}, opts))
	assert.Equal(t, readLines(t, plain), readLines(t, indexed))
}

func TestQuery(t *testing.T) {
	ctx := vcontext.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	fa := filepath.Join(dir, "q.fa")
	writeFASTA(t, fa, "s", "AAAACCCC")
	out := filepath.Join(dir, "q.tsv")
	opts := testOpts()
	err := runQuery(ctx, []string{fa}, countFlags{out: out}, opts)
	assert.True(t, errors.Is(errors.Invalid, err), "%v", err)

	opts.Query = []string{"CCC", "AAA"}
	require.NoError(t, runQuery(ctx, []string{fa}, countFlags{out: out, library: "L"}, opts))
	assert.Equal(t, []string{
		"Library\tSequence\tStart\tEnd\tCCC\tAAA",
		"L\ts\t1\t8\t2\t2",
	}, readLines(t, out))
}

func TestTransform(t *testing.T) {
	ctx := vcontext.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	tsvPath := filepath.Join(dir, "in.tsv")
	require.NoError(t, ioutil.WriteFile(tsvPath, []byte(strings.Join([]string{
		"Library\tSequence\tStart\tEnd\tAA\tCC\tGG\tTT",
		"l\ts\t1\t11\t10\t0\t0\t0",
		"l\ts\t12\t22\t0\t10\t0\t0",
		"l\ts\t23\t33\t5\t5\t0\t0",
		"l\ts\t34\t44\t0\t0\t0\t0",
	}, "\n")+"\n"), 0644))
	out := filepath.Join(dir, "out.tsv")
	tf := tableFlags{out: out}

	freqPath := filepath.Join(dir, "freq.tsv")
	require.NoError(t, runConvert(ctx, tsvPath, tableFlags{out: freqPath}))
	lines := readLines(t, freqPath)
	assert.Equal(t, "l\ts\t1\t11\t1\t0\t0\t0", lines[1])
	assert.Equal(t, "l\ts\t23\t33\t0.5\t0.5\t0\t0", lines[3])
	back := filepath.Join(dir, "back.tsv")
	require.NoError(t, runConvert(ctx, freqPath, tableFlags{out: back, frequencies: true}))
	assert.Equal(t, readLines(t, tsvPath), readLines(t, back))

	// Counts are pooled: 15 AA and 15 CC over 40 positions.
	require.NoError(t, runGlobal(ctx, tsvPath, tf, false))
	assert.Equal(t, []string{"Mer\tFrequency", "AA\t0.375", "CC\t0.375", "GG\t0", "TT\t0"}, readLines(t, out))
	require.NoError(t, runGlobal(ctx, freqPath, tableFlags{out: out, frequencies: true}, false))
	assert.Equal(t, []string{"Mer\tFrequency", "AA\t0.375", "CC\t0.375", "GG\t0", "TT\t0"}, readLines(t, out))

	require.NoError(t, runNormalize(ctx, tsvPath, tf))
	assert.Equal(t, "l\ts\t1\t11\t6\t0\t0\t0", readLines(t, out)[1])
	assert.Equal(t, "l\ts\t23\t33\t1\t1\t0\t0", readLines(t, out)[3])

	outliers := filepath.Join(dir, "outliers.tsv")
	require.NoError(t, runFilter(ctx, tsvPath, filterFlags{tableFlags: tf, outliers: outliers, weighted: true}, 0.999))
	assert.Equal(t, []string{
		"Library\tSequence\tStart\tEnd\tAA\tCC\tGG\tTT",
		"l\ts\t1\t11\t10\t0\t0\t0",
		"l\ts\t12\t22\t0\t10\t0\t0",
	}, readLines(t, out))
	assert.Equal(t, []string{
		"Library\tSequence\tStart\tEnd\tAA\tCC\tGG\tTT",
		"l\ts\t23\t33\t5\t5\t0\t0",
		"l\ts\t34\t44\t0\t0\t0\t0",
	}, readLines(t, outliers))

	require.NoError(t, runResize(ctx, tsvPath, tf, 3))
	assert.Equal(t, []string{
		"Library\tSequence\tStart\tEnd\tAA\tCC\tGG\tTT",
		"l\ts\t1\t33\t15\t15\t0\t0",
		"l\ts\t34\t44\t0\t0\t0\t0",
	}, readLines(t, out))

	require.NoError(t, runFold(ctx, tsvPath, tf))
	assert.Equal(t, "Library\tSequence\tStart\tEnd\tAA\tCC", readLines(t, out)[0])
	assert.Equal(t, "l\ts\t1\t11\t10\t0", readLines(t, out)[1])

	collated := filepath.Join(dir, "collated.tsv")
	require.NoError(t, runCollate(ctx, []string{tsvPath}, tableFlags{out: collated}))
	assert.Equal(t, readLines(t, tsvPath), readLines(t, collated))
}

func TestConfig(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	cfg := filepath.Join(dir, "spectra.yaml")
	require.NoError(t, ioutil.WriteFile(cfg, []byte(`
k: 2
width: 50
spacing: 25
mode: nonoverlapping
complement: true
kernel: rbf
penalty: 10
query: [AC, GT]
`), 0644))

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	oc := newOptsCmd(fs, windowFlags, queryFlags, segmentFlags)
	require.NoError(t, fs.Parse([]string{"-config", cfg, "-width", "77", "-size", "3"}))
	opts, err := oc.resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, opts.K)
	assert.Equal(t, 77, opts.Width)
	assert.Equal(t, 25, opts.Spacing)
	assert.Equal(t, counter.NonOverlapping, opts.Mode)
	assert.Equal(t, counter.Complement, opts.Strand)
	assert.Equal(t, segment.RBF, opts.Kernel)
	assert.Equal(t, 10.0, opts.Penalty)
	assert.Equal(t, 3, opts.MinSegmentSize)
	assert.Equal(t, []string{"AC", "GT"}, opts.Query)

	// Without a config file, flags apply to the defaults.
	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	oc = newOptsCmd(fs, windowFlags, queryFlags)
	require.NoError(t, fs.Parse([]string{"-mode", "nonoverlapping", "-query", "AAA, CCC", "-complement"}))
	opts, err = oc.resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, counter.NonOverlapping, opts.Mode)
	assert.Equal(t, counter.Complement, opts.Strand)
	assert.Equal(t, []string{"AAA", "CCC"}, opts.Query)
	assert.Equal(t, spectra.DefaultOpts.Width, opts.Width)

	var o spectra.Opts
	err = parseConfig([]byte("widht: 3\n"), &o)
	assert.True(t, errors.Is(errors.Invalid, err), "%v", err)
	o = spectra.DefaultOpts
	err = parseConfig([]byte("kernel: gaussian\n"), &o)
	assert.True(t, errors.Is(errors.Invalid, err), "%v", err)

	assert.Error(t, fs.Set("mode", "sideways"))
}

func TestLibraryName(t *testing.T) {
	for path, want := range map[string]string{
		"/data/sample.fa":       "sample",
		"sample.fasta.gz":       "sample",
		"s3://bucket/x.y.fq.gz": "x.y",
		"reads":                 "reads",
		".fa":                   ".fa",
	} {
		assert.Equal(t, want, libraryName(path), path)
	}
}

func TestParseLocus(t *testing.T) {
	key, pos, err := parseLocus("lib/chr1:100")
	require.NoError(t, err)
	assert.Equal(t, profile.Key{Library: "lib", Sequence: "chr1"}, key)
	assert.Equal(t, 100, pos)
	key, pos, err = parseLocus("lib/HLA:1:7")
	require.NoError(t, err)
	assert.Equal(t, "HLA:1", key.Sequence)
	assert.Equal(t, 7, pos)
	for _, bad := range []string{"chr1:100", "lib/chr1", "lib/chr1:0", "lib/chr1:x"} {
		_, _, err := parseLocus(bad)
		assert.True(t, errors.Is(errors.Invalid, err), bad)
	}
}
