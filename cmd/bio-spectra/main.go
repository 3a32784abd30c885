// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// bio-spectra computes windowed k-mer spectra of sequences and segments them
// into compositionally homogeneous bins.
//
// Typical use:
//
//	bio-spectra count -width 3000 -spacing 3000 -out lib.tsv lib.fa
//	bio-spectra analyze -penalty 1e6 -size 5 -out lib.binned.tsv -bins lib.bins.tsv lib.tsv
//	bio-spectra locate lib.binned.tsv lib/chr1:123456
//
// Options can also be read from a YAML file with -config; flags set on the
// command line take precedence over the file.
package main

import (
	"fmt"
	"os"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"
)

func newCmdCount() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "count",
		Short:    "Count the mers of sliding windows of sequences",
		ArgsName: "fasta...",
		Long: `
Count writes one row per window: Library, Sequence, Start and End (1-based,
inclusive), then the count of every mer. With a samtools faidx index next to a
FASTA file, sequences are read on demand. Tables of several files are collated.`,
	}
	var flags countFlags
	cmd.Flags.StringVar(&flags.out, "out", "", "Output TSV path. Defaults to stdout; a .gz suffix compresses")
	cmd.Flags.StringVar(&flags.library, "library", "", "Library name. Defaults to the base name of each file")
	oc := newOptsCmd(&cmd.Flags, windowFlags, canonicalFlags, parallelFlags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		ctx := vcontext.Background()
		opts, err := oc.resolve(ctx)
		if err != nil {
			return err
		}
		return runCount(ctx, argv, flags, opts)
	})
	return cmd
}

func newCmdQuery() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "query",
		Short:    "Count selected mers of sliding windows of sequences",
		ArgsName: "fasta...",
	}
	var flags countFlags
	cmd.Flags.StringVar(&flags.out, "out", "", "Output TSV path. Defaults to stdout; a .gz suffix compresses")
	cmd.Flags.StringVar(&flags.library, "library", "", "Library name. Defaults to the base name of each file")
	oc := newOptsCmd(&cmd.Flags, windowFlags, queryFlags, parallelFlags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		ctx := vcontext.Background()
		opts, err := oc.resolve(ctx)
		if err != nil {
			return err
		}
		return runQuery(ctx, argv, flags, opts)
	})
	return cmd
}

func newCmdIndex() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "index",
		Short:    "Write a samtools faidx index next to each FASTA file",
		ArgsName: "fasta...",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		return runIndex(vcontext.Background(), argv)
	})
	return cmd
}

func addTableFlags(cmd *cmdline.Command, f *tableFlags) {
	cmd.Flags.StringVar(&f.out, "out", "", "Output TSV path. Defaults to stdout; a .gz suffix compresses")
	cmd.Flags.BoolVar(&f.frequencies, "freq", false, "The input tables hold frequencies instead of counts")
}

func newCmdCollate() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "collate",
		Short:    "Concatenate tables with the same mer columns",
		ArgsName: "table...",
	}
	var flags tableFlags
	addTableFlags(cmd, &flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		return runCollate(vcontext.Background(), argv, flags)
	})
	return cmd
}

func oneArg(name string, argv []string) error {
	if len(argv) != 1 {
		return fmt.Errorf("%s takes one table path, but got %v", name, argv)
	}
	return nil
}

func newCmdTransform() *cmdline.Command {
	filter := &cmdline.Command{
		Name:     "filter",
		Short:    "Split a table into windows that differ from the global profile and outliers",
		ArgsName: "table",
		Long: `
A window is an outlier if the chi-square p-value of its frequencies against the
global frequencies is at or above -threshold, that is, if it is implausibly
close to the background. Windows without any mer are always outliers.`,
	}
	var ff filterFlags
	addTableFlags(filter, &ff.tableFlags)
	filter.Flags.StringVar(&ff.outliers, "outliers", "", "Output TSV path of the outlier windows")
	filter.Flags.BoolVar(&ff.weighted, "weighted", true, "Weight windows by length when computing the global profile")
	foc := newOptsCmd(&filter.Flags, thresholdFlags)
	filter.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if err := oneArg("filter", argv); err != nil {
			return err
		}
		ctx := vcontext.Background()
		opts, err := foc.resolve(ctx)
		if err != nil {
			return err
		}
		return runFilter(ctx, argv[0], ff, opts.Threshold)
	})

	norm := &cmdline.Command{
		Name:     "normalize",
		Short:    "Subtract the global frequencies from every window, flooring at zero",
		ArgsName: "table",
	}
	var nf tableFlags
	addTableFlags(norm, &nf)
	norm.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if err := oneArg("normalize", argv); err != nil {
			return err
		}
		return runNormalize(vcontext.Background(), argv[0], nf)
	})

	resize := &cmdline.Command{
		Name:     "resize",
		Short:    "Merge every N consecutive windows of a count table",
		ArgsName: "table",
	}
	var rf tableFlags
	addTableFlags(resize, &rf)
	factor := resize.Flags.Int("factor", 2, "Number of windows merged into one")
	resize.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if err := oneArg("resize", argv); err != nil {
			return err
		}
		return runResize(vcontext.Background(), argv[0], rf, *factor)
	})

	fold := &cmdline.Command{
		Name:     "simplify",
		Short:    "Fold the forward and reverse complement columns of each mer",
		ArgsName: "table",
	}
	var sf tableFlags
	addTableFlags(fold, &sf)
	fold.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if err := oneArg("simplify", argv); err != nil {
			return err
		}
		return runFold(vcontext.Background(), argv[0], sf)
	})

	convert := &cmdline.Command{
		Name:     "convert",
		Short:    "Convert counts to frequencies, or frequencies (with -freq) to counts",
		ArgsName: "table",
	}
	var cf tableFlags
	addTableFlags(convert, &cf)
	convert.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if err := oneArg("convert", argv); err != nil {
			return err
		}
		return runConvert(vcontext.Background(), argv[0], cf)
	})

	global := &cmdline.Command{
		Name:     "global",
		Short:    "Print the global frequency of every mer",
		ArgsName: "table",
	}
	var gf tableFlags
	addTableFlags(global, &gf)
	weighted := global.Flags.Bool("weighted", true, "Weight windows by length")
	global.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if err := oneArg("global", argv); err != nil {
			return err
		}
		return runGlobal(vcontext.Background(), argv[0], gf, *weighted)
	})

	return &cmdline.Command{
		Name:     "transform",
		Short:    "Transform profile tables",
		Children: []*cmdline.Command{filter, norm, resize, fold, convert, global},
	}
}

func newCmdAnalyze() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "analyze",
		Short:    "Segment each sequence of a table into bins",
		ArgsName: "table",
		Long: `
Analyze finds composition change points in every sequence of a table, labels
each window with its bin ({library}_{sequence}_{ordinal}) and writes the
labeled table to -out and the bin profiles to -bins. A sequence that cannot be
segmented is kept as a single bin.`,
	}
	var flags analyzeFlags
	addTableFlags(cmd, &flags.tableFlags)
	cmd.Flags.StringVar(&flags.bins, "bins", "", "Output TSV path of the bins")
	cmd.Flags.BoolVar(&flags.byFrequency, "frequencies", false, "Segment frequencies instead of raw counts")
	cmd.Flags.BoolVar(&flags.blocked, "blocked", false, "If the table already has bins, only aggregate them")
	oc := newOptsCmd(&cmd.Flags, segmentFlags, parallelFlags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if err := oneArg("analyze", argv); err != nil {
			return err
		}
		ctx := vcontext.Background()
		opts, err := oc.resolve(ctx)
		if err != nil {
			return err
		}
		return runAnalyze(ctx, argv[0], flags, opts)
	})
	return cmd
}

func newCmdLocate() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "locate",
		Short:    "Find the bins that contain loci",
		ArgsName: "table library/sequence:pos...",
	}
	var flags tableFlags
	addTableFlags(cmd, &flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) < 2 {
			return fmt.Errorf("locate takes a table and at least one locus, but got %v", argv)
		}
		return runLocate(vcontext.Background(), argv[0], argv[1:], flags)
	})
	return cmd
}

func newCmdRoot() *cmdline.Command {
	return &cmdline.Command{
		Name:     "bio-spectra",
		Short:    "Windowed k-mer spectra and composition segmentation",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdCount(),
			newCmdQuery(),
			newCmdIndex(),
			newCmdCollate(),
			newCmdTransform(),
			newCmdAnalyze(),
			newCmdLocate(),
		},
	}
}

func main() {
	shutdown := grail.Init()
	cmdline.HideGlobalFlagsExcept()
	env := cmdline.EnvFromOS()
	err := cmdline.ParseAndRun(newCmdRoot(), env, os.Args[1:])
	shutdown()
	os.Exit(cmdline.ExitCode(err, env.Stderr))
}
