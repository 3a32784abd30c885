// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/spectra/counter"
	"github.com/grailbio/spectra/mer"
	"github.com/grailbio/spectra/segment"
	"github.com/grailbio/spectra/spectra"
	"gopkg.in/yaml.v2"
)

type modeValue struct{ p *counter.Mode }

func (v modeValue) String() string {
	if v.p == nil {
		return ""
	}
	return v.p.String()
}

func (v modeValue) Set(s string) error {
	m, ok := counter.ParseMode(s)
	if !ok {
		return fmt.Errorf("unknown counting mode %q", s)
	}
	*v.p = m
	return nil
}

type kernelValue struct{ p *segment.Kernel }

func (v kernelValue) String() string {
	if v.p == nil {
		return ""
	}
	return v.p.String()
}

func (v kernelValue) Set(s string) error {
	k, ok := segment.ParseKernel(s)
	if !ok {
		return fmt.Errorf("unknown kernel %q", s)
	}
	*v.p = k
	return nil
}

type policyValue struct{ p *mer.BasePolicy }

func (v policyValue) String() string {
	if v.p == nil {
		return ""
	}
	return v.p.String()
}

func (v policyValue) Set(s string) error {
	b, ok := mer.ParseBasePolicy(s)
	if !ok {
		return fmt.Errorf("unknown invalid-base policy %q", s)
	}
	*v.p = b
	return nil
}

type strandValue struct{ p *counter.Strand }

func (v strandValue) IsBoolFlag() bool { return true }

func (v strandValue) String() string {
	if v.p == nil || *v.p == counter.Forward {
		return "false"
	}
	return "true"
}

func (v strandValue) Set(s string) error {
	switch s {
	case "true", "1":
		*v.p = counter.Complement
	case "false", "0":
		*v.p = counter.Forward
	default:
		return fmt.Errorf("bad boolean %q", s)
	}
	return nil
}

// listValue is a comma-separated list.
type listValue struct{ p *[]string }

func (v listValue) String() string {
	if v.p == nil {
		return ""
	}
	return strings.Join(*v.p, ",")
}

func (v listValue) Set(s string) error {
	*v.p = nil
	for _, m := range strings.Split(s, ",") {
		if m = strings.TrimSpace(m); m != "" {
			*v.p = append(*v.p, m)
		}
	}
	return nil
}

// optsFlags binds a group of command line flags to the fields of o, using
// the current field values as defaults.
type optsFlags func(fs *flag.FlagSet, o *spectra.Opts)

func windowFlags(fs *flag.FlagSet, o *spectra.Opts) {
	fs.IntVar(&o.K, "k", o.K, "Mer length")
	fs.IntVar(&o.Width, "width", o.Width, "Window width")
	fs.IntVar(&o.Spacing, "spacing", o.Spacing, "Distance between window starts")
	fs.IntVar(&o.Offset, "offset", o.Offset, "Start of the first window")
	fs.IntVar(&o.ChunkSize, "chunk-size", o.ChunkSize, `If positive, sequences are read and windowed in chunks of this many bases.
Windows never cross a chunk boundary.`)
	fs.Var(modeValue{&o.Mode}, "mode", "Counting mode: overlapping or nonoverlapping")
	fs.BoolVar(&o.Proportions, "proportions", o.Proportions, "Divide each window by its total count and write frequencies")
	fs.Var(strandValue{&o.Strand}, "complement", "Count the complement (not reverse complement) of each window")
	fs.Var(policyValue{&o.Policy}, "invalid-bases", `What to do with bases other than ACGT: "skip" counts the mers around them,
"reject" drops the window`)
	fs.BoolVar(&o.SplitLibrary, "libraries", o.SplitLibrary, "Sequence names include a library, prefixed by LIBRARY_")
}

func canonicalFlags(fs *flag.FlagSet, o *spectra.Opts) {
	fs.BoolVar(&o.Canonical, "canonical", o.Canonical, "Fold each mer and its reverse complement into one column")
}

func queryFlags(fs *flag.FlagSet, o *spectra.Opts) {
	fs.Var(listValue{&o.Query}, "query", "Comma-separated mers to count, in output column order")
}

func segmentFlags(fs *flag.FlagSet, o *spectra.Opts) {
	fs.Float64Var(&o.Penalty, "penalty", o.Penalty, `Breakpoint penalty. Larger values give fewer bins.
Penalties above 1 are lowered to 0.5 when segmenting frequencies`)
	fs.IntVar(&o.MinSegmentSize, "size", o.MinSegmentSize, "Minimum number of windows per bin")
	fs.Var(kernelValue{&o.Kernel}, "kernel", "Segmentation kernel: linear, rbf or cosine")
	fs.Float64Var(&o.Gamma, "gamma", o.Gamma, "RBF kernel bandwidth. Zero selects the median heuristic")
}

func parallelFlags(fs *flag.FlagSet, o *spectra.Opts) {
	fs.IntVar(&o.Parallelism, "parallelism", o.Parallelism, "Max number of concurrent jobs. Zero means the number of CPUs")
}

func thresholdFlags(fs *flag.FlagSet, o *spectra.Opts) {
	fs.Float64Var(&o.Threshold, "threshold", o.Threshold, "Chi-square p-value at or above which a window is an outlier")
}

// optsCmd owns the option flags of one command.
type optsCmd struct {
	fs     *flag.FlagSet
	groups []optsFlags
	opts   spectra.Opts
	config string
}

func newOptsCmd(fs *flag.FlagSet, groups ...optsFlags) *optsCmd {
	c := &optsCmd{fs: fs, groups: groups, opts: spectra.DefaultOpts}
	for _, g := range groups {
		g(fs, &c.opts)
	}
	fs.StringVar(&c.config, "config", "", "YAML file of option values. Flags set on the command line take precedence")
	return c
}

// resolve returns the defaults, overridden by the config file, overridden by
// the flags set on the command line.
func (c *optsCmd) resolve(ctx context.Context) (spectra.Opts, error) {
	if c.config == "" {
		return c.opts, nil
	}
	opts := spectra.DefaultOpts
	if err := loadConfig(ctx, c.config, &opts); err != nil {
		return opts, err
	}
	fresh := flag.NewFlagSet("", flag.ContinueOnError)
	for _, g := range c.groups {
		g(fresh, &opts)
	}
	var once errors.Once
	c.fs.Visit(func(f *flag.Flag) {
		if fresh.Lookup(f.Name) != nil {
			once.Set(fresh.Set(f.Name, f.Value.String()))
		}
	})
	return opts, once.Err()
}

// config is the YAML form of spectra.Opts.
type config struct {
	K              int      `yaml:"k"`
	Width          int      `yaml:"width"`
	Spacing        int      `yaml:"spacing"`
	Offset         int      `yaml:"offset"`
	ChunkSize      int      `yaml:"chunk_size"`
	Mode           string   `yaml:"mode"`
	Proportions    bool     `yaml:"proportions"`
	Complement     bool     `yaml:"complement"`
	InvalidBases   string   `yaml:"invalid_bases"`
	Canonical      bool     `yaml:"canonical"`
	Query          []string `yaml:"query"`
	Libraries      bool     `yaml:"libraries"`
	Penalty        float64  `yaml:"penalty"`
	MinSegmentSize int      `yaml:"size"`
	Kernel         string   `yaml:"kernel"`
	Gamma          float64  `yaml:"gamma"`
	Threshold      float64  `yaml:"threshold"`
	Parallelism    int      `yaml:"parallelism"`
}

func parseConfig(data []byte, o *spectra.Opts) error {
	c := config{
		K: o.K, Width: o.Width, Spacing: o.Spacing, Offset: o.Offset, ChunkSize: o.ChunkSize,
		Mode: o.Mode.String(), Proportions: o.Proportions, Complement: o.Strand == counter.Complement,
		InvalidBases: o.Policy.String(), Canonical: o.Canonical, Query: o.Query, Libraries: o.SplitLibrary,
		Penalty: o.Penalty, MinSegmentSize: o.MinSegmentSize, Kernel: o.Kernel.String(), Gamma: o.Gamma,
		Threshold: o.Threshold, Parallelism: o.Parallelism,
	}
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return errors.E(errors.Invalid, err)
	}
	var once errors.Once
	once.Set(modeValue{&o.Mode}.Set(c.Mode))
	once.Set(kernelValue{&o.Kernel}.Set(c.Kernel))
	once.Set(policyValue{&o.Policy}.Set(c.InvalidBases))
	if err := once.Err(); err != nil {
		return errors.E(errors.Invalid, err)
	}
	o.K, o.Width, o.Spacing, o.Offset, o.ChunkSize = c.K, c.Width, c.Spacing, c.Offset, c.ChunkSize
	o.Proportions, o.Canonical, o.Query, o.SplitLibrary = c.Proportions, c.Canonical, c.Query, c.Libraries
	o.Strand = counter.Forward
	if c.Complement {
		o.Strand = counter.Complement
	}
	o.Penalty, o.MinSegmentSize, o.Gamma = c.Penalty, c.MinSegmentSize, c.Gamma
	o.Threshold, o.Parallelism = c.Threshold, c.Parallelism
	return nil
}

func loadConfig(ctx context.Context, path string, o *spectra.Opts) (err error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, f, &err)
	data, err := ioutil.ReadAll(f.Reader(ctx))
	if err != nil {
		return errors.E(err, "read", path)
	}
	if err := parseConfig(data, o); err != nil {
		return errors.E(err, path)
	}
	return nil
}
