package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/JaimeStill/rancoqc/internal/analysis"
)

type formFlags struct {
	profile      string
	distribution string
	guide        string
	lot          string
	fruits       int
	process      string
	box          string
}

func (f *formFlags) bind(fs *flag.FlagSet) {
	fs.StringVar(&f.profile, "profile", "", "inspection profile (reception-qc, packing-qc, counter-sample)")
	fs.StringVar(&f.distribution, "distribution", "", "fruit distribution (roja, bicolor)")
	fs.StringVar(&f.guide, "guide", "", "shipping guide number")
	fs.StringVar(&f.lot, "lot", "", "lot identifier")
	fs.IntVar(&f.fruits, "fruits", 0, "number of fruits in the sample")
	fs.StringVar(&f.process, "process", "", "process number (packing only)")
	fs.StringVar(&f.box, "box", "", "box id (packing only)")
}

func (f *formFlags) form() analysis.Form {
	d, _ := analysis.ParseDistribution(f.distribution)
	return analysis.Form{
		Distribution:  d,
		ShippingGuide: f.guide,
		Lot:           f.lot,
		FruitCount:    f.fruits,
		ProcessNumber: f.process,
		BoxID:         f.box,
	}
}

// countFlags collects repeated LABEL=N arguments in order.
type countFlags struct {
	labels []string
	values []int
}

func (c *countFlags) String() string {
	parts := make([]string, len(c.labels))
	for i, l := range c.labels {
		parts[i] = l + "=" + strconv.Itoa(c.values[i])
	}
	return strings.Join(parts, ",")
}

func (c *countFlags) Set(v string) error {
	label, raw, ok := strings.Cut(v, "=")
	label = strings.TrimSpace(label)
	if !ok || label == "" {
		return fmt.Errorf("expected LABEL=N, got %q", v)
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("count for %s: %w", label, err)
	}
	c.labels = append(c.labels, label)
	c.values = append(c.values, n)
	return nil
}

func (c *countFlags) counts() analysis.Counts {
	var out analysis.Counts
	for i, label := range c.labels {
		out.Add(label, c.values[i])
	}
	return out
}

// reviewFlags drive the edits, export and submission that follow a capture.
type reviewFlags struct {
	set     countFlags
	adjust  countFlags
	add     countFlags
	persist bool
	export  string
	submit  bool
	async   bool
}

func (r *reviewFlags) bind(fs *flag.FlagSet) {
	fs.Var(&r.set, "set", "set a label count, LABEL=N (repeatable)")
	fs.Var(&r.adjust, "adjust", "adjust a label count by a signed delta, LABEL=N (repeatable)")
	fs.Var(&r.add, "add", "add units of a label outside the profile set, LABEL=N (repeatable)")
	fs.BoolVar(&r.persist, "persist", false, "persist labels given with -add to the profile")
	fs.StringVar(&r.export, "export", "", "write the CSV report to this path, or a directory for the default name")
	fs.BoolVar(&r.submit, "submit", false, "submit the result to the remote store")
	fs.BoolVar(&r.async, "async", false, "submit in the background and wait for the outcome")
}

func parse(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}
