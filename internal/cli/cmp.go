package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/justyntemme/salpanel/internal/archive"
	"github.com/justyntemme/salpanel/internal/dircmp"
	"github.com/justyntemme/salpanel/internal/listing"
	"github.com/justyntemme/salpanel/internal/location"
)

type cmpOptions struct {
	content       bool
	noSize        bool
	noTime        bool
	ignoreSeconds bool
	noDST         bool
	noSubdirs     bool
	workers       int
}

var cmpOpts cmpOptions

var cmpCmd = &cobra.Command{
	Use:   "cmp <left> <right>",
	Short: "Compare two directories",
	Long: `Compare two directories the way the panels do before marking differences.

Either side may be a disk directory or a directory inside an archive.
Defaults come from the "compare" section of the config; flags only tighten
or loosen them for this run.`,
	Args:    cobra.ExactArgs(2),
	GroupID: "inspection",
	RunE:    runCmp,
}

func init() {
	cmpCmd.Flags().BoolVar(&cmpOpts.content, "content", false, "Also compare file contents")
	cmpCmd.Flags().BoolVar(&cmpOpts.noSize, "no-size", false, "Ignore size differences")
	cmpCmd.Flags().BoolVar(&cmpOpts.noTime, "no-time", false, "Ignore modification times")
	cmpCmd.Flags().BoolVar(&cmpOpts.ignoreSeconds, "ignore-seconds", false, "Compare times to the minute")
	cmpCmd.Flags().BoolVar(&cmpOpts.noDST, "no-dst", false, "Treat a one or two hour time shift as equal")
	cmpCmd.Flags().BoolVar(&cmpOpts.noSubdirs, "no-subdirs", false, "Do not descend into subdirectories")
	cmpCmd.Flags().IntVar(&cmpOpts.workers, "workers", 0, "Parallel content readers (0 picks a default)")
}

func (o cmpOptions) apply(opts dircmp.Options) dircmp.Options {
	if o.content {
		opts.ByContent = true
	}
	if o.noSize {
		opts.BySize = false
	}
	if o.noTime {
		opts.ByTime = false
	}
	if o.ignoreSeconds {
		opts.IgnoreSeconds = true
	}
	if o.noDST {
		opts.IgnoreDST = true
	}
	if o.noSubdirs {
		opts.Subdirs = false
	}
	if o.workers > 0 {
		opts.Workers = o.workers
	}
	return opts
}

func runCmp(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reg := archive.DefaultRegistry()

	left, err := openSource(ctx, reg, args[0])
	if err != nil {
		return err
	}
	right, err := openSource(ctx, reg, args[1])
	if err != nil {
		return err
	}

	opts := cmpOpts.apply(dircmp.OptionsFromConfig(current.cfg.Compare))
	diffs, err := dircmp.Compare(ctx, left, right, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	titleColor.Fprintf(out, "%s <> %s\n", left.Label(), right.Label())
	for _, d := range diffs {
		printDifference(out, d)
	}
	if len(diffs) == 0 {
		okColor.Fprintln(out, "identical")
		return nil
	}
	dimColor.Fprintf(out, "%d differences\n", len(diffs))
	return nil
}

// openSource classifies input like a panel does and returns a compare
// source over it. Plugin filesystems cannot be compared.
func openSource(ctx context.Context, reg *archive.Registry, input string) (dircmp.Source, error) {
	cls := location.Classifier{Archives: reg}
	if name, _, ok := location.SplitFSPath(input); ok {
		return nil, fmt.Errorf("%s: %s: plugin filesystems cannot be compared", input, name)
	}
	wd, _ := os.Getwd()
	loc, err := cls.Classify(input, wd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input, err)
	}
	switch l := loc.(type) {
	case location.Disk:
		info, err := os.Stat(l.Path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s: not a directory", input)
		}
		return dircmp.DiskSource{Root: l.Path}, nil
	case location.Archive:
		tree, _, err := reg.List(ctx, l.File)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", l.File, err)
		}
		inner, ok := tree.Canonical(l.Inner)
		if !ok {
			return nil, fmt.Errorf("%s: %w", input, archive.ErrNoEntry)
		}
		return dircmp.ArchiveSource{File: l.File, Root: inner, Tree: tree, Members: reg}, nil
	}
	return nil, fmt.Errorf("%s: cannot be compared", input)
}

func printDifference(w io.Writer, d dircmp.Difference) {
	switch d.Kind {
	case dircmp.OnlyLeft:
		okColor.Fprintf(w, "< %s\n", d.Path)
	case dircmp.OnlyRight:
		okColor.Fprintf(w, "> %s\n", d.Path)
	case dircmp.TypeMismatch:
		errColor.Fprintf(w, "! %s (%s)\n", d.Path, d.Kind)
	default:
		warnColor.Fprintf(w, "* %s (%s)\n", d.Path, strings.Join(reasons(d), ", "))
	}
}

func reasons(d dircmp.Difference) []string {
	var out []string
	if d.Reason&dircmp.ReasonSize != 0 {
		out = append(out, fmt.Sprintf("size %s/%s", entrySize(d.Left), entrySize(d.Right)))
	}
	if d.Reason&dircmp.ReasonTime != 0 {
		switch d.Newer {
		case dircmp.SideLeft:
			out = append(out, "left newer")
		case dircmp.SideRight:
			out = append(out, "right newer")
		default:
			out = append(out, "time")
		}
	}
	if d.Reason&dircmp.ReasonContent != 0 {
		out = append(out, "content")
	}
	return out
}

func entrySize(e *listing.Entry) string {
	if e == nil {
		return "-"
	}
	return humanize.IBytes(e.Size)
}
