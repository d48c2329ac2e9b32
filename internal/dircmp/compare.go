// Package dircmp compares two directory trees, each read from disk or from
// an archive listing.
package dircmp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/justyntemme/salpanel/internal/config"
	"github.com/justyntemme/salpanel/internal/debug"
	"github.com/justyntemme/salpanel/internal/listing"
)

// ErrNoContent is returned by sources that cannot read file bodies.
// Content compare is skipped for such files.
var ErrNoContent = errors.New("dircmp: content not available")

// Options select what makes two files different.
type Options struct {
	BySize        bool
	ByTime        bool
	ByContent     bool
	IgnoreSeconds bool // compare times with minute resolution
	IgnoreDST     bool // differences of exactly one or two hours are equal
	Subdirs       bool
	Workers       int // parallel content readers, defaults to the CPU count
}

// OptionsFromConfig maps the persisted compare defaults.
func OptionsFromConfig(c config.CompareConfig) Options {
	return Options{
		BySize:        c.BySize,
		ByTime:        c.ByTime,
		ByContent:     c.ByContent,
		IgnoreSeconds: c.IgnoreSeconds,
		IgnoreDST:     c.IgnoreDST,
		Subdirs:       c.Subdirs,
	}
}

// Kind classifies a difference.
type Kind int

const (
	OnlyLeft Kind = iota
	OnlyRight
	TypeMismatch // a directory on one side, a file on the other
	Differs
)

func (k Kind) String() string {
	switch k {
	case OnlyLeft:
		return "only-left"
	case OnlyRight:
		return "only-right"
	case TypeMismatch:
		return "type-mismatch"
	case Differs:
		return "differs"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Reason is the set of properties that differ for a Differs result.
type Reason uint8

const (
	ReasonSize Reason = 1 << iota
	ReasonTime
	ReasonContent
)

// Side names a compare side.
type Side int

const (
	SideNone Side = iota
	SideLeft
	SideRight
)

// Difference is one mismatching name. Path is relative to the compare roots.
type Difference struct {
	Path   string
	Kind   Kind
	Reason Reason
	Newer  Side // set when ReasonTime is
	Left   *listing.Entry
	Right  *listing.Entry
}

var folder = cases.Fold()

// Compare walks left and right and returns their differences sorted by path.
// Names are matched case-insensitively.
func Compare(ctx context.Context, left, right Source, opts Options) ([]Difference, error) {
	start := time.Now()
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers + 1) // one slot is the walker itself

	c := &comparer{left: left, right: right, opts: opts, g: g}
	g.Go(func() error { return c.walk(gctx, "") })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(c.diffs, func(i, j int) bool { return c.diffs[i].Path < c.diffs[j].Path })
	debug.Log(debug.COMPARE, "Compare: %s vs %s: %d differences in %v", left.Label(), right.Label(), len(c.diffs), time.Since(start))
	return c.diffs, nil
}

type comparer struct {
	left, right Source
	opts        Options
	g           *errgroup.Group

	mu    sync.Mutex
	diffs []Difference
}

func (c *comparer) add(d Difference) {
	c.mu.Lock()
	c.diffs = append(c.diffs, d)
	c.mu.Unlock()
}

func index(l *listing.Listing) map[string]*listing.Entry {
	m := make(map[string]*listing.Entry, l.Count())
	for _, e := range l.Dirs {
		m[folder.String(e.Name)] = e
	}
	for _, e := range l.Files {
		m[folder.String(e.Name)] = e
	}
	return m
}

func (c *comparer) walk(ctx context.Context, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ll, err := c.left.List(ctx, rel)
	if err != nil {
		return fmt.Errorf("%s: %w", c.left.Label(), err)
	}
	rl, err := c.right.List(ctx, rel)
	if err != nil {
		return fmt.Errorf("%s: %w", c.right.Label(), err)
	}
	li, ri := index(ll), index(rl)

	var subdirs []string
	visit := func(e *listing.Entry) error {
		key := folder.String(e.Name)
		path := joinRel(rel, e.Name)
		r, ok := ri[key]
		switch {
		case !ok:
			c.add(Difference{Path: path, Kind: OnlyLeft, Left: e})
		case e.IsDir != r.IsDir:
			c.add(Difference{Path: path, Kind: TypeMismatch, Left: e, Right: r})
		case e.IsDir:
			if c.opts.Subdirs {
				subdirs = append(subdirs, path)
			}
		default:
			return c.compareFiles(ctx, path, e, r)
		}
		return nil
	}
	for _, e := range ll.Dirs {
		if err := visit(e); err != nil {
			return err
		}
	}
	for _, e := range ll.Files {
		if err := visit(e); err != nil {
			return err
		}
	}
	for _, group := range [][]*listing.Entry{rl.Dirs, rl.Files} {
		for _, e := range group {
			if _, ok := li[folder.String(e.Name)]; !ok {
				c.add(Difference{Path: joinRel(rel, e.Name), Kind: OnlyRight, Right: e})
			}
		}
	}

	for _, sub := range subdirs {
		if err := c.walk(ctx, sub); err != nil {
			return err
		}
	}
	return nil
}

func (c *comparer) compareFiles(ctx context.Context, path string, l, r *listing.Entry) error {
	d := Difference{Path: path, Kind: Differs, Left: l, Right: r}
	if c.opts.BySize && l.Size != r.Size {
		d.Reason |= ReasonSize
	}
	if c.opts.ByTime {
		if newer := newerSide(l.ModTime, r.ModTime, c.opts); newer != SideNone {
			d.Reason |= ReasonTime
			d.Newer = newer
		}
	}
	if d.Reason != 0 {
		c.add(d)
		return nil
	}
	if !c.opts.ByContent {
		return nil
	}
	if l.Size != r.Size {
		d.Reason = ReasonContent
		c.add(d)
		return nil
	}

	c.g.Go(func() error {
		same, err := sameContent(ctx, c.left, c.right, path)
		switch {
		case errors.Is(err, ErrNoContent):
			debug.Log(debug.COMPARE, "compareFiles: %s: content not available", path)
			return nil
		case err != nil:
			return fmt.Errorf("compare %s: %w", path, err)
		}
		if !same {
			d.Reason = ReasonContent
			c.add(d)
		}
		return nil
	})
	return nil
}

// newerSide compares modification times the way the panel shows them.
func newerSide(l, r time.Time, opts Options) Side {
	res := time.Second
	if opts.IgnoreSeconds {
		res = time.Minute
	}
	l, r = l.Truncate(res), r.Truncate(res)
	diff := l.Sub(r)
	if diff == 0 {
		return SideNone
	}
	if opts.IgnoreDST {
		abs := diff
		if abs < 0 {
			abs = -abs
		}
		if abs == time.Hour || abs == 2*time.Hour {
			return SideNone
		}
	}
	if diff > 0 {
		return SideLeft
	}
	return SideRight
}

const chunkSize = 32 * 1024

func sameContent(ctx context.Context, left, right Source, path string) (bool, error) {
	lf, err := left.Open(path)
	if err != nil {
		return false, err
	}
	defer lf.Close()
	rf, err := right.Open(path)
	if err != nil {
		return false, err
	}
	defer rf.Close()

	lb := make([]byte, chunkSize)
	rb := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		ln, lerr := io.ReadFull(lf, lb)
		rn, rerr := io.ReadFull(rf, rb)
		if ln != rn || !bytes.Equal(lb[:ln], rb[:rn]) {
			return false, nil
		}
		lend := lerr == io.EOF || lerr == io.ErrUnexpectedEOF
		rend := rerr == io.EOF || rerr == io.ErrUnexpectedEOF
		switch {
		case lerr != nil && !lend:
			return false, lerr
		case rerr != nil && !rend:
			return false, rerr
		case lend || rend:
			return lend == rend, nil
		}
	}
}
