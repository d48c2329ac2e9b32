package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"

	"github.com/justyntemme/salpanel/internal/debug"
)

var (
	// ErrNotReady is reported for removable media without a disk.
	ErrNotReady = errors.New("device is not ready")
	// ErrUserTerminated is reported when the user aborted a probe.
	ErrUserTerminated = errors.New("operation canceled by user")
	// ErrAccessDenied wraps permission failures.
	ErrAccessDenied = errors.New("access denied")
	// ErrNotDirectory is reported when the path names a file.
	ErrNotDirectory = errors.New("not a directory")
)

// ProbeResult describes the outcome of a path accessibility probe.
type ProbeResult struct {
	Path        string // longest accessible prefix, or the path that failed
	Err         error  // nil when Path is accessible
	LastErr     error  // what made the prober shorten, nil when nothing was cut
	PathInvalid bool   // syntax error or an already reported network failure
	Cut         bool   // Path is shorter than the requested path
}

// OK reports whether the probe found an accessible directory.
func (r ProbeResult) OK() bool { return r.Err == nil && !r.PathInvalid }

// Prober checks a disk path and shortens it to the longest accessible prefix.
type Prober interface {
	Probe(ctx context.Context, path string, tryNet bool) ProbeResult
}

// NetReconnector restores network connections for UNC roots and mapped drives.
type NetReconnector interface {
	Reconnect(ctx context.Context, root string) error
}

// OSProber probes the real file system.
type OSProber struct {
	Stat func(string) (os.FileInfo, error) // os.Stat when nil
	Net  NetReconnector
}

func (p *OSProber) stat(path string) (os.FileInfo, error) {
	if p.Stat != nil {
		return p.Stat(path)
	}
	return os.Stat(path)
}

// Probe implements Prober.
func (p *OSProber) Probe(ctx context.Context, path string, tryNet bool) ProbeResult {
	if !IsAbsolute(path) {
		return ProbeResult{Path: path, Err: ErrInvalidPath, PathInvalid: true}
	}
	if err := ctx.Err(); err != nil {
		return ProbeResult{Path: path, Err: ErrUserTerminated}
	}

	root := RootOf(path)
	if _, err := p.stat(root); err != nil {
		if tryNet && p.Net != nil && (IsUNC(root) || isRemoteDrive(root)) {
			debug.Log(debug.PROBE, "Probe: reconnecting %q", root)
			if rerr := p.Net.Reconnect(ctx, root); rerr != nil {
				if ctx.Err() != nil {
					return ProbeResult{Path: path, Err: ErrUserTerminated}
				}
				// the reconnect dialog already told the user
				return ProbeResult{Path: path, Err: classify(rerr), PathInvalid: true}
			}
			_, err = p.stat(root)
		}
		if err != nil {
			return ProbeResult{Path: path, Err: classify(err)}
		}
	}

	cur := Clean(path)
	res := ProbeResult{}
	for {
		if ctx.Err() != nil {
			return ProbeResult{Path: cur, Err: ErrUserTerminated, LastErr: res.LastErr, Cut: res.Cut}
		}
		info, err := p.stat(cur)
		if err == nil && info.IsDir() {
			res.Path = cur
			debug.Log(debug.PROBE, "Probe: %q accessible (cut=%v)", cur, res.Cut)
			return res
		}
		if err == nil {
			err = fmt.Errorf("%s: %w", cur, ErrNotDirectory)
		} else {
			err = classify(err)
		}
		if res.LastErr == nil {
			res.LastErr = err
		}
		if errors.Is(err, ErrNotReady) {
			return ProbeResult{Path: cur, Err: err, LastErr: res.LastErr, Cut: res.Cut}
		}
		parent, _, ok := CutDirectory(cur)
		if !ok {
			return ProbeResult{Path: cur, Err: err, LastErr: res.LastErr, Cut: res.Cut}
		}
		debug.Log(debug.PROBE, "Probe: %q failed (%v), trying %q", cur, err, parent)
		cur = parent
		res.Cut = true
	}
}

// classify maps OS errors onto the package sentinels while keeping the cause.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotReady), errors.Is(err, ErrAccessDenied), errors.Is(err, ErrUserTerminated):
		return err
	case errors.Is(err, context.Canceled):
		return ErrUserTerminated
	case isNotReady(err):
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	case errors.Is(err, iofs.ErrPermission):
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	}
	return err
}

// Classify is exported for collaborators that produce raw OS errors.
func Classify(err error) error { return classify(err) }
