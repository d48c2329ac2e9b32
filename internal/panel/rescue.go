package panel

import (
	"context"

	"go.uber.org/zap"

	"github.com/justyntemme/salpanel/internal/fs"
)

// ChangeToRescuePathOrFixedDrive moves the panel somewhere safe: the
// configured rescue path if it works, a fixed drive otherwise.
func (p *Panel) ChangeToRescuePathOrFixedDrive(ctx context.Context, opts Options) Result {
	opts = opts.clearHints()
	if rescue := p.settings.RescuePath; rescue != "" {
		if fs.IsAbsolute(rescue) {
			o := opts
			// errors on the rescue path are always worth showing
			o.ShorterPathWarning = true
			res := p.ChangePathToDisk(ctx, rescue, o)
			switch {
			case res.OK || res.Reason == ShorterPathUsed:
				return Result{OK: true, Reason: Success, NoChange: res.NoChange}
			case res.Reason == CannotClosePath:
				// another drive cannot fix that
				return res
			}
		} else if !p.critical {
			p.deps.Prompter.ShowError(rescue, fs.ErrInvalidPath)
		}
	}
	return p.ChangeToFixedDrive(ctx, opts)
}

// ChangeToFixedDrive shows the root of the system drive, or of the first
// fixed drive when the system drive is not fixed.
func (p *Panel) ChangeToFixedDrive(ctx context.Context, opts Options) Result {
	root, ok := fs.FirstFixedDrive(p.deps.Drives)
	if !ok {
		p.log.Error("no fixed drive to fall back to")
		return failed(InvalidPath)
	}
	p.topIndexMem.Clear()
	p.deps.Metrics.RecordFallback("fixed-drive")
	p.log.Info("falling back to fixed drive", zap.String("root", root))
	return p.ChangePathToDisk(ctx, root, opts.clearHints())
}
