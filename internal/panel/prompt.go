package panel

import (
	"go.uber.org/zap"

	"github.com/justyntemme/salpanel/internal/location"
)

// DriveAnswer is the user's reply to a drive-not-ready prompt.
type DriveAnswer int

const (
	DriveCancel DriveAnswer = iota
	DriveRetry
)

// Prompter shows messages and asks questions on behalf of a panel. A
// navigation never talks to the user any other way, so background
// refreshes can swap in a quiet one.
type Prompter interface {
	// ShowError reports why path could not be used.
	ShowError(path string, err error)
	// ConfirmForceClose asks whether loc may be closed although its owner
	// refused.
	ConfirmForceClose(loc location.Location) bool
	// DriveNotReady asks whether to retry a removable drive without media.
	DriveNotReady(path string, err error) DriveAnswer
	// Notice shows an informational message.
	Notice(msg string)
}

// LogPrompter writes every prompt to a zap logger and answers with the
// configured defaults. It is what headless panels use.
type LogPrompter struct {
	Log        *zap.Logger
	ForceClose bool
	Retry      bool
}

var _ Prompter = (*LogPrompter)(nil)

func (p *LogPrompter) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

func (p *LogPrompter) ShowError(path string, err error) {
	p.logger().Warn("path error", zap.String("path", path), zap.Error(err))
}

func (p *LogPrompter) ConfirmForceClose(loc location.Location) bool {
	p.logger().Info("close refused", zap.String("location", loc.Describe()), zap.Bool("force", p.ForceClose))
	return p.ForceClose
}

func (p *LogPrompter) DriveNotReady(path string, err error) DriveAnswer {
	p.logger().Info("drive not ready", zap.String("path", path), zap.Error(err), zap.Bool("retry", p.Retry))
	if p.Retry {
		// one retry per prompt so an absent disk cannot spin forever
		p.Retry = false
		return DriveRetry
	}
	return DriveCancel
}

func (p *LogPrompter) Notice(msg string) {
	p.logger().Info(msg)
}

// quietPrompter stands in during background refreshes: nothing is shown,
// every question gets the non-destructive answer.
type quietPrompter struct {
	log *zap.Logger
}

func (q quietPrompter) ShowError(path string, err error) {
	q.log.Debug("suppressed path error", zap.String("path", path), zap.Error(err))
}

func (q quietPrompter) ConfirmForceClose(location.Location) bool { return false }

func (q quietPrompter) DriveNotReady(string, error) DriveAnswer { return DriveCancel }

func (q quietPrompter) Notice(msg string) {
	q.log.Debug("suppressed notice", zap.String("msg", msg))
}
