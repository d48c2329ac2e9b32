package panel

import "fmt"

// FailReason is the outcome class of a path change.
type FailReason int

const (
	Success FailReason = iota
	ShorterPathUsed
	FileNameWasFocusedInstead
	CannotClosePath
	InvalidPath
	InvalidArchive
)

func (r FailReason) String() string {
	switch r {
	case Success:
		return "success"
	case ShorterPathUsed:
		return "shorter-path-used"
	case FileNameWasFocusedInstead:
		return "file-name-focused"
	case CannotClosePath:
		return "cannot-close-path"
	case InvalidPath:
		return "invalid-path"
	case InvalidArchive:
		return "invalid-archive"
	}
	return fmt.Sprintf("FailReason(%d)", int(r))
}

// Result is returned by every ChangePathTo* call. OK is set only when the
// requested location itself is displayed; ShorterPathUsed and
// FileNameWasFocusedInstead leave the panel on a valid location with OK
// false.
type Result struct {
	OK        bool
	Reason    FailReason
	NoChange  bool   // the listing was not touched
	FocusName string // file focused in place of a missing path element
}

func (r Result) String() string {
	s := r.Reason.String()
	if r.NoChange {
		s += " (no change)"
	}
	if r.FocusName != "" {
		s += fmt.Sprintf(" focus=%q", r.FocusName)
	}
	return s
}

func failed(reason FailReason) Result {
	return Result{Reason: reason, NoChange: true}
}
