package cli

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/justyntemme/salpanel/internal/listing"
	"github.com/justyntemme/salpanel/internal/location"
	"github.com/justyntemme/salpanel/internal/panel"
	"github.com/justyntemme/salpanel/internal/view"
)

// cliPrompter prints panel messages to w and answers every question with
// the non-destructive choice.
type cliPrompter struct {
	w io.Writer
}

func (p *cliPrompter) ShowError(path string, err error) {
	errColor.Fprintf(p.w, "error: %s: %v\n", path, err)
}

func (p *cliPrompter) ConfirmForceClose(loc location.Location) bool {
	warnColor.Fprintf(p.w, "%s refused to close\n", loc.Describe())
	return false
}

func (p *cliPrompter) DriveNotReady(path string, err error) panel.DriveAnswer {
	warnColor.Fprintf(p.w, "drive of %s is not ready: %v\n", path, err)
	return panel.DriveCancel
}

func (p *cliPrompter) Notice(msg string) {
	dimColor.Fprintln(p.w, msg)
}

func printResult(w io.Writer, input string, res panel.Result) {
	switch {
	case res.OK:
		okColor.Fprintf(w, "%s: %s\n", input, res)
	case res.Reason == panel.ShorterPathUsed || res.Reason == panel.FileNameWasFocusedInstead:
		warnColor.Fprintf(w, "%s: %s\n", input, res)
	default:
		errColor.Fprintf(w, "%s: %s\n", input, res)
	}
}

// printListing writes the panel location, its entries and the status line.
func printListing(w io.Writer, p *panel.Panel, limit int) {
	titleColor.Fprintln(w, p.GeneralPath())
	l := p.Listing()
	if l == nil {
		dimColor.Fprintln(w, "  (nothing listed)")
		return
	}
	n := l.Count()
	if limit > 0 && n > limit {
		n = limit
	}
	for i := 0; i < n; i++ {
		printEntry(w, l.At(i))
	}
	if n < l.Count() {
		dimColor.Fprintf(w, "  ... %d more\n", l.Count()-n)
	}
	st := view.StatusOf(p.GeneralPath(), l)
	st.FreeBytes, st.HasFreeSpace = p.FreeSpace()
	dimColor.Fprintf(w, "  %s\n", st)
}

func printEntry(w io.Writer, e *listing.Entry) {
	when := ""
	if !e.ModTime.IsZero() {
		when = e.ModTime.Format("2006-01-02 15:04")
	}
	if e.IsDir {
		fmt.Fprintf(w, "  %s %10s  %s\n", dirColor.Sprintf("%-40s", e.Name+"/"), "<DIR>", when)
		return
	}
	fmt.Fprintf(w, "  %-40s %10s  %s\n", e.Name, humanize.IBytes(e.Size), when)
}
