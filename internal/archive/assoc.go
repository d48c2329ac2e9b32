package archive

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/justyntemme/salpanel/internal/debug"
	"github.com/justyntemme/salpanel/internal/fs"
	"github.com/justyntemme/salpanel/internal/location"
	"github.com/justyntemme/salpanel/internal/logging"
)

// AssocFile is an archive member extracted to disk so an associated
// application can edit it.
type AssocFile struct {
	Archive  string
	Inner    string
	TempPath string
	Stamp    Stamp // of TempPath at extraction
}

// MemberStore reads and writes archive members. *Registry implements it.
type MemberStore interface {
	Open(path, inner string) (io.ReadCloser, error)
	Update(ctx context.Context, path string, files map[string]string) error
}

// AssocFiles tracks extracted members per archive.
type AssocFiles struct {
	mu    sync.Mutex
	files []AssocFile
	store MemberStore
	dir   string
}

// NewAssocFiles returns a tracker extracting into dir (os.TempDir when
// empty) and writing changes back through store.
func NewAssocFiles(store MemberStore, dir string) *AssocFiles {
	if dir == "" {
		dir = os.TempDir()
	}
	return &AssocFiles{store: store, dir: dir}
}

// Extract copies a member to a temporary file and records it.
func (a *AssocFiles) Extract(archive, inner string) (AssocFile, error) {
	rc, err := a.store.Open(archive, inner)
	if err != nil {
		return AssocFile{}, err
	}
	defer rc.Close()

	name := inner
	if i := strings.LastIndexAny(inner, `/\`); i >= 0 {
		name = inner[i+1:]
	}
	out, err := os.CreateTemp(a.dir, "salpanel-*-"+name)
	if err != nil {
		return AssocFile{}, err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		os.Remove(out.Name())
		return AssocFile{}, err
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return AssocFile{}, err
	}
	st, err := StatStamp(out.Name())
	if err != nil {
		return AssocFile{}, err
	}
	f := AssocFile{Archive: archive, Inner: location.NormalizeInner(inner), TempPath: out.Name(), Stamp: st}
	a.Add(f)
	return f, nil
}

// Add records an extracted member.
func (a *AssocFiles) Add(f AssocFile) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files = append(a.files, f)
}

// Count returns the number of members extracted from archive.
func (a *AssocFiles) Count(archive string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, f := range a.files {
		if fs.IsTheSamePath(f.Archive, archive) {
			n++
		}
	}
	return n
}

// take removes and returns the members of archive.
func (a *AssocFiles) take(archive string) []AssocFile {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out, keep []AssocFile
	for _, f := range a.files {
		if fs.IsTheSamePath(f.Archive, archive) {
			out = append(out, f)
		} else {
			keep = append(keep, f)
		}
	}
	a.files = keep
	return out
}

func changedFiles(files []AssocFile) map[string]string {
	changed := make(map[string]string)
	for _, f := range files {
		cur, err := StatStamp(f.TempPath)
		if err != nil {
			continue
		}
		if Changed(f.Stamp, cur) {
			changed[f.Inner] = f.TempPath
		}
	}
	return changed
}

// CheckAndPackAndClear writes edited members of archive back and forgets
// them. During a critical shutdown nothing is repacked; the result still
// reports whether edits were lost.
func (a *AssocFiles) CheckAndPackAndClear(ctx context.Context, archive string, criticalShutdown bool) (someChanged bool) {
	files := a.take(archive)
	if len(files) == 0 {
		return false
	}
	changed := changedFiles(files)
	someChanged = len(changed) > 0
	if someChanged && !criticalShutdown && a.store != nil {
		if err := a.store.Update(ctx, archive, changed); err != nil {
			logging.Named("archive").Warn("repacking edited files failed",
				zap.String("archive", archive), zap.Int("files", len(changed)), zap.Error(err))
		} else {
			debug.Log(debug.ARCHIVE, "CheckAndPackAndClear: %s: repacked %d files", archive, len(changed))
		}
	}
	removeTemps(files)
	return someChanged
}

// Invalidate drops the members of archive without repacking. It is used
// when the archive changed on disk under the extracted copies.
func (a *AssocFiles) Invalidate(archive string) int {
	files := a.take(archive)
	removeTemps(files)
	return len(files)
}

func removeTemps(files []AssocFile) {
	for _, f := range files {
		if f.TempPath != "" {
			os.Remove(f.TempPath)
		}
	}
}
