package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/justyntemme/salpanel/internal/listing"
	"github.com/justyntemme/salpanel/internal/location"
)

var zipMagic = []byte("PK\x03\x04")

type zipPacker struct{}

// NewZipPacker returns the built-in ZIP reader.
func NewZipPacker() Packer { return zipPacker{} }

func (zipPacker) Name() string { return "zip" }

func (zipPacker) Extensions() []string {
	return []string{"zip", "jar", "apk", "epub", "docx", "xlsx", "odt"}
}

func (zipPacker) Sniff(header []byte) bool { return bytes.HasPrefix(header, zipMagic) }

func (zipPacker) CanClose(string, bool) bool { return true }

func (zipPacker) List(ctx context.Context, path string) (*Tree, PluginData, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w: %w", path, ErrCorrupt, err)
	}
	defer r.Close()

	b := NewBuilder()
	b.AllocAddCache()
	defer b.FreeAddCache()

	for i, f := range r.File {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		name := location.NormalizeInner(f.Name)
		if name == "" {
			continue
		}
		info := f.FileInfo()
		if info.IsDir() || strings.HasSuffix(f.Name, "/") {
			e := listing.NewEntry(baseName(name), true)
			e.ModTime = f.Modified
			b.AddDir(name, e)
			continue
		}
		e := &listing.Entry{
			Size:    f.UncompressedSize64,
			ModTime: f.Modified,
			Attr:    zipAttr(info.Mode()),
		}
		if err := b.AddFile(name, e); err != nil {
			// later duplicates are ignored, the first one wins
			continue
		}
	}
	return b.Tree(), nil, nil
}

func zipAttr(mode os.FileMode) listing.Attr {
	var a listing.Attr
	if mode.Perm()&0o200 == 0 && mode.Perm() != 0 {
		a |= listing.AttrReadOnly
	}
	if mode&os.ModeSymlink != 0 {
		a |= listing.AttrLink
	}
	return a | listing.AttrArchive
}

type zipMember struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (m zipMember) Close() error {
	err := m.ReadCloser.Close()
	if cerr := m.archive.Close(); err == nil {
		err = cerr
	}
	return err
}

func (zipPacker) Open(path, inner string) (io.ReadCloser, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", path, ErrCorrupt, err)
	}
	want := fold(location.NormalizeInner(inner))
	for _, f := range r.File {
		if fold(location.NormalizeInner(f.Name)) != want || f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("%s: %w", inner, err)
		}
		return zipMember{ReadCloser: rc, archive: r}, nil
	}
	r.Close()
	return nil, fmt.Errorf("%s: %w", inner, ErrNoEntry)
}

// Update rewrites the archive, replacing members named in files (inner
// path to source file on disk) and appending the ones that are new.
func (zipPacker) Update(ctx context.Context, path string, files map[string]string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", path, ErrCorrupt, err)
	}
	defer r.Close()

	pending := make(map[string]string, len(files))
	for inner, src := range files {
		pending[fold(location.NormalizeInner(inner))] = src
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".salpanel-*.zip")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := zip.NewWriter(tmp)
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			tmp.Close()
			return err
		}
		key := fold(location.NormalizeInner(f.Name))
		if src, ok := pending[key]; ok {
			delete(pending, key)
			hdr := f.FileHeader
			if err := writeFromDisk(w, &hdr, src); err != nil {
				tmp.Close()
				return err
			}
			continue
		}
		if err := copyMember(w, f); err != nil {
			tmp.Close()
			return err
		}
	}
	for inner, src := range files {
		if _, ok := pending[fold(location.NormalizeInner(inner))]; !ok {
			continue
		}
		hdr := &zip.FileHeader{Name: location.NormalizeInner(inner), Method: zip.Deflate}
		if err := writeFromDisk(w, hdr, src); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	r.Close()
	return os.Rename(tmpName, path)
}

func copyMember(w *zip.Writer, f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	hdr := f.FileHeader
	out, err := w.CreateHeader(&hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, rc)
	return err
}

func writeFromDisk(w *zip.Writer, hdr *zip.FileHeader, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	hdr.Modified = info.ModTime()
	hdr.UncompressedSize64 = uint64(info.Size())
	hdr.CompressedSize64 = 0
	hdr.CRC32 = 0
	out, err := w.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	return err
}
