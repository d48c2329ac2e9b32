package fs

import (
	"errors"
	"strings"
)

// MaxPath is the classic Windows path limit; panels reject anything at or
// over twice that.
const MaxPath = 260

var (
	ErrInvalidPath = errors.New("invalid path")
	ErrPathTooLong = errors.New("path is too long")
)

// Three path styles are understood: drive ("C:\dir"), UNC ("\\srv\share\dir")
// and POSIX ("/dir"). Drive and UNC paths compare case-insensitively and use
// a backslash; POSIX paths are case-sensitive and use a slash.

func isSep(c byte) bool { return c == '\\' || c == '/' }

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

// IsUNC reports whether p starts with two separators.
func IsUNC(p string) bool { return len(p) >= 2 && isSep(p[0]) && isSep(p[1]) }

// IsDrivePath reports whether p starts with a drive letter and a colon.
func IsDrivePath(p string) bool { return len(p) >= 2 && isLetter(p[0]) && p[1] == ':' }

// IsPosix reports whether p is a rooted POSIX path.
func IsPosix(p string) bool { return len(p) >= 1 && p[0] == '/' && !IsUNC(p) }

// IsAbsolute reports whether p is a fully qualified path of any style.
func IsAbsolute(p string) bool {
	switch {
	case IsUNC(p):
		server, _, _ := splitUNC(p)
		return server != ""
	case IsDrivePath(p):
		return len(p) == 2 || isSep(p[2])
	default:
		return IsPosix(p)
	}
}

// Sep returns the separator used by the style of p.
func Sep(p string) byte {
	if IsPosix(p) {
		return '/'
	}
	return '\\'
}

func caseInsensitive(p string) bool { return !IsPosix(p) }

// splitUNC returns server, share and the remainder of a UNC path.
func splitUNC(p string) (server, share, rest string) {
	s := strings.TrimLeft(p, `\/`)
	i := strings.IndexAny(s, `\/`)
	if i < 0 {
		return s, "", ""
	}
	server = s[:i]
	s = s[i+1:]
	j := strings.IndexAny(s, `\/`)
	if j < 0 {
		return server, s, ""
	}
	return server, s[:j], s[j+1:]
}

// RootOf returns the root of p ("C:\", "\\srv\share\", "/"), or "" for
// relative paths.
func RootOf(p string) string {
	switch {
	case IsUNC(p):
		server, share, _ := splitUNC(p)
		if server == "" {
			return ""
		}
		if share == "" {
			return `\\` + server + `\`
		}
		return `\\` + server + `\` + share + `\`
	case IsDrivePath(p):
		return strings.ToUpper(p[:1]) + `:\`
	case IsPosix(p):
		return "/"
	}
	return ""
}

// components splits the part of p after its root.
func components(p string) []string {
	root := RootOf(p)
	var rest string
	switch {
	case IsUNC(p):
		_, _, rest = splitUNC(p)
	case root != "":
		rest = p[min(len(p), len(root)-1):]
	default:
		rest = p
	}
	var out []string
	for _, c := range strings.FieldsFunc(rest, func(r rune) bool { return r == '\\' || r == '/' }) {
		out = append(out, c)
	}
	return out
}

func build(root string, comps []string) string {
	if len(comps) == 0 {
		return root
	}
	return root + strings.Join(comps, string(Sep(root)))
}

// Clean normalizes separators, removes "." and ".." elements and drops a
// trailing separator (except on a root). Relative paths are returned with
// separators normalized only.
func Clean(p string) string {
	root := RootOf(p)
	comps := components(p)
	if root == "" {
		return strings.Join(comps, `\`)
	}
	var out []string
	for _, c := range comps {
		switch c {
		case ".":
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, c)
		}
	}
	return build(root, out)
}

// IsRoot reports whether p names the root of its volume.
func IsRoot(p string) bool {
	root := RootOf(p)
	return root != "" && len(components(p)) == 0
}

// Join appends name to dir using dir's separator.
func Join(dir, name string) string {
	if dir == "" {
		return name
	}
	if name == "" {
		return dir
	}
	if isSep(dir[len(dir)-1]) {
		return dir + name
	}
	return dir + string(Sep(dir)) + name
}

// GetFullName resolves name against base and cleans the result. A name
// starting with a single separator is taken relative to the root of base,
// "C:dir" relative to the root of drive C.
func GetFullName(name, base string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidPath
	}
	var full string
	switch {
	case IsAbsolute(name):
		full = name
	case IsDrivePath(name):
		full = name[:2] + `\` + name[2:]
	case isSep(name[0]) && !IsUNC(name):
		root := RootOf(base)
		if root == "" || IsPosix(base) {
			return "", ErrInvalidPath
		}
		full = root + name[1:]
	default:
		if !IsAbsolute(base) {
			return "", ErrInvalidPath
		}
		full = Join(base, name)
	}
	full = Clean(full)
	if len(full) >= 2*MaxPath {
		return "", ErrPathTooLong
	}
	return full, nil
}

// CutDirectory removes the last element of p. It returns the shortened path,
// the element removed and false when p is already a root (or empty).
func CutDirectory(p string) (parent, cut string, ok bool) {
	root := RootOf(p)
	comps := components(p)
	if len(comps) == 0 {
		return p, "", false
	}
	if root == "" && len(comps) == 1 {
		return "", comps[0], true
	}
	return build(root, comps[:len(comps)-1]), comps[len(comps)-1], true
}

// IsTheSamePath compares two paths ignoring a trailing separator and, for
// drive and UNC paths, letter case.
func IsTheSamePath(a, b string) bool {
	ca, cb := Clean(a), Clean(b)
	if caseInsensitive(ca) || caseInsensitive(cb) {
		return strings.EqualFold(ca, cb)
	}
	return ca == cb
}

// HasTheSameRootPath reports whether both paths live on the same volume.
func HasTheSameRootPath(a, b string) bool {
	ra, rb := RootOf(a), RootOf(b)
	if ra == "" || rb == "" {
		return false
	}
	if caseInsensitive(ra) {
		return strings.EqualFold(ra, rb)
	}
	return ra == rb
}

// IsDirectChild reports whether child is exactly one element below parent.
func IsDirectChild(parent, child string) bool {
	up, _, ok := CutDirectory(Clean(child))
	return ok && IsTheSamePath(up, parent)
}

// FoldKey returns a key suitable for map lookups of p.
func FoldKey(p string) string {
	c := Clean(p)
	if caseInsensitive(c) {
		return strings.ToLower(c)
	}
	return c
}
