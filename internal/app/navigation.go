package app

import (
	"os"
	"strings"

	"github.com/justyntemme/salpanel/internal/fs"
)

// ExpandHome replaces a leading "~" with home. Everything else, including
// relative paths and fs-name prefixes, is left for the panel to classify.
func ExpandHome(input, home string) string {
	input = strings.TrimSpace(input)
	if home == "" || !strings.HasPrefix(input, "~") {
		return input
	}
	if input == "~" {
		return home
	}
	if input[1] == '/' || input[1] == '\\' {
		rest := strings.Trim(input[2:], `/\`)
		if rest == "" {
			return home
		}
		dir := home
		for _, part := range strings.FieldsFunc(rest, func(r rune) bool { return r == '/' || r == '\\' }) {
			dir = fs.Join(dir, part)
		}
		return dir
	}
	// "~user" and names starting with a tilde are not expanded
	return input
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}
