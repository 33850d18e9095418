package fsys

import (
	"fmt"
	"strings"
)

const invalidFilenameChars = "<>:\"/\\|?*"

// SanitizeFilename replaces characters that are invalid in file names on
// common filesystems with a single space and trims the result. Runs of
// spaces collapse to one.
func SanitizeFilename(name string) (string, error) {
	var b strings.Builder
	b.Grow(len(name))

	lastSpace := false
	for _, r := range name {
		if r < 32 || r == 127 || r == ' ' || strings.ContainsRune(invalidFilenameChars, r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}

	result := strings.TrimSpace(b.String())
	if result == "" || result == "." || result == ".." {
		return "", fmt.Errorf("name %q is empty after sanitization", name)
	}
	return result, nil
}
