package storage

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	defaultFileName = "book.pdf"
	// maxNameBytes caps the name part of a key so it fits file system name limits.
	maxNameBytes = 128
)

// NewKey builds a unique storage reference of the form <uuid>_<sanitized name>.
func NewKey(name string) string {
	clean := truncateName(SanitizeFilename(filepath.Base(strings.ReplaceAll(name, "\\", "/"))))
	if clean == "" || clean == "." || clean == ".." {
		clean = defaultFileName
	}
	return uuid.NewString() + "_" + clean
}

// truncateName shortens a sanitized name to maxNameBytes, keeping a short extension.
func truncateName(name string) string {
	if len(name) <= maxNameBytes {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) > maxNameBytes/4 {
		ext = ""
	}
	base := strings.TrimRight(name[:maxNameBytes-len(ext)], "_.")
	if base == "" {
		return ""
	}
	return base + ext
}

// SanitizeFilename keeps ASCII letters, digits, dot, dash and underscore.
// Runs of other characters collapse to a single underscore.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range name {
		if r <= 0x7f {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
				b.WriteRune(r)
				lastUnderscore = false
				continue
			}
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// validRef rejects references that could escape the storage root.
func validRef(ref string) bool {
	if ref == "" || ref == "." || ref == ".." {
		return false
	}
	return SanitizeFilename(ref) == ref
}
