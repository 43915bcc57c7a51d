package sandbox

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"mycloud/pkg/store"
)

const (
	// maxNameBytes is the common file name limit of local filesystems.
	maxNameBytes = 255

	tempNamePrefix = ".mycloud-upload-"
	tempNameSuffix = ".tmp"

	// TempFilePattern names in-flight upload files for os.CreateTemp.
	// Sanitized names never start with a dot, so they cannot collide with it.
	TempFilePattern = tempNamePrefix + "*" + tempNameSuffix
)

var separatorReplacer = strings.NewReplacer("/", " ", "\\", " ")

// SanitizeName reduces an uploaded file name to a safe base name.
//
// The name is NFKD-folded to ASCII, path separators become spaces, whitespace
// runs become a single underscore and everything outside [A-Za-z0-9_.-] is
// dropped. Leading and trailing dots and underscores are stripped, so the
// result can never be "." or ".." or a hidden file.
func SanitizeName(name string) (string, error) {
	folded := foldASCII(name)
	folded = separatorReplacer.Replace(folded)
	folded = strings.Join(strings.Fields(folded), "_")

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if allowedNameRune(r) {
			b.WriteRune(r)
		}
	}

	cleaned := strings.Trim(b.String(), "._")
	if len(cleaned) > maxNameBytes {
		cleaned = strings.TrimRight(cleaned[:maxNameBytes], "._")
	}
	if cleaned == "" {
		return "", store.InvalidNameError{Name: name}
	}

	return cleaned, nil
}

// IsTempName reports whether name is an in-flight upload file.
func IsTempName(name string) bool {
	return strings.HasPrefix(name, tempNamePrefix) && strings.HasSuffix(name, tempNameSuffix)
}

func foldASCII(s string) string {
	decomposed := norm.NFKD.String(s)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) || r > unicode.MaxASCII {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func allowedNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '.', r == '-':
		return true
	}
	return false
}
