// Package sandbox confines caller-supplied paths to a trusted root directory.
package sandbox

import (
	"os"
	"path/filepath"
	"strings"

	"mycloud/pkg/store"
)

// Resolve joins relative onto root and returns the canonical absolute result.
//
// Segments of relative are whitespace-trimmed and empty segments dropped before
// joining, so ".. /x" is treated as "../x". Symlinks in the existing part of the
// path are evaluated; the remainder that does not exist yet is appended as is.
// The result is either root itself or a strict descendant of it, otherwise a
// store.PathEscapeError is returned.
func Resolve(root, relative string) (string, error) {
	canonicalRoot, err := canonicalize(root)
	if err != nil {
		return "", err
	}

	joined := filepath.Join(canonicalRoot, normalizeRelative(relative))
	resolved, err := canonicalize(joined)
	if err != nil {
		return "", store.PathEscapeError{Root: root, Relative: relative}
	}

	if !Contains(canonicalRoot, resolved) {
		return "", store.PathEscapeError{Root: root, Relative: relative}
	}

	return resolved, nil
}

// UserRoot resolves the directory of userID directly below base.
// Anything other than a single child of base is rejected.
func UserRoot(base, userID string) (string, error) {
	canonicalBase, err := canonicalize(base)
	if err != nil {
		return "", err
	}

	root, err := Resolve(canonicalBase, userID)
	if err != nil {
		return "", err
	}

	if filepath.Dir(root) != canonicalBase {
		return "", store.PathEscapeError{Root: base, Relative: userID}
	}

	return root, nil
}

// Contains reports whether path equals root or lies below it.
// Both arguments must already be clean absolute paths.
func Contains(root, path string) bool {
	if path == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}
	return strings.HasPrefix(path, prefix)
}

func normalizeRelative(relative string) string {
	relative = strings.ReplaceAll(relative, "\\", "/")

	segments := strings.Split(relative, "/")
	kept := segments[:0]
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		kept = append(kept, segment)
	}
	return strings.Join(kept, string(os.PathSeparator))
}

// canonicalize returns the absolute form of path with every symlink in its
// longest existing prefix evaluated.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	existing := abs
	var missing []string
	for {
		resolved, err := filepath.EvalSymlinks(existing)
		if err == nil {
			return filepath.Join(append([]string{resolved}, missing...)...), nil
		}

		// An entry that exists but cannot be evaluated is a dangling or looping symlink.
		if _, lstatErr := os.Lstat(existing); lstatErr == nil {
			return "", err
		}

		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		missing = append([]string{filepath.Base(existing)}, missing...)
		existing = parent
	}
}
