// Package usage measures disk usage of user storage roots.
package usage

import (
	"io/fs"
	"os"
	"path/filepath"

	"mycloud/pkg/sandbox"
)

// Measure returns the total size in bytes of the regular files below root.
//
// Symlinks and in-flight upload files are not counted. Entries that cannot be
// read or stat'ed are skipped and contribute nothing, so the result may
// undercount but never fails. A nonexistent root measures 0.
func Measure(root string) int64 {
	if _, err := os.Lstat(root); err != nil {
		return 0
	}

	var total int64
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.Type().IsRegular() || sandbox.IsTempName(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})

	return total
}

// MeasureAll returns the sum of Measure over roots.
func MeasureAll(roots ...string) int64 {
	var total int64
	for _, root := range roots {
		total += Measure(root)
	}
	return total
}
