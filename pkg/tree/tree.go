// Package tree serializes a directory into a models.DirectoryTree.
package tree

import (
	"os"
	"path/filepath"

	"mycloud/pkg/log"
	"mycloud/pkg/models"
	"mycloud/pkg/sandbox"
)

// Build returns the directory tree rooted at root.
//
// Real directories are recursed into; regular files become FileNodes. Symlinks,
// special files, in-flight upload files and entries that fail to stat are skipped. A missing or
// unreadable root yields an empty tree.
func Build(root string) *models.DirectoryTree {
	tree := models.NewDirectoryTree()

	entries, err := os.ReadDir(root)
	if err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Str("path", root).Msg("Partial directory read")
	}

	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())

		switch {
		case entry.IsDir():
			tree.Subdirectories[entry.Name()] = Build(path)
		case entry.Type().IsRegular() && !sandbox.IsTempName(entry.Name()):
			info, err := entry.Info()
			if err != nil {
				log.Debug().Err(err).Str("path", path).Msg("Skipping entry")
				continue
			}
			tree.Files = append(tree.Files, models.FileNode{
				Name:         entry.Name(),
				Size:         info.Size(),
				LastModified: info.ModTime().Unix(),
			})
		}
	}

	return tree
}
