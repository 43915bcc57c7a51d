package models

// DirectoryTree is the recursive listing of a directory.
type DirectoryTree struct {
	Subdirectories map[string]*DirectoryTree `json:"subdirectories"`
	Files          []FileNode                `json:"files"`
}

// NewDirectoryTree returns an empty tree with non-nil collections.
func NewDirectoryTree() *DirectoryTree {
	return &DirectoryTree{
		Subdirectories: make(map[string]*DirectoryTree),
		Files:          []FileNode{},
	}
}

// FileCount returns the number of file entries in the tree, recursively.
func (t *DirectoryTree) FileCount() int {
	if t == nil {
		return 0
	}
	count := len(t.Files)
	for _, sub := range t.Subdirectories {
		count += sub.FileCount()
	}
	return count
}

// TotalSize returns the summed size of all file entries in the tree.
func (t *DirectoryTree) TotalSize() int64 {
	if t == nil {
		return 0
	}
	var total int64
	for _, f := range t.Files {
		total += f.Size
	}
	for _, sub := range t.Subdirectories {
		total += sub.TotalSize()
	}
	return total
}

// File returns the file entry with the given name at this level.
func (t *DirectoryTree) File(name string) (FileNode, bool) {
	if t == nil {
		return FileNode{}, false
	}
	for _, f := range t.Files {
		if f.Name == name {
			return f, true
		}
	}
	return FileNode{}, false
}
