package models

import "io"

// Namespace selects one of a user's two storage roots.
type Namespace string

const (
	NamespaceFiles   Namespace = "files"
	NamespaceGallery Namespace = "gallery"
)

// FileNode represents a regular file inside a listing.
type FileNode struct {
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	LastModified int64  `json:"lastModified"` // Unix seconds
}

// Payload is a single file part of an upload request.
// Size must be the exact number of bytes Content yields.
type Payload struct {
	Name    string
	Size    int64
	Content io.Reader
}
