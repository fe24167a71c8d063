// Package storage stores uploaded files, like product images, behind a
// small disk abstraction.
//
// Two drivers are available:
//   - "local"  — local filesystem (default)
//   - "s3"     — S3-compatible object storage (AWS S3, MinIO, R2, Spaces)
//
// Quick start:
//
//	// boot once (e.g. in internal/server/server.go):
//	storage.Connect()
//
//	storage.PutStream("products/1/photo.jpg", file)
//	url := storage.URL("products/1/photo.jpg")
package storage

import "io"

// Disk is the driver interface shared by the local and s3 backends.
type Disk interface {
	// PutStream writes from r to path, creating parents as needed.
	PutStream(path string, r io.Reader) error

	// Get returns the full content of the file at path.
	Get(path string) ([]byte, error)

	// Exists reports whether a file exists at path.
	Exists(path string) bool

	// Delete removes a file. Returns nil if the file did not exist.
	Delete(path string) error

	// URL returns the public URL for path.
	URL(path string) string
}
