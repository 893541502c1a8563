// Package filestore tracks uploaded file metadata and enforces the storage
// quota. Quota is measured in whole gigabytes rounded up from the school's
// total byte count, so an upload is charged only when it pushes usage across
// a gigabyte boundary.
package filestore

import (
	"errors"
	"time"
)

// Errors
var (
	ErrFileNotFound  = errors.New("filestore: file not found")
	ErrLimitExceeded = errors.New("filestore: storage limit exceeded")
	ErrEmptyFile     = errors.New("filestore: file size must be positive")
)

// File is the metadata record for one stored object. Blob bytes live in
// object storage; the engine only needs sizes.
type File struct {
	ID          string    `json:"id"`
	SchoolID    string    `json:"schoolId"`
	Name        string    `json:"name"`
	SizeBytes   uint64    `json:"sizeBytes"`
	ContentType string    `json:"contentType,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
