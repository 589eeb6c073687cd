// Package storage uploads profile images and documents to an S3-compatible
// object store and validates files before they are sent.
package storage

import (
	"context"
	"fmt"
	"slices"

	"github.com/prudhvinik1/medsync/internal/xerrors"
)

const mb = 1024 * 1024

// File is an uploaded file held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

func (f File) Size() int64 {
	return int64(len(f.Data))
}

type Policy struct {
	Folder       string
	AllowedTypes []string
	MaxBytes     int64
}

var AvatarPolicy = Policy{
	Folder:       "profiles",
	AllowedTypes: []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp"},
	MaxBytes:     5 * mb,
}

var DocumentPolicy = Policy{
	Folder: "documents",
	AllowedTypes: []string{
		"application/pdf",
		"image/jpeg",
		"image/jpg",
		"image/png",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	},
	MaxBytes: 10 * mb,
}

// ObjectStore is the blob storage the profile orchestrator compensates against.
type ObjectStore interface {
	// Upload stores the file under destination and returns its public URL.
	Upload(ctx context.Context, file File, destination string) (string, error)
	// Delete removes the object behind url. URLs the store does not own are ignored.
	Delete(ctx context.Context, url string) error
}

// Validate checks emptiness, size and content type, in that order.
func Validate(file *File, allowedTypes []string, maxBytes int64) error {
	if file == nil || len(file.Data) == 0 {
		return xerrors.ErrFileEmpty
	}
	if file.Size() > maxBytes {
		return fmt.Errorf("%w of %dMB", xerrors.ErrFileTooLarge, maxBytes/mb)
	}
	if file.ContentType == "" || !slices.Contains(allowedTypes, file.ContentType) {
		return fmt.Errorf("%w, allowed types: %v", xerrors.ErrInvalidFileType, allowedTypes)
	}
	return nil
}
