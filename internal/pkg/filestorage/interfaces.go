package filestorage

import (
	"errors"
	"mime/multipart"
)

// ErrInvalidFilename is returned when nothing usable is left of an upload name
var ErrInvalidFilename = errors.New("invalid file name")

// FileStorage defines the photo storage operations used by the student service
type FileStorage interface {
	// SaveFile stores the upload and returns the name it was stored under,
	// relative to the storage root
	SaveFile(fileHeader *multipart.FileHeader) (string, error)

	// DeleteFile removes a stored file; a missing file is an error
	DeleteFile(name string) error

	// GetFullPath returns the filesystem path for a stored name
	GetFullPath(name string) string
}
