package filestorage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LocalStorage keeps photos in one flat directory on local disk.
type LocalStorage struct {
	basePath    string
	uniqueNames bool
	logger      zerolog.Logger
}

// NewLocalStorage creates a new LocalStorage rooted at basePath, creating the
// directory if needed. With uniqueNames set every stored name gets a UUID
// prefix, otherwise an upload replaces any file with the same sanitized name.
func NewLocalStorage(basePath string, uniqueNames bool, logger zerolog.Logger) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Bool("uniqueNames", uniqueNames).Msg("Local storage directory ensured")

	return &LocalStorage{
		basePath:    basePath,
		uniqueNames: uniqueNames,
		logger:      logger,
	}, nil
}

// SaveFile saves an uploaded file under its sanitized name
func (ls *LocalStorage) SaveFile(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader == nil {
		return "", ErrInvalidFilename
	}

	filename := SanitizeFilename(fileHeader.Filename)
	if filename == "" {
		return "", ErrInvalidFilename
	}
	if ls.uniqueNames {
		filename = uuid.New().String() + "_" + filename
	}

	file, err := fileHeader.Open()
	if err != nil {
		ls.logger.Error().Err(err).Str("filename", fileHeader.Filename).Msg("Failed to open uploaded file")
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	dstPath := filepath.Join(ls.basePath, filename)

	dst, err := os.Create(dstPath)
	if err != nil {
		ls.logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}

	if _, err = io.Copy(dst, file); err != nil {
		_ = dst.Close()
		_ = os.Remove(dstPath)
		ls.logger.Error().Err(err).Str("path", dstPath).Msg("Failed to copy uploaded file content")
		return "", fmt.Errorf("failed to save file content: %w", err)
	}

	if err := dst.Close(); err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to flush file: %w", err)
	}

	ls.logger.Info().Str("filename", fileHeader.Filename).Str("saved_as", filename).Msg("File saved successfully")
	return filename, nil
}

// DeleteFile removes a stored file. Unlike an idempotent delete, a missing
// file is reported so the caller can surface it as a warning.
func (ls *LocalStorage) DeleteFile(name string) error {
	physicalPath := ls.GetFullPath(name)
	if physicalPath == "" {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}

	if err := os.Remove(physicalPath); err != nil {
		ls.logger.Warn().Err(err).Str("path", physicalPath).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}

	ls.logger.Info().Str("path", physicalPath).Msg("File deleted successfully")
	return nil
}

// GetFullPath returns the full filesystem path for a stored name. Only the
// base name is used so stored values cannot escape the directory.
func (ls *LocalStorage) GetFullPath(name string) string {
	filename := filepath.Base(name)
	if filename == "" || filename == "." || filename == ".." || filename == string(filepath.Separator) {
		return ""
	}
	return filepath.Join(ls.basePath, filename)
}
