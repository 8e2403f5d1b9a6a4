// Package storage keeps the original uploaded bytes on disk, keyed by
// document id plus the original extension.
package storage

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"docq/internal/domain"
)

const defaultMaxFileSize = 50 << 20 // 50MB

var allowedExtensions = map[string]struct{}{
	".pdf":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".tiff": {},
	".tif":  {},
	".txt":  {},
}

// FileStore validates and persists uploads under a single directory.
type FileStore struct {
	dir         string
	maxFileSize int64
}

func NewFileStore(dir string, maxFileSize int64) (*FileStore, error) {
	if dir == "" {
		dir = "./data/uploads"
	}
	if maxFileSize <= 0 {
		maxFileSize = defaultMaxFileSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileStore{dir: dir, maxFileSize: maxFileSize}, nil
}

// Save writes the upload to disk as <documentID><ext>. The extension
// whitelist and size limit are enforced here; a rejected file leaves no
// state behind.
func (s *FileStore) Save(originalName string, src io.Reader, documentID string) (*domain.StoredFile, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if _, ok := allowedExtensions[ext]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFileType, ext)
	}

	path := filepath.Join(s.dir, documentID+ext)
	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	// Copy one byte past the limit so oversize uploads are detectable
	// without buffering the whole body.
	written, err := io.Copy(dst, io.LimitReader(src, s.maxFileSize+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write file: %w", err)
	}
	if written > s.maxFileSize {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: limit %d bytes", domain.ErrFileTooLarge, s.maxFileSize)
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return &domain.StoredFile{
		Path:     path,
		Filename: filepath.Base(originalName),
		Size:     written,
		MimeType: mimeType,
	}, nil
}

// Delete removes a stored file. A missing file is not an error.
func (s *FileStore) Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
