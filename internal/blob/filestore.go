// Package blob stores uploaded expense documents on the local filesystem.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/logger"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// DefaultMaxSize caps a single document.
const DefaultMaxSize = 10 << 20

var (
	extPattern  = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)
	namePattern = regexp.MustCompile(`^(quote|invoice|receipt)_[0-9a-f-]{36}(\.[a-z0-9]{1,8})?$`)
)

// FileStore writes documents under a single directory with generated names.
type FileStore struct {
	dir     string
	maxSize int
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string, maxSize int) (*FileStore, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &FileStore{dir: dir, maxSize: maxSize}, nil
}

// Save stores data and returns its generated name, <kind>_<uuid><ext>.
// The original name contributes only its extension.
func (s *FileStore) Save(ctx context.Context, kind models.DocumentKind, originalName string, data []byte) (string, error) {
	if !kind.Valid() {
		return "", apperr.Validation("unknown document kind %q", kind)
	}
	if len(data) == 0 {
		return "", apperr.Validation("document is empty")
	}
	if len(data) > s.maxSize {
		return "", apperr.Validation("document exceeds %d bytes", s.maxSize)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if !extPattern.MatchString(ext) {
		ext = ""
	}
	name := string(kind) + "_" + uuid.NewString() + ext

	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close document: %w", err)
	}

	logger.Log.Debug().
		Str("kind", string(kind)).
		Int("bytes", len(data)).
		Msg("Document stored")
	return name, nil
}

// Open returns a stored document. Names that were not produced by Save are
// rejected, so callers cannot reach outside the directory.
func (s *FileStore) Open(name string) (io.ReadCloser, error) {
	if !namePattern.MatchString(name) {
		return nil, apperr.Validation("invalid document name")
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.NotFound("document %s not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	return f, nil
}

// Remove deletes a stored document. Removing a missing document is not an error.
func (s *FileStore) Remove(_ context.Context, name string) error {
	if !namePattern.MatchString(name) {
		return apperr.Validation("invalid document name")
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove document: %w", err)
	}
	return nil
}
