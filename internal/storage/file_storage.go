package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/welldanyogia/webrana-replypilot/internal/validator"
)

// Storage errors
var (
	ErrPathTraversal = errors.New("path traversal detected")
	ErrFileNotFound  = errors.New("file not found")
	ErrFileTooLarge  = errors.New("message exceeds size limit")
)

// MaxMessageSize is the largest raw message the archive accepts (25 MB)
const MaxMessageSize = 25 * 1024 * 1024

const uncategorized = "uncategorized"

// Archive stores the raw MIME of every sent message
type Archive interface {
	Save(campaign, trackingID string, raw []byte) (string, error)
	Get(filePath string) (io.ReadCloser, error)
	Delete(filePath string) error
}

// localArchive implements Archive on the local filesystem
type localArchive struct {
	basePath string
	now      func() time.Time
}

// NewLocalArchive creates a new localArchive rooted at basePath
func NewLocalArchive(basePath string) (Archive, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &localArchive{basePath: basePath, now: time.Now}, nil
}

// validatePath ensures path is within basePath (prevents traversal)
func (s *localArchive) validatePath(filePath string) (string, error) {
	cleanPath := filepath.Clean(filePath)

	if filepath.IsAbs(cleanPath) {
		return "", ErrPathTraversal
	}
	if strings.Contains(cleanPath, "..") {
		return "", ErrPathTraversal
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, cleanPath))
	if err != nil {
		return "", fmt.Errorf("invalid file path: %w", err)
	}
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return "", ErrPathTraversal
	}
	return absPath, nil
}

// Save writes raw to {campaign}/{yyyy-mm}/{trackingID}.eml and returns the
// relative path. An empty tracking id gets a random name.
func (s *localArchive) Save(campaign, trackingID string, raw []byte) (string, error) {
	if len(raw) > MaxMessageSize {
		return "", ErrFileTooLarge
	}

	dir := validator.SanitizeFilename(campaign)
	if dir == "" || dir == "unnamed" {
		dir = uncategorized
	}

	name := validator.SanitizeFilename(trackingID)
	if trackingID == "" || name == "unnamed" {
		name = uuid.New().String()
	}

	relPath := filepath.Join(dir, s.now().UTC().Format("2006-01"), name+".eml")
	fullPath, err := s.validatePath(relPath)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	if err := os.WriteFile(fullPath, raw, 0644); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to write message: %w", err)
	}

	return relPath, nil
}

// Get opens an archived message by its relative path
func (s *localArchive) Get(filePath string) (io.ReadCloser, error) {
	fullPath, err := s.validatePath(filePath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes an archived message. A missing file is not an error.
func (s *localArchive) Delete(filePath string) error {
	fullPath, err := s.validatePath(filePath)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
