package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// FileStorage writes converted documents below a base directory
type FileStorage interface {
	// Save writes content to name inside the base directory and returns the full path
	Save(name string, content []byte) (string, error)

	// SaveFile writes content to fullPath, creating parent directories if needed
	SaveFile(fullPath string, content []byte) error

	// ValidatePath checks that fullPath stays inside the base directory
	ValidatePath(fullPath string) error
}

// LocalFileStorage implements FileStorage on the local filesystem
type LocalFileStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalFileStorage creates a LocalFileStorage rooted at baseDir
func NewLocalFileStorage(baseDir string, logger *zap.Logger) *LocalFileStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalFileStorage{
		baseDir: baseDir,
		logger:  logger,
	}
}

// BaseDir returns the directory files are written under
func (s *LocalFileStorage) BaseDir() string {
	return s.baseDir
}

// Save writes content to name inside the base directory
func (s *LocalFileStorage) Save(name string, content []byte) (string, error) {
	fullPath := filepath.Join(s.baseDir, name)
	if err := s.SaveFile(fullPath, content); err != nil {
		return "", err
	}
	return fullPath, nil
}

// SaveFile writes content to fullPath. An existing file is replaced.
func (s *LocalFileStorage) SaveFile(fullPath string, content []byte) error {
	if err := s.ValidatePath(fullPath); err != nil {
		return err
	}

	parentDir := filepath.Dir(fullPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		s.logger.Error("Failed to create parent directories",
			zap.String("path", parentDir),
			zap.Error(err))
		return fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write file",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("File saved",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))
	return nil
}

// ValidatePath checks that fullPath is strictly inside the base directory
func (s *LocalFileStorage) ValidatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}
	return nil
}
