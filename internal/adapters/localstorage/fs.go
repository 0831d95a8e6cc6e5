package localstorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage implements ports.Storage for the local filesystem.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

// Init creates the output directory.
func (s *LocalStorage) Init(ctx context.Context) error {
	if err := os.MkdirAll(s.BaseDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", s.BaseDir, err)
	}
	return nil
}

// SaveFile writes a binary artifact under the output directory and returns
// its path. Path separators in filename are flattened so artifacts cannot
// escape the directory.
func (s *LocalStorage) SaveFile(ctx context.Context, filename string, r io.Reader) (string, error) {
	path := filepath.Join(s.BaseDir, sanitize(filename))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return path, nil
}

// SaveText writes a text artifact and returns its path.
func (s *LocalStorage) SaveText(ctx context.Context, filename, content string) (string, error) {
	path := filepath.Join(s.BaseDir, sanitize(filename))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", filename, err)
	}
	return path, nil
}

func sanitize(filename string) string {
	filename = filepath.Base(filename)
	filename = strings.ReplaceAll(filename, string(os.PathSeparator), "_")
	if filename == "" || filename == "." || filename == ".." {
		filename = "artifact"
	}
	return filename
}
