package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStorage keeps images as JPEG files under one base directory, named
// by fresh UUIDs.
type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (ls *LocalStorage) SaveImage(data []byte) (string, error) {
	name := fmt.Sprintf("%s.jpg", uuid.New().String())
	fullPath := filepath.Join(ls.basePath, name)

	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	return name, nil
}

func (ls *LocalStorage) OpenImage(name string) (io.ReadSeekCloser, error) {
	cleanName := filepath.Clean(name)
	if strings.Contains(cleanName, "..") {
		return nil, fmt.Errorf("invalid image name")
	}

	file, err := os.Open(filepath.Join(ls.basePath, cleanName))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	return file, nil
}

func (ls *LocalStorage) DeleteImage(name string) error {
	cleanName := filepath.Clean(name)
	if strings.Contains(cleanName, "..") {
		return fmt.Errorf("invalid image name")
	}

	if err := os.Remove(filepath.Join(ls.basePath, cleanName)); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	return nil
}
