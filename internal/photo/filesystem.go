package photo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// PublicPrefix is the URL path local photos are served under.
const PublicPrefix = "/uploads/profile-photos/"

// FilesystemStore keeps photos in a directory served at PublicPrefix.
type FilesystemStore struct {
	dir string
}

func NewFilesystemStore(dir string) (*FilesystemStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FilesystemStore{dir: dir}, nil
}

// Dir is the directory photos are written to.
func (s *FilesystemStore) Dir() string { return s.dir }

func (s *FilesystemStore) Save(_ context.Context, name, _ string, data []byte) (string, error) {
	name = path.Base(name)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write photo: %w", err)
	}
	return PublicPrefix + name, nil
}

// Delete removes the file behind key. A missing file is not an error.
func (s *FilesystemStore) Delete(_ context.Context, key string) error {
	name := path.Base(key)
	if name == "." || name == "/" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove photo: %w", err)
	}
	return nil
}

func (s *FilesystemStore) URL(_ context.Context, baseURL, key string) (string, error) {
	if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return key, nil
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(key, "/"), nil
}
