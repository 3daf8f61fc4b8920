package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps uploaded photos and generated revisions on local disk,
// one directory per content hash. Paths are always derived from the hash
// and a fixed revision title, never from client input.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir failed: %w", err)
	}
	return &FileStore{root: root}, nil
}

// SaveOriginal writes the uploaded bytes under the content hash.
func (s *FileStore) SaveOriginal(contentHash string, ext string, data []byte) (string, error) {
	return s.save(contentHash, "original"+normalizeExt(ext), data)
}

// SaveRevision writes one edited revision next to the original.
func (s *FileStore) SaveRevision(contentHash, title string, data []byte) (string, error) {
	return s.save(contentHash, sanitizeTitle(title)+".jpg", data)
}

// Read loads a previously stored file. The path must resolve inside the
// store root.
func (s *FileStore) Read(path string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve stored path failed: %w", err)
	}
	rootAbs, err := filepath.Abs(s.root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root failed: %w", err)
	}
	if !strings.HasPrefix(abs, rootAbs+string(filepath.Separator)) {
		return nil, fmt.Errorf("path outside storage root")
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read stored file failed: %w", err)
	}
	return data, nil
}

func (s *FileStore) save(contentHash, name string, data []byte) (string, error) {
	if contentHash == "" {
		return "", fmt.Errorf("empty content hash")
	}
	dir := filepath.Join(s.root, contentHash)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create photo dir failed: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write stored file failed: %w", err)
	}
	return path, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif", ".tif", ".tiff":
		return ext
	default:
		return ".jpg"
	}
}

func sanitizeTitle(title string) string {
	title = strings.ToLower(strings.TrimSpace(title))
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "revision"
	}
	return b.String()
}
