// Package blobstore keeps image payloads in a flat directory addressed by filename.
package blobstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	tempPrefix      = ".upload-"
	maxNameAttempts = 100
)

var (
	ErrNotExist    = errors.New("blob does not exist")
	ErrInvalidName = errors.New("invalid blob name")
	ErrExist       = errors.New("blob already exists")
)

// BlobStore is the storage used for uploaded and derived image files.
// Implementations must be safe for concurrent use.
type BlobStore interface {
	// Put writes the content under name, replacing any previous content, and returns its path.
	Put(name string, content io.Reader) (string, error)
	// CreateUnique writes the content under name, or under a numbered variant
	// of it when name is taken, and returns the name that was used.
	CreateUnique(name string, content io.Reader) (string, error)
	// Open returns the content of name or ErrNotExist.
	Open(name string) (*os.File, error)
	// Delete removes name. A missing blob is not an error.
	Delete(name string) error
	Exists(name string) (bool, error)
	// Path resolves name to its location without touching the filesystem.
	Path(name string) (string, error)
	List() ([]FileInfo, error)
	Root() string
}

type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

type FilesystemBlobStore struct {
	root string
}

func NewFilesystemBlobStore(root string) (*FilesystemBlobStore, error) {
	if root == "" {
		return nil, fmt.Errorf("blob store root must not be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve blob store root %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FilesystemBlobStore{root: abs}, nil
}

func (s *FilesystemBlobStore) Root() string {
	return s.root
}

func (s *FilesystemBlobStore) Path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.root, name), nil
}

// Put writes to a temporary file first and renames it into place, so readers
// never observe a partially written blob, even when name is being overwritten.
func (s *FilesystemBlobStore) Put(name string, content io.Reader) (string, error) {
	path, err := s.Path(name)
	if err != nil {
		return "", err
	}
	size, err := s.write(content, func(tmp string) error {
		return os.Rename(tmp, path)
	})
	if err != nil {
		return "", err
	}
	slog.Debug("blobstore: stored blob", "name", name, "size_bytes", size)
	return path, nil
}

// CreateUnique never replaces an existing blob. The temporary file is hard
// linked to name, then to name-1, name-2 and so on until a link succeeds.
func (s *FilesystemBlobStore) CreateUnique(name string, content io.Reader) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	stored := ""
	size, err := s.write(content, func(tmp string) error {
		for attempt := 0; attempt < maxNameAttempts; attempt++ {
			candidate := numberedName(name, attempt)
			err := os.Link(tmp, filepath.Join(s.root, candidate))
			if errors.Is(err, fs.ErrExist) {
				continue
			}
			if err != nil {
				return err
			}
			stored = candidate
			if err := os.Remove(tmp); err != nil {
				slog.Warn("blobstore: failed to remove temporary file", "path", tmp, "error", err)
			}
			return nil
		}
		return fmt.Errorf("%w: %s and %d numbered variants", ErrExist, name, maxNameAttempts-1)
	})
	if err != nil {
		return "", err
	}
	slog.Debug("blobstore: created blob", "name", stored, "size_bytes", size)
	return stored, nil
}

func numberedName(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n, ext)
}

// write copies content to a temporary file in the root and hands it to place.
// The temporary file is removed if anything fails.
func (s *FilesystemBlobStore) write(content io.Reader, place func(tmp string) error) (size int64, err error) {
	tmp, err := os.CreateTemp(s.root, tempPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			if removeErr := os.Remove(tmp.Name()); removeErr != nil && !os.IsNotExist(removeErr) {
				slog.Warn("blobstore: failed to remove temporary file", "path", tmp.Name(), "error", removeErr)
			}
		}
	}()

	size, err = io.Copy(tmp, content)
	if err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("failed to write data: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err = place(tmp.Name()); err != nil {
		return 0, fmt.Errorf("failed to move blob into place: %w", err)
	}
	return size, nil
}

func (s *FilesystemBlobStore) Open(name string) (*os.File, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, name)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (s *FilesystemBlobStore) Delete(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Clean(path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

func (s *FilesystemBlobStore) Exists(name string) (bool, error) {
	path, err := s.Path(name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// List returns regular files sorted by name, skipping in-flight temporary files.
func (s *FilesystemBlobStore) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob store root: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		files = append(files, FileInfo{
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// ValidateName accepts a single, non-hidden path element.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) ||
		strings.HasPrefix(name, ".") || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
