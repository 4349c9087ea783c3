package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
)

// FileStore keeps uploaded files in one subdirectory per thread, so removing
// a thread can purge its whole upload namespace in one pass.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("store: create upload dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (fs *FileStore) path(thread, filename string) (string, error) {
	if !validName(thread) || !validName(filename) {
		return "", fmt.Errorf("%w: %q/%q", ErrBadName, thread, filename)
	}
	return filepath.Join(fs.dir, thread, filename), nil
}

// Create opens a fresh file for an incoming upload, truncating any previous
// upload with the same name. The caller streams into it and closes it.
func (fs *FileStore) Create(thread, filename string) (*os.File, error) {
	path, err := fs.path(thread, filename)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("store: create upload dir for %s: %w", thread, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("store: create upload %s/%s: %w", thread, filename, err)
	}
	return f, nil
}

// Open returns the stored file for reading, along with its size in bytes.
func (fs *FileStore) Open(thread, filename string) (*os.File, int64, error) {
	path, err := fs.path(thread, filename)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("%w: %s/%s", ErrNotFound, thread, filename)
		}
		return nil, 0, fmt.Errorf("store: open upload %s/%s: %w", thread, filename, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("store: stat upload %s/%s: %w", thread, filename, err)
	}
	return f, info.Size(), nil
}

// Exists reports whether the thread has a stored file with this name.
func (fs *FileStore) Exists(thread, filename string) bool {
	path, err := fs.path(thread, filename)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Purge removes every file uploaded to the thread. Removal keeps going past
// individual failures and reports them all together.
func (fs *FileStore) Purge(thread string) error {
	if !validName(thread) {
		return fmt.Errorf("%w: %q", ErrBadName, thread)
	}
	dir := filepath.Join(fs.dir, thread)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("store: purge %s: %w", thread, err)
	}

	var errs *multierror.Error
	for _, e := range entries {
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := os.Remove(dir); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}
