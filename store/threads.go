// Package store persists forum state as flat files: one line-oriented file
// per thread, and one directory per thread for uploaded files.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrExists reports a create for a thread title already on disk.
	ErrExists = errors.New("store: thread already exists")
	// ErrNotFound reports an operation on a thread that is not on disk.
	ErrNotFound = errors.New("store: thread not found")
	// ErrBadName reports a thread title or filename the store refuses to
	// map to a path.
	ErrBadName = errors.New("store: invalid name")
)

// ThreadStore keeps one file per thread under dir. Line 0 of a thread file
// names its creator; subsequent lines are messages ("<n> <user>: <body>")
// and upload records ("<user> uploaded <file>"). A per-title mutex
// serializes read-modify-write cycles from concurrent sessions.
type ThreadStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewThreadStore returns a store rooted at dir, creating it if needed.
func NewThreadStore(dir string) (*ThreadStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("store: create thread dir: %w", err)
	}
	return &ThreadStore{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// lock returns the mutex guarding title's file, creating it on first use.
func (ts *ThreadStore) lock(title string) *sync.Mutex {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	l, ok := ts.locks[title]
	if !ok {
		l = &sync.Mutex{}
		ts.locks[title] = l
	}
	return l
}

func (ts *ThreadStore) path(title string) (string, error) {
	if !validName(title) {
		return "", fmt.Errorf("%w: %q", ErrBadName, title)
	}
	return filepath.Join(ts.dir, title), nil
}

// validName accepts single-token names that map to exactly one file inside
// the store directory.
func validName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, "/\\ \t\n")
}

// Exists reports whether a thread with this title is on disk.
func (ts *ThreadStore) Exists(title string) bool {
	path, err := ts.path(title)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Create writes a new thread file holding only the creator header line.
// It returns ErrExists if the title is taken.
func (ts *ThreadStore) Create(title, creator string) error {
	path, err := ts.path(title)
	if err != nil {
		return err
	}
	l := ts.lock(title)
	l.Lock()
	defer l.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return ErrExists
		}
		return fmt.Errorf("store: create thread %s: %w", title, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, creator); err != nil {
		return fmt.Errorf("store: write thread %s: %w", title, err)
	}
	return nil
}

// Titles lists every thread on disk, sorted.
func (ts *ThreadStore) Titles() ([]string, error) {
	entries, err := os.ReadDir(ts.dir)
	if err != nil {
		return nil, fmt.Errorf("store: list threads: %w", err)
	}
	var titles []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		titles = append(titles, e.Name())
	}
	sort.Strings(titles)
	return titles, nil
}

// ReadLines returns the thread file's lines, creator header included.
func (ts *ThreadStore) ReadLines(title string) ([]string, error) {
	path, err := ts.path(title)
	if err != nil {
		return nil, err
	}
	l := ts.lock(title)
	l.Lock()
	defer l.Unlock()
	return readLines(path, title)
}

func readLines(path, title string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, title)
		}
		return nil, fmt.Errorf("store: read thread %s: %w", title, err)
	}
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

// AppendLine adds one line to the end of the thread file.
func (ts *ThreadStore) AppendLine(title, line string) error {
	path, err := ts.path(title)
	if err != nil {
		return err
	}
	l := ts.lock(title)
	l.Lock()
	defer l.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, title)
		}
		return fmt.Errorf("store: append thread %s: %w", title, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("store: append thread %s: %w", title, err)
	}
	return nil
}

// Update runs one atomic read-modify-write cycle: fn receives the thread's
// lines and returns the replacement plus whether to write it back. The
// per-title lock is held for the whole cycle.
func (ts *ThreadStore) Update(title string, fn func(lines []string) ([]string, bool)) error {
	path, err := ts.path(title)
	if err != nil {
		return err
	}
	l := ts.lock(title)
	l.Lock()
	defer l.Unlock()

	lines, err := readLines(path, title)
	if err != nil {
		return err
	}
	updated, write := fn(lines)
	if !write {
		return nil
	}
	var sb strings.Builder
	for _, line := range updated {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("store: write thread %s: %w", title, err)
	}
	return nil
}

// Remove deletes the thread file.
func (ts *ThreadStore) Remove(title string) error {
	path, err := ts.path(title)
	if err != nil {
		return err
	}
	l := ts.lock(title)
	l.Lock()
	defer l.Unlock()

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, title)
		}
		return fmt.Errorf("store: remove thread %s: %w", title, err)
	}
	return nil
}
