package store

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func newTestFiles(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return fs
}

func putFile(t *testing.T, fs *FileStore, thread, name string, data []byte) {
	t.Helper()
	f, err := fs.Create(thread, name)
	if err != nil {
		t.Fatalf("Create %s/%s: %v", thread, name, err)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatalf("write %s/%s: %v", thread, name, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close %s/%s: %v", thread, name, err)
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	fs := newTestFiles(t)
	data := []byte("may the force be with you\x00\x01\x02")
	putFile(t, fs, "Cantina", "holo.bin", data)

	if !fs.Exists("Cantina", "holo.bin") {
		t.Fatal("Exists = false after upload")
	}
	f, size, err := fs.Open("Cantina", "holo.bin")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	if size != int64(len(data)) {
		t.Errorf("size = %d, want %d", size, len(data))
	}
	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("stored bytes differ from uploaded bytes")
	}
}

func TestFileStore_OpenMissing(t *testing.T) {
	fs := newTestFiles(t)
	if _, _, err := fs.Open("Cantina", "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFileStore_RejectsPathEscapes(t *testing.T) {
	fs := newTestFiles(t)
	if _, err := fs.Create("Cantina", "../escape"); !errors.Is(err, ErrBadName) {
		t.Errorf("Create err = %v, want ErrBadName", err)
	}
	if _, err := fs.Create("../Cantina", "ok"); !errors.Is(err, ErrBadName) {
		t.Errorf("Create err = %v, want ErrBadName", err)
	}
}

func TestFileStore_Purge(t *testing.T) {
	fs := newTestFiles(t)
	putFile(t, fs, "Cantina", "a.txt", []byte("a"))
	putFile(t, fs, "Cantina", "b.txt", []byte("b"))
	putFile(t, fs, "Other", "keep.txt", []byte("keep"))

	if err := fs.Purge("Cantina"); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if fs.Exists("Cantina", "a.txt") || fs.Exists("Cantina", "b.txt") {
		t.Error("purged files still exist")
	}
	if !fs.Exists("Other", "keep.txt") {
		t.Error("Purge touched another thread's files")
	}

	// Purging a thread with no uploads is a no-op.
	if err := fs.Purge("Empty"); err != nil {
		t.Errorf("Purge of empty namespace: %v", err)
	}
}
