package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestMemoryFileSystem(t *testing.T) {
	m := NewMemoryFileSystem()

	if _, err := m.Create("renders/a.html"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Create without parent: got %v, want ErrNotExist", err)
	}

	if err := m.MkdirAll("renders/2018", 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	w, err := m.Create("renders/a.html")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	w.Write([]byte("<html>"))

	// not visible until closed
	if _, err := m.ReadFile("renders/a.html"); err == nil {
		t.Error("file visible before Close")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := m.ReadFile("renders/./a.html")
	if err != nil || string(data) != "<html>" {
		t.Errorf("ReadFile = %q, %v", data, err)
	}
	if got := m.Files(); len(got) != 1 || got[0] != filepath.Clean("renders/a.html") {
		t.Errorf("Files() = %v", got)
	}

	if err := m.Remove("renders/a.html"); err != nil {
		t.Errorf("Remove: %v", err)
	}
	if err := m.Remove("renders/a.html"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("second Remove: got %v", err)
	}
}

func TestOSFileSystem(t *testing.T) {
	var fsys FileSystem = OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "out", "nested")

	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	path := filepath.Join(dir, "x.txt")
	w, err := fsys.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	w.Write([]byte("hello"))
	w.Close()

	data, err := fsys.ReadFile(path)
	if err != nil || string(data) != "hello" {
		t.Errorf("ReadFile = %q, %v", data, err)
	}
	if err := fsys.Remove(path); err != nil {
		t.Errorf("Remove: %v", err)
	}
}
