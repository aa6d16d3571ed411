package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, func(string) {}); err == nil {
		t.Error("New() should reject an empty file list")
	}
	if _, err := New([]string{"requirements.txt"}, nil); err == nil {
		t.Error("New() should reject a nil callback")
	}
}

func TestWatcherFiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "requirements.txt")
	if err := os.WriteFile(file, []byte("requests==2.26.0\n"), 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	changes := make(chan string, 1)
	w, err := New([]string{file}, func(path string) {
		select {
		case changes <- path:
		default:
		}
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	w.debounce = 50 * time.Millisecond
	w.Start()
	defer w.Stop()

	if err := os.WriteFile(file, []byte("requests==2.31.0\n"), 0644); err != nil {
		t.Fatalf("failed to modify file: %v", err)
	}

	select {
	case path := <-changes:
		if filepath.Base(path) != "requirements.txt" {
			t.Errorf("callback path = %q", path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change callback within timeout")
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "requirements.txt")
	sibling := filepath.Join(dir, "notes.txt")
	for _, f := range []string{watched, sibling} {
		if err := os.WriteFile(f, []byte("x\n"), 0644); err != nil {
			t.Fatalf("failed to create %s: %v", f, err)
		}
	}

	changes := make(chan string, 1)
	w, err := New([]string{watched}, func(path string) {
		select {
		case changes <- path:
		default:
		}
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	w.debounce = 50 * time.Millisecond
	w.Start()
	defer w.Stop()

	if err := os.WriteFile(sibling, []byte("y\n"), 0644); err != nil {
		t.Fatalf("failed to modify sibling: %v", err)
	}

	select {
	case path := <-changes:
		t.Errorf("callback fired for unwatched file %q", path)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "requirements.txt")
	if err := os.WriteFile(file, []byte("a\n"), 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	var fired atomic.Int32
	done := make(chan struct{}, 8)
	w, err := New([]string{file}, func(string) {
		fired.Add(1)
		done <- struct{}{}
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	w.debounce = 200 * time.Millisecond
	w.Start()
	defer w.Stop()

	// A burst of writes inside one debounce window.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(file, []byte("b\n"), 0644); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("no callback after burst")
	}

	// Allow a straggler window, then confirm the burst coalesced.
	time.Sleep(400 * time.Millisecond)
	if n := fired.Load(); n > 2 {
		t.Errorf("callback fired %d times for one burst, want 1 (2 tolerated)", n)
	}
}

func TestStopIsClean(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "requirements.txt")
	if err := os.WriteFile(file, []byte("x\n"), 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	w, err := New([]string{file}, func(string) {})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	w.Start()

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() returned %v", err)
	}
}
