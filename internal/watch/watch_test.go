package watch

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/phobologic/deptrack/internal/logging"
)

const delay = 50 * time.Millisecond

func newWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	w, err := New(root, delay, logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

// waitFor reads batches until one contains want, writing poke before each
// wait so events missed while a watch was being registered are repeated.
func waitFor(t *testing.T, w *Watcher, want string, poke func()) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		if poke != nil {
			poke()
		}
		select {
		case batch, ok := <-w.Events():
			if !ok {
				t.Fatal("events channel closed")
			}
			if slices.Contains(batch, want) {
				return
			}
		case <-time.After(time.Second):
		case <-deadline:
			t.Fatalf("no batch containing %s", want)
		}
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSourceChangeBatched(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w := newWatcher(t, root)

	path := filepath.Join(root, "a.ts")
	write(t, path, "export const a = 1;\n")
	write(t, path, "export const a = 2;\n")

	select {
	case batch := <-w.Events():
		if len(batch) != 1 || batch[0] != path {
			t.Errorf("batch = %v, want [%s]", batch, path)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for batch")
	}
}

func TestIrrelevantFilesIgnored(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w := newWatcher(t, root)

	write(t, filepath.Join(root, "notes.txt"), "x")
	src := filepath.Join(root, "b.tsx")
	write(t, src, "export const b = 1;\n")

	select {
	case batch := <-w.Events():
		if slices.Contains(batch, filepath.Join(root, "notes.txt")) {
			t.Errorf("batch contains irrelevant file: %v", batch)
		}
		if !slices.Contains(batch, src) {
			t.Errorf("batch = %v, want %s", batch, src)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for batch")
	}
}

func TestNewDirectoryWatched(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w := newWatcher(t, root)

	dir := filepath.Join(root, "src")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "c.ts")
	waitFor(t, w, path, func() { write(t, path, "export {};\n") })
}

func TestSkippedDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	nm := filepath.Join(root, "node_modules")
	if err := os.Mkdir(nm, 0o755); err != nil {
		t.Fatal(err)
	}
	w := newWatcher(t, root)
	if w.isWatched(nm) {
		t.Error("node_modules should not be watched")
	}
	if !w.isWatched(root) {
		t.Error("root should be watched")
	}
}

func TestRelevant(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{"/p/src/a.ts", true},
		{"/p/src/a.d.ts", true},
		{"/p/src/a.jsx", true},
		{"/p/package.json", true},
		{"/p/.deptrack.yaml", true},
		{"/p/.deptrack/ignore.toml", true},
		{"/p/.deptrack/other.txt", false},
		{"/p/README.md", false},
		{"/p/a.go", false},
	}
	for _, tt := range tests {
		if got := relevant(tt.path); got != tt.want {
			t.Errorf("relevant(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestCloseClosesEvents(t *testing.T) {
	t.Parallel()

	w, err := New(t.TempDir(), delay, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-w.Events(); ok {
		t.Error("events channel should be closed")
	}
}

func TestNewMissingRoot(t *testing.T) {
	t.Parallel()

	if _, err := New(filepath.Join(t.TempDir(), "missing"), delay, logging.Discard()); err == nil {
		t.Fatal("expected error for missing root")
	}
}
