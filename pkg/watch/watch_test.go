package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "requirement.txt")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	changes := make(chan string, 10)
	w, err := New(path, 20*time.Millisecond, func(content string) { changes <- content })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	expect := func(want string) {
		t.Helper()
		select {
		case got := <-changes:
			if got != want {
				t.Errorf("content = %q, want %q", got, want)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
	expectNone := func() {
		t.Helper()
		select {
		case got := <-changes:
			t.Errorf("unexpected change %q", got)
		case <-time.After(200 * time.Millisecond):
		}
	}

	if err := os.WriteFile(path, []byte("draw a login flow\n"), 0644); err != nil {
		t.Fatal(err)
	}
	expect("draw a login flow")

	// Same content after trimming is not reported again.
	if err := os.WriteFile(path, []byte("  draw a login flow  "), 0644); err != nil {
		t.Fatal(err)
	}
	expectNone()

	// Other files in the directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("noise"), 0644); err != nil {
		t.Fatal(err)
	}
	expectNone()

	// Save by rename, as many editors do.
	tmp := filepath.Join(dir, ".requirement.swp")
	if err := os.WriteFile(tmp, []byte("draw a logout flow"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	expect("draw a logout flow")
}
