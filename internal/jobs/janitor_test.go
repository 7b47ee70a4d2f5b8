package jobs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeAgedFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	mtime := time.Now().Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("aging %s: %v", name, err)
	}
	return path
}

func TestSweepDeletesOnlyExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	old := writeAgedFile(t, dir, "video_1700000000_abc.mp4", 301*time.Second)
	fresh := writeAgedFile(t, dir, "audio_1700000001_def.mp3", 299*time.Second)

	j := NewJanitor(dir, 300*time.Second, time.Minute)
	j.sweep()

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Errorf("file aged 301s survived a 300s retention sweep")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("file aged 299s was deleted: %v", err)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeAgedFile(t, dir, "video_1_a.mp4", time.Hour)
	fresh := writeAgedFile(t, dir, "video_2_b.mp4", time.Minute)

	j := NewJanitor(dir, 300*time.Second, time.Minute)
	j.sweep()
	j.sweep()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 surviving file, got %d", len(entries))
	}
	if filepath.Join(dir, entries[0].Name()) != fresh {
		t.Errorf("wrong survivor: %s", entries[0].Name())
	}
}

func TestSweepSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "keep")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	mtime := time.Now().Add(-time.Hour)
	os.Chtimes(sub, mtime, mtime)

	j := NewJanitor(dir, 300*time.Second, time.Minute)
	j.sweep()

	if _, err := os.Stat(sub); err != nil {
		t.Errorf("sweep removed a directory: %v", err)
	}
}

func TestSweepToleratesMissingDir(t *testing.T) {
	j := NewJanitor(filepath.Join(t.TempDir(), "nope"), 300*time.Second, time.Minute)
	j.sweep() // must not panic
}
