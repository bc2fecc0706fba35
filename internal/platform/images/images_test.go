package images

import (
	"bytes"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func jpegBytes(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 20, 10)), nil); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return &buf
}

func TestResizeStoresJPEG(t *testing.T) {
	dir := t.TempDir()
	rz := NewResizer(dir)

	stored, err := rz.Resize(jpegBytes(t), 8, 8, "user-1-1.jpeg")
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if stored != "user-1-1.jpeg" {
		t.Errorf("stored = %q", stored)
	}

	f, err := os.Open(filepath.Join(dir, stored))
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil || format != "jpeg" {
		t.Fatalf("stored file not a jpeg: format=%q err=%v", format, err)
	}
	if cfg.Width != 8 || cfg.Height != 8 {
		t.Errorf("stored size = %dx%d, want 8x8", cfg.Width, cfg.Height)
	}
}

func TestResizeRejectsNonImageWithoutWriting(t *testing.T) {
	dir := t.TempDir()
	rz := NewResizer(dir)

	if _, err := rz.Resize(strings.NewReader("definitely not pixels"), 8, 8, "user-1-1.jpeg"); err == nil {
		t.Fatal("non-image body accepted")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("failed resize left %d file(s) on disk", len(entries))
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	rz := NewResizer(dir)

	stored, err := rz.Resize(jpegBytes(t), 8, 8, "user-1-1.jpeg")
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if err := rz.Remove(stored); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, stored)); !os.IsNotExist(err) {
		t.Error("file still present after Remove")
	}

	if err := rz.Remove(""); err != nil {
		t.Errorf("Remove of empty name should be a no-op, got %v", err)
	}
}
