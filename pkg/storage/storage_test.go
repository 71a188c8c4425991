package storage

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"testing"
)

func TestSaveSessionFileWritesContent(t *testing.T) {
	s, err := NewStorage(t.TempDir(), 1024, 4096)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}

	stored, err := s.SaveSessionFile(strings.NewReader("notes"), "Notes.TXT", "text/plain", 5, "m1")
	if err != nil {
		t.Fatalf("SaveSessionFile: %v", err)
	}
	if !strings.HasSuffix(stored.Path, ".txt") {
		t.Fatalf("extension not normalized: %s", stored.Path)
	}
	if stored.ThumbnailPath != "" {
		t.Fatalf("text file should not get a thumbnail")
	}
	data, err := os.ReadFile(stored.Path)
	if err != nil || string(data) != "notes" {
		t.Fatalf("stored content = %q, %v", data, err)
	}
}

func TestSaveSessionFileLimits(t *testing.T) {
	s, err := NewStorage(t.TempDir(), 8, 12)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}

	if _, err := s.SaveSessionFile(strings.NewReader("123456789"), "a.txt", "text/plain", 9, "m1"); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	// Заявленный размер занижен, но содержимое больше лимита
	if _, err := s.SaveSessionFile(strings.NewReader("123456789"), "a.txt", "text/plain", 1, "m1"); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge for understated size, got %v", err)
	}
	if _, err := s.SaveSessionFile(strings.NewReader("12345678"), "a.txt", "text/plain", 8, "m1"); err != nil {
		t.Fatalf("first file: %v", err)
	}
	if _, err := s.SaveSessionFile(strings.NewReader("12345"), "b.txt", "text/plain", 5, "m1"); !errors.Is(err, ErrStorageLimit) {
		t.Fatalf("expected ErrStorageLimit, got %v", err)
	}
	// У другой сессии своя квота
	if _, err := s.SaveSessionFile(strings.NewReader("12345"), "b.txt", "text/plain", 5, "m2"); err != nil {
		t.Fatalf("other session: %v", err)
	}
}

func TestSaveSessionFileCreatesThumbnail(t *testing.T) {
	s, err := NewStorage(t.TempDir(), 1<<20, 1<<21)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 600, 400))
	for x := 0; x < 600; x++ {
		img.Set(x, x%400, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}

	stored, err := s.SaveSessionFile(&buf, "board.png", "image/png", int64(buf.Len()), "m1")
	if err != nil {
		t.Fatalf("SaveSessionFile: %v", err)
	}
	if stored.ThumbnailPath == "" {
		t.Fatalf("expected thumbnail for image upload")
	}
	if _, err := os.Stat(stored.ThumbnailPath); err != nil {
		t.Fatalf("thumbnail missing: %v", err)
	}

	if err := s.DeleteFile(stored.Path); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if _, err := os.Stat(stored.ThumbnailPath); !os.IsNotExist(err) {
		t.Fatalf("thumbnail should be removed with the file")
	}
}
