package uploads

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/showcase/backend/internal/blob/blobtest"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/config"
)

func newLocalService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	service, err := NewService(ServiceConfig{
		Mode:       config.ModeLocal,
		UploadsDir: dir,
		Clock:      func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return service, dir
}

func TestNewFilenameFormat(t *testing.T) {
	service, _ := newLocalService(t)

	filename := service.NewFilename("icon", "My Photo.PNG")
	pattern := regexp.MustCompile(`^icon_\d+_[0-9a-f]{10}\.png$`)
	if !pattern.MatchString(filename) {
		t.Fatalf("unexpected filename format: %q", filename)
	}

	fallback := service.NewFilename("", "shot.jpg")
	if !strings.HasPrefix(fallback, "asset_") {
		t.Fatalf("expected default prefix, got %q", fallback)
	}
}

func TestSaveLocalWritesFileAndReturnsPublicPath(t *testing.T) {
	service, dir := newLocalService(t)

	url, err := service.Save(context.Background(), "icon", "a.png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/") {
		t.Fatalf("expected /uploads/ path, got %q", url)
	}

	stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
	if err != nil {
		t.Fatalf("expected stored file: %v", err)
	}
	if string(stored) != "png-bytes" {
		t.Fatalf("stored bytes differ")
	}
}

func TestSaveRejectsEmptyFile(t *testing.T) {
	service, _ := newLocalService(t)

	if _, err := service.Save(context.Background(), "icon", "a.png", nil); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected empty file error, got %v", err)
	}
}

func TestSaveHostedPutsBlob(t *testing.T) {
	store := blobtest.New()
	service, err := NewService(ServiceConfig{Mode: config.ModeHosted, Blob: store})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url, err := service.Save(context.Background(), "shot", "b.jpg", []byte{0xff, 0xd8, 0xff})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(url, store.BaseURL()) {
		t.Fatalf("expected blob url, got %q", url)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one stored object, got %d", store.Len())
	}
}

func TestDeleteClassifiesBlobURL(t *testing.T) {
	store := blobtest.New()
	service, err := NewService(ServiceConfig{Mode: config.ModeHosted, Blob: store})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url, err := service.Save(context.Background(), "shot", "b.jpg", []byte("data"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := service.Delete(context.Background(), url); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected object deleted")
	}

	if err := service.Delete(context.Background(), url); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestDeleteClassifiesLocalPath(t *testing.T) {
	service, dir := newLocalService(t)

	url, err := service.Save(context.Background(), "icon", "a.png", []byte("data"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := service.Delete(context.Background(), url); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected uploads dir emptied, got %d entries", len(entries))
	}
}

func TestDeleteRefusesExternalURL(t *testing.T) {
	service, _ := newLocalService(t)

	err := service.Delete(context.Background(), "https://example.com/image.png")
	if !errors.Is(err, ErrExternalURL) {
		t.Fatalf("expected external url error, got %v", err)
	}
}

func TestDeleteIgnoresTraversalSegments(t *testing.T) {
	service, dir := newLocalService(t)

	outside := filepath.Join(filepath.Dir(dir), "victim.txt")
	if err := os.WriteFile(outside, []byte("keep"), 0o644); err != nil {
		t.Fatalf("seed outside file: %v", err)
	}
	t.Cleanup(func() { os.Remove(outside) })

	err := service.Delete(context.Background(), "/uploads/../victim.txt")
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrExternalURL) {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, statErr := os.Stat(outside); statErr != nil {
		t.Fatalf("file outside uploads dir was deleted")
	}
}
