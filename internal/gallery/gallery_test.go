package gallery

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/showcase/backend/internal/config"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/gateway"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	resourceGateway, err := gateway.New(gateway.Config[[]Item]{
		Name:    "gallery-items",
		Mode:    config.ModeLocal,
		DataDir: t.TempDir(),
		Empty:   func() []Item { return []Item{} },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	service, err := NewService(ServiceConfig{
		Gateway: resourceGateway,
		Clock:   func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return service
}

func TestCreateGeneratesIDInGalleryRange(t *testing.T) {
	service := newTestService(t)

	item, _, err := service.Create(context.Background(), Item{ImageURL: "/uploads/a.jpg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	numeric, err := strconv.Atoi(item.ID)
	if err != nil {
		t.Fatalf("expected numeric id, got %q", item.ID)
	}
	if !IDRange.Contains(numeric) {
		t.Fatalf("id %d outside gallery range", numeric)
	}
	if item.UploadDate != "2024-06-01" {
		t.Fatalf("expected upload date stamped, got %q", item.UploadDate)
	}
}

func TestValidateAcceptsLegacyRange(t *testing.T) {
	legacy := Item{ID: "20001", ImageURL: "/uploads/a.jpg"}
	if err := legacy.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outside := Item{ID: "30001", ImageURL: "/uploads/a.jpg"}
	if err := outside.Validate(); err == nil {
		t.Fatalf("expected error for id outside both ranges")
	}

	outsideModern := Item{ID: "abc_def", ImageURL: "/uploads/a.jpg"}
	if err := outsideModern.Validate(); err != nil {
		t.Fatalf("unexpected error for modern-format id: %v", err)
	}
}

func TestValidateAcceptsModernIDs(t *testing.T) {
	modernIDs := []string{"1717243200000_k3j9x2", "legacy-slug", "9a1"}
	for _, id := range modernIDs {
		item := Item{ID: id, ImageURL: "/uploads/a.jpg"}
		if err := item.Validate(); err != nil {
			t.Fatalf("unexpected error for id %q: %v", id, err)
		}
	}
}

func TestCreateAcceptsModernID(t *testing.T) {
	service := newTestService(t)

	item, _, err := service.Create(context.Background(), Item{ID: "1717243200000_k3j9x2", ImageURL: "/uploads/a.jpg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.ID != "1717243200000_k3j9x2" {
		t.Fatalf("expected id preserved, got %q", item.ID)
	}
}

func TestCreateRegeneratesCollidingID(t *testing.T) {
	service := newTestService(t)

	first, _, err := service.Create(context.Background(), Item{ID: "40001", ImageURL: "/uploads/a.jpg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, _, err := service.Create(context.Background(), Item{ID: "40001", ImageURL: "/uploads/b.jpg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("expected regenerated id for colliding create, got %q twice", second.ID)
	}

	items := service.List(context.Background())
	seen := make(map[string]int, len(items))
	for _, item := range items {
		seen[item.ID]++
	}
	for id, count := range seen {
		if count > 1 {
			t.Fatalf("id %q appears %d times", id, count)
		}
	}
}

func TestDeleteRemovesItem(t *testing.T) {
	service := newTestService(t)

	item, _, err := service.Create(context.Background(), Item{ImageURL: "/uploads/a.jpg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := service.Delete(context.Background(), item.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(service.List(context.Background())) != 0 {
		t.Fatalf("expected empty gallery")
	}
	if _, err := service.Delete(context.Background(), item.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
