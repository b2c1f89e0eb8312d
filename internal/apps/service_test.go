package apps

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/showcase/backend/internal/config"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/gateway"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()

	appsGateway, err := gateway.New(gateway.Config[[]App]{
		Name:    "apps",
		Mode:    config.ModeLocal,
		DataDir: dir,
		Empty:   func() []App { return []App{} },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	flagsGateway, err := gateway.New(gateway.Config[IDSets]{
		Name:    "featured-events",
		Mode:    config.ModeLocal,
		DataDir: dir,
		Empty:   EmptyIDSets,
		Merge:   MergeIDSets,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	service, err := NewService(ServiceConfig{
		Apps:  appsGateway,
		Flags: flagsGateway,
		Clock: func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return service, dir
}

func TestCreateIssuesModernID(t *testing.T) {
	service, _ := newTestService(t)

	record, result, err := service.Create(context.Background(), App{Name: "Orbit"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsModernID(record.ID) {
		t.Fatalf("expected modern id, got %q", record.ID)
	}
	if !strings.Contains(record.ID, "_") {
		t.Fatalf("expected timestamp_suffix format, got %q", record.ID)
	}
	if result.Tier != gateway.TierLocalFile {
		t.Fatalf("expected local tier, got %s", result.Tier)
	}
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	service, _ := newTestService(t)

	if _, _, err := service.Create(context.Background(), App{ID: "1717243200000_abc", Name: "One"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _, err := service.Create(context.Background(), App{ID: "1717243200000_abc", Name: "Two"})
	if !errors.Is(err, ErrInvalidApp) {
		t.Fatalf("expected invalid app error, got %v", err)
	}
}

func TestListJoinsDerivedFlags(t *testing.T) {
	service, _ := newTestService(t)

	first, _, err := service.Create(context.Background(), App{Name: "First"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := service.Create(context.Background(), App{Name: "Second"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	service.AddFlags(context.Background(), IDSets{Featured: []string{first.ID}})

	listed := service.List(context.Background())
	if len(listed) != 2 {
		t.Fatalf("expected two apps, got %d", len(listed))
	}
	for _, record := range listed {
		if record.ID == first.ID && !record.IsFeatured {
			t.Fatalf("expected first app to be featured")
		}
		if record.ID != first.ID && record.IsFeatured {
			t.Fatalf("expected second app not to be featured")
		}
		if record.IsEvent {
			t.Fatalf("no app should be an event")
		}
	}
}

func TestDerivedFlagsNeverPersisted(t *testing.T) {
	service, dir := newTestService(t)

	record, _, err := service.Create(context.Background(), App{Name: "Flagged", IsFeatured: true, IsEvent: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	service.AddFlags(context.Background(), IDSets{Featured: []string{record.ID}})

	payload, err := os.ReadFile(filepath.Join(dir, "apps.json"))
	if err != nil {
		t.Fatalf("read persisted document: %v", err)
	}
	if strings.Contains(string(payload), "isFeatured") || strings.Contains(string(payload), "isEvent") {
		t.Fatalf("derived flags leaked into the persisted record: %s", payload)
	}

	var persisted []map[string]any
	if err := json.Unmarshal(payload, &persisted); err != nil {
		t.Fatalf("persisted document unparseable: %v", err)
	}
}

func TestAddThenRemoveFeaturedID(t *testing.T) {
	service, _ := newTestService(t)

	service.AddFlags(context.Background(), IDSets{Featured: []string{"A"}})
	sets := service.FlagSets(context.Background())
	if len(sets.Featured) != 1 || sets.Featured[0] != "A" {
		t.Fatalf("expected featured [A], got %v", sets.Featured)
	}

	service.RemoveFlag(context.Background(), ListFeatured, "A")
	sets = service.FlagSets(context.Background())
	if len(sets.Featured) != 0 {
		t.Fatalf("expected empty featured set, got %v", sets.Featured)
	}
}

func TestUpdateDoesNotCorruptSiblings(t *testing.T) {
	service, _ := newTestService(t)

	if _, err := service.Replace(context.Background(), []App{
		{ID: "1", Name: "A"},
		{ID: "2", Name: "B"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	newName := "B2"
	if _, _, err := service.Update(context.Background(), "2", UpdateRequest{Name: &newName}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	listed := service.List(context.Background())
	if len(listed) != 2 {
		t.Fatalf("expected two apps, got %d", len(listed))
	}
	if listed[0].ID != "1" || listed[0].Name != "A" {
		t.Fatalf("sibling record changed: %+v", listed[0])
	}
	if listed[1].ID != "2" || listed[1].Name != "B2" {
		t.Fatalf("expected updated name, got %+v", listed[1])
	}
}

func TestUpdateMissingIDReturnsNotFound(t *testing.T) {
	service, _ := newTestService(t)

	name := "X"
	_, _, err := service.Update(context.Background(), "missing", UpdateRequest{Name: &name})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteRemovesRecordAndFlags(t *testing.T) {
	service, _ := newTestService(t)

	record, _, err := service.Create(context.Background(), App{Name: "Doomed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	service.AddFlags(context.Background(), IDSets{Featured: []string{record.ID}, Events: []string{record.ID}})

	if _, err := service.Delete(context.Background(), record.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(service.List(context.Background())) != 0 {
		t.Fatalf("expected empty apps list")
	}
	sets := service.FlagSets(context.Background())
	if len(sets.Featured) != 0 || len(sets.Events) != 0 {
		t.Fatalf("expected deleted id to leave both sets, got %+v", sets)
	}

	if _, err := service.Delete(context.Background(), record.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestIsModernID(t *testing.T) {
	for _, tc := range []struct {
		id     string
		modern bool
	}{
		{id: "1717243200000_k3j9x2", modern: true},
		{id: "abc", modern: true},
		{id: "20001", modern: false},
		{id: "42", modern: false},
	} {
		if got := IsModernID(tc.id); got != tc.modern {
			t.Fatalf("IsModernID(%q) = %v, expected %v", tc.id, got, tc.modern)
		}
	}
}

func TestValidateRejectsUnknownEnums(t *testing.T) {
	if err := (App{ID: "1", Name: "a", Store: "itch-io"}).Validate(); err == nil {
		t.Fatalf("expected error for unknown store")
	}
	if err := (App{ID: "1", Name: "a", Status: "cancelled"}).Validate(); err == nil {
		t.Fatalf("expected error for unknown status")
	}
	if err := (App{ID: "1", Name: "a", Store: StoreAppStore, Status: StatusPublished}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
