// Package gallery manages the photo gallery resource. Gallery ids are
// numeric like content ids but live in their own 40000-49999 range; records
// from the era when the range was shared with memos (20000-29999) are still
// accepted on read and delete.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/showcase/backend/internal/apps"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/contents"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/gateway"
)

// IDRange is where newly generated gallery ids land.
var IDRange = contents.IDRange{Base: 40000, Max: 49999}

// legacyIDRange covers gallery records created when the range overlapped the
// memo range.
var legacyIDRange = contents.IDRange{Base: 20000, Max: 29999}

var (
	// ErrInvalidItem indicates a record that fails shape validation.
	ErrInvalidItem = errors.New("gallery: invalid gallery item")
	// ErrNotFound indicates an id that is not present in the list.
	ErrNotFound = errors.New("gallery: item not found")

	errMissingGateway = errors.New("gallery: gateway required")
)

// Item is one gallery entry.
type Item struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ImageURL    string `json:"imageUrl"`
	Description string `json:"description,omitempty"`
	UploadDate  string `json:"uploadDate,omitempty"`
}

// Validate checks required fields. Modern-format ids (underscore or any
// non-digit) are accepted as-is; only bare numeric ids carry the legacy range
// constraint.
func (i Item) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("%w: id required", ErrInvalidItem)
	}
	if strings.TrimSpace(i.ImageURL) == "" {
		return fmt.Errorf("%w: imageUrl required", ErrInvalidItem)
	}
	if apps.IsModernID(i.ID) {
		return nil
	}
	numeric, err := strconv.Atoi(i.ID)
	if err != nil {
		return fmt.Errorf("%w: id %q is not numeric", ErrInvalidItem, i.ID)
	}
	if !IDRange.Contains(numeric) && !legacyIDRange.Contains(numeric) {
		return fmt.Errorf("%w: id %d outside gallery ranges", ErrInvalidItem, numeric)
	}
	return nil
}

// ServiceConfig wires the gallery service to its resource.
type ServiceConfig struct {
	Gateway *gateway.Gateway[[]Item]
	Clock   func() time.Time
	Logger  *zap.Logger
}

// Service owns the gallery-items resource.
type Service struct {
	gateway *gateway.Gateway[[]Item]
	clock   func() time.Time
	logger  *zap.Logger
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Gateway == nil {
		return nil, errMissingGateway
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{gateway: cfg.Gateway, clock: clock, logger: logger}, nil
}

// List returns all gallery items.
func (s *Service) List(ctx context.Context) []Item {
	return s.gateway.Read(ctx)
}

// Replace overwrites the whole gallery.
func (s *Service) Replace(ctx context.Context, items []Item) (gateway.WriteResult[[]Item], error) {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return gateway.WriteResult[[]Item]{}, err
		}
	}
	return s.gateway.Write(ctx, items), nil
}

// Create appends one item, generating an id in the gallery range when none is
// supplied.
func (s *Service) Create(ctx context.Context, item Item) (Item, gateway.WriteResult[[]Item], error) {
	current := s.gateway.Read(ctx)
	taken := make(map[string]struct{}, len(current))
	for _, existing := range current {
		taken[existing.ID] = struct{}{}
	}
	if strings.TrimSpace(item.ID) == "" {
		item.ID = contents.NewRangedID(IDRange, taken, s.clock())
	} else if _, collides := taken[item.ID]; collides {
		// An explicit id that collides gets regenerated rather than rejected.
		item.ID = contents.NewRangedID(IDRange, taken, s.clock())
	}
	if item.UploadDate == "" {
		item.UploadDate = s.clock().UTC().Format("2006-01-02")
	}
	if err := item.Validate(); err != nil {
		return Item{}, gateway.WriteResult[[]Item]{}, err
	}

	result := s.gateway.Write(ctx, append(current, item))
	return item, result, nil
}

// Delete removes one item and rewrites the list.
func (s *Service) Delete(ctx context.Context, id string) (gateway.WriteResult[[]Item], error) {
	current := s.gateway.Read(ctx)
	remaining := make([]Item, 0, len(current))
	found := false
	for _, item := range current {
		if item.ID == id {
			found = true
			continue
		}
		remaining = append(remaining, item)
	}
	if !found {
		return gateway.WriteResult[[]Item]{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return s.gateway.Write(ctx, remaining), nil
}
