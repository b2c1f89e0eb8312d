package apps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/showcase/backend/internal/gateway"
)

var (
	errMissingAppsGateway  = errors.New("apps: apps gateway required")
	errMissingFlagsGateway = errors.New("apps: flags gateway required")
)

// ServiceConfig wires the app service to its two resources.
type ServiceConfig struct {
	Apps   *gateway.Gateway[[]App]
	Flags  *gateway.Gateway[IDSets]
	Clock  func() time.Time
	Logger *zap.Logger
}

// Service owns the apps list and the featured/events id-sets.
type Service struct {
	apps   *gateway.Gateway[[]App]
	flags  *gateway.Gateway[IDSets]
	clock  func() time.Time
	logger *zap.Logger
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Apps == nil {
		return nil, errMissingAppsGateway
	}
	if cfg.Flags == nil {
		return nil, errMissingFlagsGateway
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{apps: cfg.Apps, flags: cfg.Flags, clock: clock, logger: logger}, nil
}

// List returns all apps with IsFeatured/IsEvent joined in from the id-sets.
func (s *Service) List(ctx context.Context) []App {
	records := s.apps.Read(ctx)
	sets := s.flags.Read(ctx)

	joined := make([]App, len(records))
	for i, record := range records {
		record.IsFeatured = sets.contains(ListFeatured, record.ID)
		record.IsEvent = sets.contains(ListEvents, record.ID)
		joined[i] = record
	}
	return joined
}

// Replace overwrites the whole apps list. Derived flags are stripped before
// persisting.
func (s *Service) Replace(ctx context.Context, records []App) (gateway.WriteResult[[]App], error) {
	stripped := make([]App, len(records))
	for i, record := range records {
		if err := record.Validate(); err != nil {
			return gateway.WriteResult[[]App]{}, err
		}
		stripped[i] = record.stripDerived()
	}
	return s.apps.Write(ctx, stripped), nil
}

// Create appends one app, issuing a modern id when the record has none.
func (s *Service) Create(ctx context.Context, record App) (App, gateway.WriteResult[[]App], error) {
	if strings.TrimSpace(record.ID) == "" {
		record.ID = NewID(s.clock())
	}
	if record.UploadDate == "" {
		record.UploadDate = s.clock().UTC().Format("2006-01-02")
	}
	if err := record.Validate(); err != nil {
		return App{}, gateway.WriteResult[[]App]{}, err
	}

	current := s.apps.Read(ctx)
	for _, existing := range current {
		if existing.ID == record.ID {
			return App{}, gateway.WriteResult[[]App]{}, fmt.Errorf("%w: duplicate id %q", ErrInvalidApp, record.ID)
		}
	}

	record = record.stripDerived()
	result := s.apps.Write(ctx, append(current, record))
	return record, result, nil
}

// UpdateRequest carries a partial per-item edit; nil fields are untouched.
type UpdateRequest struct {
	Name        *string   `json:"name"`
	Developer   *string   `json:"developer"`
	Description *string   `json:"description"`
	IconURL     *string   `json:"iconUrl"`
	Screenshots *[]string `json:"screenshots"`
	StoreLink   *string   `json:"storeLink"`
	Store       *Store    `json:"store"`
	Status      *Status   `json:"status"`
	Rating      *float64  `json:"rating"`
	Downloads   *string   `json:"downloads"`
	Tags        *[]string `json:"tags"`
	Category    *string   `json:"category"`
	Version     *string   `json:"version"`
	Size        *string   `json:"size"`
}

func (r UpdateRequest) apply(record App) App {
	if r.Name != nil {
		record.Name = *r.Name
	}
	if r.Developer != nil {
		record.Developer = *r.Developer
	}
	if r.Description != nil {
		record.Description = *r.Description
	}
	if r.IconURL != nil {
		record.IconURL = *r.IconURL
	}
	if r.Screenshots != nil {
		record.Screenshots = *r.Screenshots
	}
	if r.StoreLink != nil {
		record.StoreLink = *r.StoreLink
	}
	if r.Store != nil {
		record.Store = *r.Store
	}
	if r.Status != nil {
		record.Status = *r.Status
	}
	if r.Rating != nil {
		record.Rating = *r.Rating
	}
	if r.Downloads != nil {
		record.Downloads = *r.Downloads
	}
	if r.Tags != nil {
		record.Tags = *r.Tags
	}
	if r.Category != nil {
		record.Category = *r.Category
	}
	if r.Version != nil {
		record.Version = *r.Version
	}
	if r.Size != nil {
		record.Size = *r.Size
	}
	return record
}

// Update performs the classic read-modify-write on one record. Concurrent
// edits against the same list are last-writer-wins.
func (s *Service) Update(ctx context.Context, id string, request UpdateRequest) (App, gateway.WriteResult[[]App], error) {
	current := s.apps.Read(ctx)
	index := -1
	for i, record := range current {
		if record.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		return App{}, gateway.WriteResult[[]App]{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	updated := request.apply(current[index])
	if err := updated.Validate(); err != nil {
		return App{}, gateway.WriteResult[[]App]{}, err
	}

	current[index] = updated.stripDerived()
	result := s.apps.Write(ctx, current)
	return current[index], result, nil
}

// Delete removes one record and rewrites the list. The id is also dropped
// from both id-sets so the join never resurrects a deleted app.
func (s *Service) Delete(ctx context.Context, id string) (gateway.WriteResult[[]App], error) {
	current := s.apps.Read(ctx)
	remaining := make([]App, 0, len(current))
	found := false
	for _, record := range current {
		if record.ID == id {
			found = true
			continue
		}
		remaining = append(remaining, record)
	}
	if !found {
		return gateway.WriteResult[[]App]{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	result := s.apps.Write(ctx, remaining)

	sets := s.flags.Read(ctx)
	if sets.contains(ListFeatured, id) || sets.contains(ListEvents, id) {
		s.flags.Overwrite(ctx, sets.without(ListFeatured, id).without(ListEvents, id))
	}
	return result, nil
}

// FlagSets returns the current featured/events document.
func (s *Service) FlagSets(ctx context.Context) IDSets {
	return s.flags.Read(ctx)
}

// AddFlags unions the incoming ids into the document through the merge-aware
// write path, so concurrent additive edits cannot drop each other's ids.
func (s *Service) AddFlags(ctx context.Context, incoming IDSets) gateway.WriteResult[IDSets] {
	return s.flags.Write(ctx, incoming)
}

// RemoveFlag drops one id from the named set via read-filter-overwrite.
// Unlike AddFlags this is last-writer-wins; see the gateway's Overwrite doc.
func (s *Service) RemoveFlag(ctx context.Context, list ListName, id string) gateway.WriteResult[IDSets] {
	sets := s.flags.Read(ctx)
	return s.flags.Overwrite(ctx, sets.without(list, id))
}
