package contents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/showcase/backend/internal/gateway"
)

var errMissingGateway = errors.New("contents: gateway required")

// ServiceConfig wires a content service to its backing resource. The same
// service runs twice in production, once for the contents resource and once
// for memos.
type ServiceConfig struct {
	Gateway *gateway.Gateway[[]Content]
	Clock   func() time.Time
	Logger  *zap.Logger
}

// Service owns one list-of-contents resource.
type Service struct {
	gateway *gateway.Gateway[[]Content]
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

// List returns all records of the resource.
func (s *Service) List(ctx context.Context) []Content {
	return s.gateway.Read(ctx)
}

// Replace overwrites the whole list.
func (s *Service) Replace(ctx context.Context, records []Content) (gateway.WriteResult[[]Content], error) {
	for _, record := range records {
		if err := record.Validate(); err != nil {
			return gateway.WriteResult[[]Content]{}, err
		}
	}
	return s.gateway.Write(ctx, records), nil
}

// Create appends one record, generating a ranged id when none is supplied.
func (s *Service) Create(ctx context.Context, record Content) (Content, gateway.WriteResult[[]Content], error) {
	idRange, err := RangeFor(record.Type)
	if err != nil {
		return Content{}, gateway.WriteResult[[]Content]{}, err
	}

	current := s.gateway.Read(ctx)
	taken := takenIDs(current)

	if strings.TrimSpace(record.ID) == "" {
		record.ID = NewRangedID(idRange, taken, s.clock())
	} else if _, collides := taken[record.ID]; collides {
		// An explicit id that collides gets regenerated rather than rejected.
		record.ID = NewRangedID(idRange, taken, s.clock())
	}
	if record.PublishDate == "" {
		record.PublishDate = s.clock().UTC().Format("2006-01-02")
	}
	if err := record.Validate(); err != nil {
		return Content{}, gateway.WriteResult[[]Content]{}, err
	}

	result := s.gateway.Write(ctx, append(current, record))
	return record, result, nil
}

// Update performs a read-modify-write on one record identified by id.
func (s *Service) Update(ctx context.Context, id string, request UpdateRequest) (Content, gateway.WriteResult[[]Content], error) {
	current := s.gateway.Read(ctx)
	index := -1
	for i, record := range current {
		if record.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		return Content{}, gateway.WriteResult[[]Content]{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	updated := request.apply(current[index])
	if err := updated.Validate(); err != nil {
		return Content{}, gateway.WriteResult[[]Content]{}, err
	}

	current[index] = updated
	result := s.gateway.Write(ctx, current)
	return updated, result, nil
}

// Delete removes one record and rewrites the list.
func (s *Service) Delete(ctx context.Context, id string) (gateway.WriteResult[[]Content], error) {
	current := s.gateway.Read(ctx)
	remaining := make([]Content, 0, len(current))
	found := false
	for _, record := range current {
		if record.ID == id {
			found = true
			continue
		}
		remaining = append(remaining, record)
	}
	if !found {
		return gateway.WriteResult[[]Content]{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return s.gateway.Write(ctx, remaining), nil
}

// UpdateRequest carries a partial per-item edit; nil fields are untouched.
// The id and type of a record are immutable through this path.
type UpdateRequest struct {
	Title       *string   `json:"title"`
	Body        *string   `json:"body"`
	Author      *string   `json:"author"`
	PublishDate *string   `json:"publishDate"`
	ImageURL    *string   `json:"imageUrl"`
	Tags        *[]string `json:"tags"`
	IsPublished *bool     `json:"isPublished"`
}

func (r UpdateRequest) apply(record Content) Content {
	if r.Title != nil {
		record.Title = *r.Title
	}
	if r.Body != nil {
		record.Body = *r.Body
	}
	if r.Author != nil {
		record.Author = *r.Author
	}
	if r.PublishDate != nil {
		record.PublishDate = *r.PublishDate
	}
	if r.ImageURL != nil {
		record.ImageURL = *r.ImageURL
	}
	if r.Tags != nil {
		record.Tags = *r.Tags
	}
	if r.IsPublished != nil {
		record.IsPublished = *r.IsPublished
	}
	return record
}
