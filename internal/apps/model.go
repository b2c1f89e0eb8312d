package apps

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Store enumerates the app marketplaces the gallery links to.
type Store string

const (
	StoreGooglePlay Store = "google-play"
	StoreAppStore   Store = "app-store"
)

// Status enumerates the publication lifecycle of an app entry.
type Status string

const (
	StatusPublished   Status = "published"
	StatusInReview    Status = "in-review"
	StatusDevelopment Status = "development"
)

var (
	// ErrInvalidApp indicates a record that fails shape validation.
	ErrInvalidApp = errors.New("apps: invalid app record")
	// ErrNotFound indicates an id that is not present in the list.
	ErrNotFound = errors.New("apps: app not found")

	numericIDPattern = regexp.MustCompile(`^\d+$`)
)

// App is one gallery entry. IsFeatured and IsEvent are derived at read time
// by joining against the id-set resource; they are never persisted on the
// record itself so the two representations cannot drift.
type App struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Developer   string   `json:"developer,omitempty"`
	Description string   `json:"description,omitempty"`
	IconURL     string   `json:"iconUrl,omitempty"`
	Screenshots []string `json:"screenshots,omitempty"`
	StoreLink   string   `json:"storeLink,omitempty"`
	Store       Store    `json:"store,omitempty"`
	Status      Status   `json:"status,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	Downloads   string   `json:"downloads,omitempty"`
	UploadDate  string   `json:"uploadDate,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Category    string   `json:"category,omitempty"`
	Version     string   `json:"version,omitempty"`
	Size        string   `json:"size,omitempty"`

	IsFeatured bool `json:"isFeatured,omitempty"`
	IsEvent    bool `json:"isEvent,omitempty"`
}

// Validate checks the fields a record must carry before it is persisted.
func (a App) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("%w: id required", ErrInvalidApp)
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalidApp)
	}
	switch a.Store {
	case "", StoreGooglePlay, StoreAppStore:
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidApp, a.Store)
	}
	switch a.Status {
	case "", StatusPublished, StatusInReview, StatusDevelopment:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidApp, a.Status)
	}
	return nil
}

// stripDerived zeroes the read-time join flags so they never reach storage.
func (a App) stripDerived() App {
	a.IsFeatured = false
	a.IsEvent = false
	return a
}

// IsModernID reports whether an id uses the timestamp_suffix format. Bare
// numeric ids are legacy records from the numeric-range era; anything with an
// underscore or a non-digit is accepted as modern.
func IsModernID(id string) bool {
	if strings.Contains(id, "_") {
		return true
	}
	return !numericIDPattern.MatchString(id)
}
