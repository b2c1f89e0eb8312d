// Package uploads stores the binary assets (icons, screenshots, inline
// images) referenced by app and content records, and deletes them by URL.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/showcase/backend/internal/blob"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/config"
)

const (
	localPublicPrefix = "/uploads/"
	assetPathPrefix   = "assets"
)

var (
	// ErrEmptyFile indicates an upload with no content.
	ErrEmptyFile = errors.New("uploads: empty file")
	// ErrExternalURL indicates a deletion target this deployment does not
	// own; callers report "cannot delete" rather than erroring destructively.
	ErrExternalURL = errors.New("uploads: external url, cannot delete")
	// ErrNotFound indicates a deletion target that is already gone.
	ErrNotFound = errors.New("uploads: asset not found")

	errMissingBlob = errors.New("uploads: blob store required in hosted mode")
	errMissingDir  = errors.New("uploads: uploads directory required in local mode")
)

// ServiceConfig wires the uploads service to its storage.
type ServiceConfig struct {
	Mode config.RuntimeMode
	Blob blob.Store
	// UploadsDir is the local directory served under /uploads/ in dev mode.
	UploadsDir string
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Service saves and deletes binary assets.
type Service struct {
	mode   config.RuntimeMode
	blob   blob.Store
	dir    string
	clock  func() time.Time
	logger *zap.Logger
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	switch cfg.Mode {
	case config.ModeHosted:
		if cfg.Blob == nil {
			return nil, errMissingBlob
		}
	case config.ModeLocal:
		if strings.TrimSpace(cfg.UploadsDir) == "" {
			return nil, errMissingDir
		}
	default:
		return nil, fmt.Errorf("uploads: unknown runtime mode %q", cfg.Mode)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{mode: cfg.Mode, blob: cfg.Blob, dir: cfg.UploadsDir, clock: clock, logger: logger}, nil
}

// NewFilename builds a unique asset name: prefix_timestamp_suffix.ext.
func (s *Service) NewFilename(prefix, originalName string) string {
	extension := strings.ToLower(path.Ext(originalName))
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	if strings.TrimSpace(prefix) == "" {
		prefix = "asset"
	}
	return fmt.Sprintf("%s_%d_%s%s", prefix, s.clock().UnixMilli(), suffix, extension)
}

// Save stores one asset and returns the URL to embed in the owning record.
func (s *Service) Save(ctx context.Context, prefix, originalName string, body []byte) (string, error) {
	if len(body) == 0 {
		return "", ErrEmptyFile
	}
	filename := s.NewFilename(prefix, originalName)

	if s.mode == config.ModeLocal {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return "", fmt.Errorf("uploads: create dir: %w", err)
		}
		if err := os.WriteFile(filepath.Join(s.dir, filename), body, 0o644); err != nil {
			return "", fmt.Errorf("uploads: write file: %w", err)
		}
		return localPublicPrefix + filename, nil
	}

	object, err := s.blob.Put(ctx, path.Join(assetPathPrefix, filename), body, blob.PutOptions{
		ContentType: http.DetectContentType(body),
	})
	if err != nil {
		return "", fmt.Errorf("uploads: blob put: %w", err)
	}
	return object.URL, nil
}

// Delete classifies the URL (hosted blob, local upload, external) and
// dispatches to the matching routine. External URLs are refused, not erased.
func (s *Service) Delete(ctx context.Context, rawURL string) error {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ErrExternalURL
	}

	if s.blob != nil && strings.HasPrefix(trimmed, s.blob.BaseURL()) {
		pathname := strings.TrimPrefix(strings.TrimPrefix(trimmed, s.blob.BaseURL()), "/")
		if err := s.blob.Delete(ctx, pathname); err != nil {
			if errors.Is(err, blob.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("uploads: blob delete: %w", err)
		}
		return nil
	}

	if localPath, ok := localUploadPath(trimmed); ok {
		if s.dir == "" {
			return ErrExternalURL
		}
		err := os.Remove(filepath.Join(s.dir, localPath))
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("uploads: remove file: %w", err)
		}
		return nil
	}

	return ErrExternalURL
}

// localUploadPath extracts the filename from a /uploads/ path or URL. The
// base of the path is used verbatim, which keeps traversal segments out of
// the uploads directory.
func localUploadPath(rawURL string) (string, bool) {
	candidate := rawURL
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Path != "" {
		candidate = parsed.Path
	}
	if !strings.HasPrefix(candidate, localPublicPrefix) {
		return "", false
	}
	return path.Base(candidate), true
}
