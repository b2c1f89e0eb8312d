// Package gateway implements the per-resource persistence fallback chain.
//
// Every resource (apps list, featured/event id-sets, contents, memos, gallery
// items) is one JSON document read and written through up to three tiers. In
// local mode the document is a file under the data directory. In hosted mode
// the durable tier is the blob store, with the process-memory cache as a
// best-effort fallback: reads fill it, failed writes park the intended value
// in it so the same process keeps serving what the caller saved.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/showcase/backend/internal/blob"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/config"
)

// Tier names the storage layer that served or absorbed an operation. The
// string values appear verbatim in the HTTP `storage` response field.
type Tier string

const (
	// TierLocalFile is the filesystem tier used in local mode.
	TierLocalFile Tier = "local"
	// TierBlobStore is the durable hosted tier.
	TierBlobStore Tier = "blob"
	// TierMemoryCache is the volatile per-process fallback tier.
	TierMemoryCache Tier = "memory"
)

const (
	writeAttempts   = 3
	listLimit       = 100
	pruneKeepNewest = 3

	documentContentType = "application/json; charset=utf-8"
)

// WarningBlobSaveFailed flags a write that only reached the memory tier.
const WarningBlobSaveFailed = "blob save failed after 3 attempts"

var (
	errMissingName  = errors.New("gateway: resource name required")
	errMissingEmpty = errors.New("gateway: empty-shape constructor required")
	errMissingBlob  = errors.New("gateway: blob store required in hosted mode")
	errMissingCache = errors.New("gateway: memory cache required in hosted mode")
	errMissingDir   = errors.New("gateway: data directory required in local mode")
)

// Config describes one resource and the tiers behind it.
type Config[T any] struct {
	// Name keys the resource: blob object prefix, local filename, cache key.
	Name string
	Mode config.RuntimeMode
	// Blob backs the durable tier in hosted mode.
	Blob blob.Store
	// DataDir holds the per-resource JSON file in local mode.
	DataDir string
	// Cache is the shared process-memory tier, required in hosted mode.
	Cache *MemoryCache
	// Empty constructs the resource's empty shape. Reads never return the
	// zero value of T; absence degrades to Empty().
	Empty func() T
	// Merge, when set, makes the resource UNION_MERGE: writes combine the
	// incoming value with the current one before persisting. Nil means
	// REPLACE.
	Merge  func(current, incoming T) T
	Logger *zap.Logger
}

// WriteResult reports where a write landed. Warning is set on soft failures;
// the write itself never fails from the caller's point of view.
type WriteResult[T any] struct {
	Tier    Tier
	Data    T
	Warning string
}

// Gateway provides total read/write operations for one resource.
type Gateway[T any] struct {
	name   string
	mode   config.RuntimeMode
	blob   blob.Store
	dir    string
	cache  *MemoryCache
	empty  func() T
	merge  func(current, incoming T) T
	logger *zap.Logger
}

// New validates the configuration and constructs a Gateway.
func New[T any](cfg Config[T]) (*Gateway[T], error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, errMissingName
	}
	if cfg.Empty == nil {
		return nil, errMissingEmpty
	}
	switch cfg.Mode {
	case config.ModeHosted:
		if cfg.Blob == nil {
			return nil, errMissingBlob
		}
		if cfg.Cache == nil {
			return nil, errMissingCache
		}
	case config.ModeLocal:
		if strings.TrimSpace(cfg.DataDir) == "" {
			return nil, errMissingDir
		}
	default:
		return nil, fmt.Errorf("gateway: unknown runtime mode %q", cfg.Mode)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Gateway[T]{
		name:   cfg.Name,
		mode:   cfg.Mode,
		blob:   cfg.Blob,
		dir:    cfg.DataDir,
		cache:  cfg.Cache,
		empty:  cfg.Empty,
		merge:  cfg.Merge,
		logger: logger,
	}, nil
}

// Name returns the resource name.
func (g *Gateway[T]) Name() string {
	return g.name
}

// Read returns the resource's current value. It is total over tier failures:
// every failure falls through to the next tier and the final fallback is the
// empty shape, never an error.
func (g *Gateway[T]) Read(ctx context.Context) T {
	if g.mode == config.ModeLocal {
		return g.readLocalFile()
	}
	return g.readHosted(ctx)
}

// Write persists a new value. UNION_MERGE resources are merged with the
// current value first; REPLACE resources overwrite. The result always carries
// the value that was persisted (or parked in memory) and the tier it reached.
func (g *Gateway[T]) Write(ctx context.Context, value T) WriteResult[T] {
	toPersist := value
	if g.merge != nil {
		toPersist = g.merge(g.Read(ctx), value)
	}

	if g.mode == config.ModeLocal {
		return g.writeLocalFile(toPersist)
	}
	return g.writeHosted(ctx, toPersist)
}

// Overwrite persists a value without applying the merge policy. This is the
// removal path for UNION_MERGE resources: a remove has to drop ids, which the
// merge would immediately put back. It is last-writer-wins; a concurrent add
// can race with it and the loser's change is overwritten.
func (g *Gateway[T]) Overwrite(ctx context.Context, value T) WriteResult[T] {
	if g.mode == config.ModeLocal {
		return g.writeLocalFile(value)
	}
	return g.writeHosted(ctx, value)
}

func (g *Gateway[T]) localPath() string {
	return filepath.Join(g.dir, g.name+".json")
}

func (g *Gateway[T]) readLocalFile() T {
	payload, err := os.ReadFile(g.localPath())
	if errors.Is(err, os.ErrNotExist) {
		empty := g.empty()
		g.writeLocalFile(empty)
		return empty
	}
	if err != nil {
		g.logger.Warn("local read failed, serving empty shape",
			zap.String("resource", g.name), zap.Error(err))
		return g.empty()
	}

	value := g.empty()
	if err := json.Unmarshal(payload, &value); err != nil {
		g.logger.Warn("local document unparseable, serving empty shape",
			zap.String("resource", g.name), zap.Error(err))
		return g.empty()
	}
	return value
}

func (g *Gateway[T]) writeLocalFile(value T) WriteResult[T] {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		g.logger.Error("marshal failed", zap.String("resource", g.name), zap.Error(err))
		return WriteResult[T]{Tier: TierLocalFile, Data: value, Warning: "serialize failed"}
	}

	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		g.logger.Error("data dir create failed", zap.String("resource", g.name), zap.Error(err))
		return WriteResult[T]{Tier: TierLocalFile, Data: value, Warning: "local save failed"}
	}

	// Write-then-rename keeps a concurrent reader from seeing a torn file.
	target := g.localPath()
	temp := target + ".tmp"
	if err := os.WriteFile(temp, payload, 0o644); err == nil {
		err = os.Rename(temp, target)
		if err == nil {
			return WriteResult[T]{Tier: TierLocalFile, Data: value}
		}
	}
	g.logger.Error("local save failed", zap.String("resource", g.name))
	return WriteResult[T]{Tier: TierLocalFile, Data: value, Warning: "local save failed"}
}

func (g *Gateway[T]) readHosted(ctx context.Context) T {
	if value, ok := g.readLatestBlob(ctx); ok {
		return value
	}
	if payload, ok := g.cache.Get(g.name); ok {
		value := g.empty()
		if err := json.Unmarshal(payload, &value); err == nil {
			return value
		}
	}
	return g.empty()
}

// readLatestBlob picks the newest object under the resource prefix. Multiple
// objects coexist under the prefix because every write creates a fresh one;
// the maximum upload timestamp wins, first-seen on ties.
func (g *Gateway[T]) readLatestBlob(ctx context.Context) (T, bool) {
	var zero T

	objects, err := g.blob.List(ctx, g.name, listLimit)
	if err != nil {
		g.logger.Warn("blob list failed, falling back",
			zap.String("resource", g.name), zap.Error(err))
		return zero, false
	}
	if len(objects) == 0 {
		return zero, false
	}

	latest := objects[0]
	for _, object := range objects[1:] {
		if object.UploadedAt.After(latest.UploadedAt) {
			latest = object
		}
	}

	payload, err := g.blob.Get(ctx, latest.Pathname)
	if err != nil {
		g.logger.Warn("blob fetch failed, falling back",
			zap.String("resource", g.name), zap.String("object", latest.Pathname), zap.Error(err))
		return zero, false
	}

	value := g.empty()
	if err := json.Unmarshal(payload, &value); err != nil {
		g.logger.Warn("blob document unparseable, falling back",
			zap.String("resource", g.name), zap.String("object", latest.Pathname), zap.Error(err))
		return zero, false
	}

	g.cache.Set(g.name, payload)
	return value, true
}

func (g *Gateway[T]) writeHosted(ctx context.Context, value T) WriteResult[T] {
	payload, err := json.Marshal(value)
	if err != nil {
		g.logger.Error("marshal failed", zap.String("resource", g.name), zap.Error(err))
		return WriteResult[T]{Tier: TierMemoryCache, Data: value, Warning: "serialize failed"}
	}

	var lastErr error
	for attempt := 1; attempt <= writeAttempts; attempt++ {
		_, lastErr = g.blob.Put(ctx, g.name+".json", payload, blob.PutOptions{
			ContentType:     documentContentType,
			AddRandomSuffix: true,
		})
		if lastErr == nil {
			g.cache.Set(g.name, payload)
			g.pruneSuperseded(ctx)
			return WriteResult[T]{Tier: TierBlobStore, Data: value}
		}
		g.logger.Warn("blob save attempt failed",
			zap.String("resource", g.name), zap.Int("attempt", attempt), zap.Error(lastErr))
	}

	// Soft failure: keep the intended value visible for the rest of this
	// process's lifetime and let the caller report success with a warning.
	g.cache.Set(g.name, payload)
	g.logger.Error("blob save exhausted retries, value held in memory only",
		zap.String("resource", g.name), zap.Error(lastErr))
	return WriteResult[T]{Tier: TierMemoryCache, Data: value, Warning: WarningBlobSaveFailed}
}

// pruneSuperseded trims older document objects, keeping the newest few.
// Best effort only: reads do not depend on pruning, and a failed delete is
// just a little extra garbage under the prefix.
func (g *Gateway[T]) pruneSuperseded(ctx context.Context) {
	objects, err := g.blob.List(ctx, g.name, listLimit)
	if err != nil || len(objects) <= pruneKeepNewest {
		return
	}

	remaining := make([]blob.Object, len(objects))
	copy(remaining, objects)
	for len(remaining) > pruneKeepNewest {
		oldestIndex := 0
		for i, object := range remaining {
			if object.UploadedAt.Before(remaining[oldestIndex].UploadedAt) {
				oldestIndex = i
			}
		}
		if err := g.blob.Delete(ctx, remaining[oldestIndex].Pathname); err != nil {
			g.logger.Debug("prune delete failed", zap.String("resource", g.name), zap.Error(err))
			return
		}
		remaining = append(remaining[:oldestIndex], remaining[oldestIndex+1:]...)
	}
}
