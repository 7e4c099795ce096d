package batch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/vmunix/batchprep/internal/media"
	"github.com/vmunix/batchprep/internal/naming"
	"github.com/vmunix/batchprep/internal/reserve"
)

// AbortPolicy decides what happens to placeholders created earlier in a
// batch that later fails or is canceled.
type AbortPolicy string

const (
	// KeepReservations leaves earlier placeholders in place. They remain valid
	// claims, so re-running the same batch with skip-existing is cheap.
	KeepReservations AbortPolicy = "keep"

	// ReleaseReservations removes placeholders this batch created that are still empty.
	ReleaseReservations AbortPolicy = "release"
)

// Store is the placeholder storage a Builder needs.
type Store interface {
	reserve.Claimer
	Exists(path string) (bool, error)
	Release(path string) error
}

// BuilderConfig tunes a Builder.
type BuilderConfig struct {
	MaxAttempts int         // per-path candidate limit; 0 uses reserve.DefaultMaxAttempts
	OnAbort     AbortPolicy // empty means KeepReservations
}

// Builder produces reserved jobs from a selection.
type Builder struct {
	store  Store
	config BuilderConfig
	logger *slog.Logger
}

// NewBuilder creates a builder backed by store.
func NewBuilder(store Store, cfg BuilderConfig, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OnAbort == "" {
		cfg.OnAbort = KeepReservations
	}
	return &Builder{
		store:  store,
		config: cfg,
		logger: logger,
	}
}

// Build processes req.Items in order and returns one job per item that was
// not skipped. Any failure aborts the whole batch and no jobs are returned.
// Cancellation is checked before the first item and between items.
func (b *Builder) Build(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outDir, quality, err := b.validate(req)
	if err != nil {
		return nil, err
	}

	bases, err := b.plan(req, outDir)
	if err != nil {
		return nil, err
	}

	resolver := reserve.NewResolver(b.store, b.config.MaxAttempts)
	result := &Result{Jobs: make([]Job, 0, len(req.Items))}

	for i, item := range req.Items {
		if err := ctx.Err(); err != nil {
			return nil, b.abort(resolver, err)
		}

		ordinal := i + 1
		base := bases[i]

		if req.SkipExisting {
			exists, err := b.store.Exists(base)
			if err != nil {
				return nil, b.abort(resolver, &BatchError{Ordinal: ordinal, ItemID: item.ID, Path: base, Err: err})
			}
			if exists {
				b.logger.Info("skipping existing file", "ordinal", ordinal, "item", item.ID, "path", base)
				result.Skipped = append(result.Skipped, Skip{Ordinal: ordinal, Item: item, Path: base})
				continue
			}
		}

		path, err := resolver.Reserve(base)
		if err != nil {
			return nil, b.abort(resolver, &BatchError{Ordinal: ordinal, ItemID: item.ID, Path: base, Err: err})
		}
		b.logger.Debug("reserved path", "ordinal", ordinal, "item", item.ID, "path", path)

		result.Jobs = append(result.Jobs, Job{
			Ordinal:   ordinal,
			Item:      item,
			Container: req.Container,
			Quality:   quality,
			Path:      path,
		})
	}

	return result, nil
}

func (b *Builder) validate(req Request) (string, media.QualityPreference, error) {
	if err := req.Policy.Validate(); err != nil {
		return "", "", err
	}
	if strings.TrimSpace(req.OutputDir) == "" {
		return "", "", fmt.Errorf("%w: output directory required", ErrInvalidRequest)
	}
	if _, err := media.ParseContainer(req.Container.Name); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	quality := req.Quality
	if quality == "" {
		quality = media.QualityHighest
	} else if _, err := media.ParseQualityPreference(string(quality)); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	outDir, err := filepath.Abs(req.OutputDir)
	if err != nil {
		return "", "", fmt.Errorf("%w: output directory: %v", ErrInvalidRequest, err)
	}
	return outDir, quality, nil
}

// plan expands every item's path before anything is reserved, so a template
// that yields an unusable path fails the batch without side effects.
func (b *Builder) plan(req Request, outDir string) ([]string, error) {
	template := req.Policy.EffectiveTemplate(req.PlaylistContext)
	total := len(req.Items)
	bases := make([]string, total)

	for i, item := range req.Items {
		ordinal := i + 1
		seq := naming.FormatSequence(ordinal, total, req.Policy.SequenceWidth)
		rel := naming.Expand(template, item, req.Container, seq)

		if err := naming.CheckExpanded(rel); err != nil {
			return nil, &BatchError{Ordinal: ordinal, ItemID: item.ID, Path: rel, Err: err}
		}
		base := basePath(outDir, rel)
		if err := reserve.ValidatePath(base, outDir); err != nil {
			return nil, &BatchError{Ordinal: ordinal, ItemID: item.ID, Path: base, Err: err}
		}
		bases[i] = base
	}
	return bases, nil
}

// abort applies the abort policy and returns cause unchanged.
func (b *Builder) abort(resolver *reserve.Resolver, cause error) error {
	reserved := resolver.Reserved()
	if b.config.OnAbort != ReleaseReservations {
		if len(reserved) > 0 {
			b.logger.Warn("batch aborted, keeping reservations", "reserved", len(reserved), "error", cause)
		}
		return cause
	}

	released := 0
	for _, path := range reserved {
		if err := b.store.Release(path); err != nil {
			b.logger.Warn("release placeholder", "path", path, "error", err)
			continue
		}
		released++
	}
	b.logger.Warn("batch aborted, released reservations", "released", released, "error", cause)
	return cause
}

// basePath joins a slash-separated relative name under outDir, shortening
// each component to fit file system limits.
func basePath(outDir, rel string) string {
	parts := strings.Split(rel, "/")
	for i, p := range parts {
		parts[i] = reserve.FitName(p)
	}
	return filepath.Join(append([]string{outDir}, parts...)...)
}
