package batch

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vmunix/batchprep/internal/manifest"
	"github.com/vmunix/batchprep/internal/media"
)

//go:generate mockgen -source=service.go -destination=mocks/mock_recorder.go -package=mocks

// Recorder persists the jobs of a prepared batch.
type Recorder interface {
	Record(ctx context.Context, batchID string, jobs []Job) error
}

// PrepareRequest is a batch plus its manifest options.
type PrepareRequest struct {
	Request

	// Title is the batch title written at the top of the manifest.
	Title string

	// ManifestItems are listed in the manifest. Defaults to Items.
	ManifestItems []media.Item

	GenerateManifest bool
	ManifestName     string // file name inside OutputDir; defaults to manifest.DefaultFileName
}

// Prepared is the outcome of Service.Prepare.
type Prepared struct {
	BatchID string
	Jobs    []Job
	Skipped []Skip

	// ManifestPath is set when a manifest was requested.
	ManifestPath string
	// ManifestErr reports a manifest failure. It never fails the batch.
	ManifestErr error
	// RecordErr reports a ledger failure. It never fails the batch.
	RecordErr error
}

// Service prepares batches.
type Service struct {
	builder  *Builder
	recorder Recorder
	logger   *slog.Logger
}

// NewService creates a service. recorder may be nil.
func NewService(builder *Builder, recorder Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		builder:  builder,
		recorder: recorder,
		logger:   logger,
	}
}

// Prepare builds the jobs and, if requested, writes the manifest next to
// them. The manifest is rendered while the build runs and committed only
// after it succeeds; only a build failure fails the call.
func (s *Service) Prepare(ctx context.Context, req PrepareRequest) (*Prepared, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Reject bad requests before the manifest goroutine can touch the disk
	if _, _, err := s.builder.validate(req.Request); err != nil {
		return nil, err
	}

	out := &Prepared{BatchID: uuid.NewString()}
	logger := s.logger.With("batch_id", out.BatchID)

	g, gctx := errgroup.WithContext(ctx)

	// The manifest is rendered alongside the build but only committed once
	// the build has succeeded.
	var staged *manifest.Staged
	if req.GenerateManifest {
		name := req.ManifestName
		if name == "" {
			name = manifest.DefaultFileName
		}
		items := req.ManifestItems
		if items == nil {
			items = req.Items
		}
		out.ManifestPath = filepath.Join(req.OutputDir, name)

		g.Go(func() error {
			st, err := manifest.Stage(gctx, out.ManifestPath, manifest.New(req.Title, items))
			if err != nil {
				out.ManifestErr = err
				return nil
			}
			staged = st
			return nil
		})
	}

	var result *Result
	g.Go(func() error {
		r, err := s.builder.Build(gctx, req.Request)
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	if err := g.Wait(); err != nil {
		if staged != nil {
			staged.Discard()
		}
		logger.Error("batch failed", "error", err)
		return nil, err
	}

	if staged != nil {
		if err := staged.Commit(ctx); err != nil {
			out.ManifestErr = err
		}
	}

	out.Jobs = result.Jobs
	out.Skipped = result.Skipped

	if out.ManifestErr != nil {
		logger.Warn("manifest not written", "path", out.ManifestPath, "error", out.ManifestErr)
	}

	if s.recorder != nil && len(out.Jobs) > 0 {
		if err := s.recorder.Record(ctx, out.BatchID, out.Jobs); err != nil {
			logger.Warn("record batch", "error", err)
			out.RecordErr = err
		}
	}

	logger.Info("batch prepared",
		"jobs", len(out.Jobs),
		"skipped", len(out.Skipped),
		"output_dir", req.OutputDir,
	)
	return out, nil
}
