package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/batchprep/internal/batch"
	"github.com/vmunix/batchprep/internal/config"
	"github.com/vmunix/batchprep/internal/history"
	"github.com/vmunix/batchprep/internal/media"
	"github.com/vmunix/batchprep/internal/naming"
	"github.com/vmunix/batchprep/internal/reserve"
)

// prepareOptions are the prepare flags. Unset pointer fields fall back to config.
type prepareOptions struct {
	itemsPath    string
	outDir       string
	container    string
	quality      string
	template     string
	title        string
	skipExisting *bool
	manifest     *bool
	sequential   *bool
	playlist     bool
}

var prepareFlags prepareOptions

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Reserve output paths and emit download jobs",
	Long: `Reads a JSON selection of videos, resolves a unique output path for
each one and reserves it with an empty placeholder file.

Items file format:
  {"title": "My Playlist",
   "items": [{"id": "abc", "title": "Intro", "author": "Chan",
              "upload_date": "2024-05-01", "duration_seconds": 90}]}

A missing or null duration_seconds marks a live video.`,
	Args: cobra.NoArgs,
	RunE: runPrepare,
}

func init() {
	f := prepareCmd.Flags()
	f.StringVar(&prepareFlags.itemsPath, "items", "", "JSON items file (required)")
	f.StringVarP(&prepareFlags.outDir, "out", "o", "", "Output directory (default: output.dir)")
	f.StringVar(&prepareFlags.container, "container", "", "Container format, e.g. "+strings.Join(containerNames(), ", "))
	f.StringVar(&prepareFlags.quality, "quality", "", "Quality preference: "+strings.Join(qualityNames(), ", "))
	f.StringVar(&prepareFlags.template, "template", "", "Filename template (default: naming.template)")
	f.StringVar(&prepareFlags.title, "title", "", "Batch title (default: items file title)")
	f.Bool("skip-existing", false, "Skip videos whose file already exists")
	f.Bool("manifest", false, "Write a playlist manifest")
	f.Bool("sequence", false, "Number files in playlist order")
	f.BoolVar(&prepareFlags.playlist, "playlist", false, "Treat the batch as a playlist")
	_ = prepareCmd.MarkFlagRequired("items")
	rootCmd.AddCommand(prepareCmd)
}

func runPrepare(cmd *cobra.Command, _ []string) error {
	opts := prepareFlags
	opts.skipExisting = changedBool(cmd, "skip-existing")
	opts.manifest = changedBool(cmd, "manifest")
	opts.sequential = changedBool(cmd, "sequence")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.Log.Level)

	return prepare(cmd.Context(), cfg, opts, jsonOutput, cmd.OutOrStdout(), logger)
}

func containerNames() []string {
	var names []string
	for _, c := range media.Containers() {
		names = append(names, c.Name)
	}
	return names
}

func qualityNames() []string {
	var names []string
	for _, q := range media.QualityPreferences() {
		names = append(names, q.String())
	}
	return names
}

func changedBool(cmd *cobra.Command, name string) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetBool(name)
	return &v
}

func prepare(ctx context.Context, cfg *config.Config, opts prepareOptions, asJSON bool, w io.Writer, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	file, err := readItemsFile(opts.itemsPath)
	if err != nil {
		return err
	}
	req, err := buildPrepareRequest(cfg, opts, file)
	if err != nil {
		return err
	}

	var recorder batch.Recorder
	if cfg.History.Enabled {
		db, err := history.Open(config.ExpandHome(cfg.History.Path))
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		recorder = history.NewStore(db)
	}

	builder := batch.NewBuilder(reserve.NewStore(), batch.BuilderConfig{
		MaxAttempts: cfg.Reservation.MaxAttempts,
		OnAbort:     batch.AbortPolicy(cfg.Reservation.OnAbort),
	}, logger.With("component", "builder"))
	svc := batch.NewService(builder, recorder, logger.With("component", "batch"))

	prepared, err := svc.Prepare(ctx, req)
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(w, newPrepareOutput(prepared))
	}
	printPreparedHuman(w, prepared)
	return nil
}

// buildPrepareRequest merges config and flags into a service request.
func buildPrepareRequest(cfg *config.Config, opts prepareOptions, file *itemsFile) (batch.PrepareRequest, error) {
	items, err := file.mediaItems()
	if err != nil {
		return batch.PrepareRequest{}, err
	}

	outDir := opts.outDir
	if outDir == "" {
		outDir = cfg.Output.Dir
	}
	if outDir == "" {
		return batch.PrepareRequest{}, errors.New("no output directory: pass --out or set output.dir")
	}
	outDir = config.ExpandHome(outDir)

	containerName := firstNonEmpty(opts.container, cfg.Download.Container)
	container, err := media.ParseContainer(containerName)
	if err != nil {
		return batch.PrepareRequest{}, err
	}
	quality, err := media.ParseQualityPreference(firstNonEmpty(opts.quality, cfg.Download.Quality))
	if err != nil {
		return batch.PrepareRequest{}, err
	}

	policy := naming.Policy{
		Template:         firstNonEmpty(opts.template, cfg.Naming.Template),
		SequenceTemplate: cfg.Naming.SequenceTemplate,
		SequenceWidth:    cfg.Naming.SequenceWidth,
		Sequential:       boolOr(opts.sequential, cfg.Naming.AddSequenceNumber),
	}

	title := firstNonEmpty(opts.title, file.Title)
	playlist := opts.playlist
	if cfg.Naming.PlaylistDetection == "title" && naming.IsPlaylistTitle(title) {
		playlist = true
	}

	return batch.PrepareRequest{
		Request: batch.Request{
			Items:           items,
			Policy:          policy,
			Container:       container,
			Quality:         quality,
			OutputDir:       outDir,
			SkipExisting:    boolOr(opts.skipExisting, cfg.Output.SkipExisting),
			PlaylistContext: playlist,
		},
		Title:            title,
		GenerateManifest: boolOr(opts.manifest, cfg.Output.GenerateManifest),
		ManifestName:     cfg.Output.ManifestName,
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

type jobOutput struct {
	Ordinal   int    `json:"ordinal"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Container string `json:"container"`
	Quality   string `json:"quality"`
	MaxHeight int    `json:"max_height"` // 0 unbounded, -1 smallest available
	AudioOnly bool   `json:"audio_only"`
	Path      string `json:"path"`
}

type skipOutput struct {
	Ordinal int    `json:"ordinal"`
	ID      string `json:"id"`
	Path    string `json:"path"`
}

type prepareOutput struct {
	BatchID     string       `json:"batch_id"`
	Jobs        []jobOutput  `json:"jobs"`
	Skipped     []skipOutput `json:"skipped"`
	Manifest    string       `json:"manifest,omitempty"`
	ManifestErr string       `json:"manifest_error,omitempty"`
	RecordErr   string       `json:"record_error,omitempty"`
}

func newPrepareOutput(p *batch.Prepared) prepareOutput {
	out := prepareOutput{
		BatchID: p.BatchID,
		Jobs:    make([]jobOutput, 0, len(p.Jobs)),
		Skipped: make([]skipOutput, 0, len(p.Skipped)),
	}
	for _, j := range p.Jobs {
		out.Jobs = append(out.Jobs, jobOutput{
			Ordinal:   j.Ordinal,
			ID:        j.Item.ID,
			Title:     j.Item.String(),
			Container: j.Container.String(),
			Quality:   j.Quality.String(),
			MaxHeight: j.Quality.MaxHeight(),
			AudioOnly: j.Container.IsAudioOnly(),
			Path:      j.Path,
		})
	}
	for _, s := range p.Skipped {
		out.Skipped = append(out.Skipped, skipOutput{Ordinal: s.Ordinal, ID: s.Item.ID, Path: s.Path})
	}
	if p.ManifestErr != nil {
		out.ManifestErr = p.ManifestErr.Error()
	} else {
		out.Manifest = p.ManifestPath
	}
	if p.RecordErr != nil {
		out.RecordErr = p.RecordErr.Error()
	}
	return out
}

func printPreparedHuman(w io.Writer, p *batch.Prepared) {
	fmt.Fprintf(w, "Batch %s: %d jobs, %d skipped\n\n", p.BatchID, len(p.Jobs), len(p.Skipped))

	rows := make([][]string, 0, len(p.Jobs))
	for _, j := range p.Jobs {
		rows = append(rows, []string{
			strconv.Itoa(j.Ordinal), j.Item.ID, j.Container.String() + "/" + j.Quality.String(), j.Path,
		})
	}
	if len(rows) > 0 {
		fmt.Fprintln(w, renderTable(w, []string{"#", "ID", "Format", "Path"}, rows, 1))
	}

	if len(p.Skipped) > 0 {
		fmt.Fprintln(w, "\nSkipped (already exists):")
		for _, s := range p.Skipped {
			fmt.Fprintf(w, "  %d  %s  %s\n", s.Ordinal, s.Item.ID, filepath.Base(s.Path))
		}
	}

	switch {
	case p.ManifestErr != nil:
		fmt.Fprintf(w, "\nManifest not written: %v\n", p.ManifestErr)
	case p.ManifestPath != "":
		fmt.Fprintf(w, "\nManifest: %s\n", p.ManifestPath)
	}
	if p.RecordErr != nil {
		fmt.Fprintf(w, "History not recorded: %v\n", p.RecordErr)
	}
}
