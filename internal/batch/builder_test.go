package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/batchprep/internal/media"
	"github.com/vmunix/batchprep/internal/naming"
	"github.com/vmunix/batchprep/internal/reserve"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBuilder(cfg BuilderConfig) *Builder {
	return NewBuilder(reserve.NewStore(), cfg, testLogger())
}

func makeItems(n int) []media.Item {
	items := make([]media.Item, n)
	for i := range items {
		items[i] = media.Item{
			ID:       fmt.Sprintf("id%02d", i+1),
			Title:    fmt.Sprintf("Video %d", i+1),
			Duration: media.DurationOf(int64(60 * (i + 1))),
		}
	}
	return items
}

func baseRequest(dir string, items []media.Item) Request {
	return Request{
		Items:     items,
		Policy:    naming.DefaultPolicy(),
		Container: media.MP4,
		Quality:   media.Quality720p,
		OutputDir: dir,
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// hookStore lets tests interfere with individual claims.
type hookStore struct {
	*reserve.Store
	beforeClaim func(n int, path string) error
	claims      int
}

func (s *hookStore) Claim(path string) error {
	s.claims++
	if s.beforeClaim != nil {
		if err := s.beforeClaim(s.claims, path); err != nil {
			return err
		}
	}
	return s.Store.Claim(path)
}

func TestBuild_OneJobPerItem(t *testing.T) {
	dir := t.TempDir()
	items := makeItems(5)
	items[3].Title = items[1].Title // duplicate name within the batch

	res, err := newTestBuilder(BuilderConfig{}).Build(context.Background(), baseRequest(dir, items))
	require.NoError(t, err)
	require.Len(t, res.Jobs, len(items))
	assert.Empty(t, res.Skipped)

	seen := make(map[string]bool)
	for i, job := range res.Jobs {
		assert.Equal(t, i+1, job.Ordinal, "jobs keep selection order")
		assert.Equal(t, items[i].ID, job.Item.ID)
		assert.Equal(t, media.MP4, job.Container)
		assert.Equal(t, media.Quality720p, job.Quality)
		assert.False(t, seen[job.Path], "duplicate path %s", job.Path)
		seen[job.Path] = true

		info, err := os.Stat(job.Path)
		require.NoError(t, err, "placeholder must exist")
		assert.Zero(t, info.Size())
		assert.NoError(t, reserve.ValidatePath(job.Path, dir))
	}

	assert.Equal(t, filepath.Join(dir, "Video 2.mp4"), res.Jobs[1].Path)
	assert.Equal(t, filepath.Join(dir, "Video 2 (1).mp4"), res.Jobs[3].Path)
}

func TestBuild_SkipExisting(t *testing.T) {
	dir := t.TempDir()
	items := makeItems(3)
	existing := filepath.Join(dir, "Video 2.mp4")
	require.NoError(t, os.WriteFile(existing, []byte("downloaded"), 0644))

	req := baseRequest(dir, items)
	req.SkipExisting = true

	res, err := newTestBuilder(BuilderConfig{}).Build(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, res.Jobs, 2)
	assert.Equal(t, "id01", res.Jobs[0].Item.ID)
	assert.Equal(t, "id03", res.Jobs[1].Item.ID)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 2, res.Skipped[0].Ordinal)
	assert.Equal(t, existing, res.Skipped[0].Path)

	// No "Video 2 (1).mp4" placeholder for the skipped item
	assert.ElementsMatch(t, []string{"Video 1.mp4", "Video 2.mp4", "Video 3.mp4"}, listDir(t, dir))
}

func TestBuild_WithoutSkipExistingSuffixes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Video 1.mp4"), []byte("old"), 0644))

	res, err := newTestBuilder(BuilderConfig{}).Build(context.Background(), baseRequest(dir, makeItems(1)))
	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)
	assert.Equal(t, filepath.Join(dir, "Video 1 (1).mp4"), res.Jobs[0].Path)
}

func TestBuild_IdempotentWithSkipExisting(t *testing.T) {
	dir := t.TempDir()
	req := baseRequest(dir, makeItems(4))
	req.SkipExisting = true
	b := newTestBuilder(BuilderConfig{})

	first, err := b.Build(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, first.Jobs, 4)

	second, err := b.Build(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, second.Jobs)
	assert.Len(t, second.Skipped, 4)
	assert.Len(t, listDir(t, dir), 4)
}

func TestBuild_SequencePadding(t *testing.T) {
	dir := t.TempDir()
	req := baseRequest(dir, makeItems(12))
	req.Policy.Sequential = true
	req.PlaylistContext = true

	res, err := newTestBuilder(BuilderConfig{}).Build(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Jobs, 12)

	assert.Equal(t, "01-Video 1.mp4", filepath.Base(res.Jobs[0].Path))
	assert.Equal(t, "09-Video 9.mp4", filepath.Base(res.Jobs[8].Path))
	assert.Equal(t, "12-Video 12.mp4", filepath.Base(res.Jobs[11].Path))
}

func TestBuild_SequentialOutsidePlaylistUsesTemplate(t *testing.T) {
	dir := t.TempDir()
	req := baseRequest(dir, makeItems(2))
	req.Policy.Sequential = true
	req.Policy.Template = "{id} {title}"

	res, err := newTestBuilder(BuilderConfig{}).Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "id01 Video 1.mp4", filepath.Base(res.Jobs[0].Path))
}

func TestBuild_SubdirectoriesCreated(t *testing.T) {
	dir := t.TempDir()
	items := makeItems(1)
	items[0].Author = "Some Channel"
	req := baseRequest(dir, items)
	req.Policy.Template = "{author}/{title}.{ext}"
	req.Container = media.OGG

	res, err := newTestBuilder(BuilderConfig{}).Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Some Channel", "Video 1.ogg"), res.Jobs[0].Path)
	assert.FileExists(t, res.Jobs[0].Path)
}

func TestBuild_EmptySelection(t *testing.T) {
	res, err := newTestBuilder(BuilderConfig{}).Build(context.Background(), baseRequest(t.TempDir(), nil))
	require.NoError(t, err)
	assert.Empty(t, res.Jobs)
}

func TestBuild_DefaultQuality(t *testing.T) {
	req := baseRequest(t.TempDir(), makeItems(1))
	req.Quality = ""

	res, err := newTestBuilder(BuilderConfig{}).Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, media.QualityHighest, res.Jobs[0].Quality)
}

func TestBuild_PolicyErrorCreatesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	req := baseRequest(dir, makeItems(3))
	req.Policy.Template = "{title} {unknown}"

	res, err := newTestBuilder(BuilderConfig{}).Build(context.Background(), req)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, naming.ErrPolicy)
	assert.NoDirExists(t, dir)
}

func TestBuild_ExpandedTraversalFailsBeforeReserving(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	items := makeItems(3)
	items[0].UploadDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// items[1] has no date, so its name expands to "../Video 2.mp4"
	req := baseRequest(dir, items)
	req.Policy.Template = "{upload_date}../{title}"
	require.NoError(t, req.Policy.Validate(), "the template alone looks fine")

	res, err := newTestBuilder(BuilderConfig{}).Build(context.Background(), req)
	assert.Nil(t, res)
	require.ErrorIs(t, err, naming.ErrPolicy)

	var be *BatchError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 2, be.Ordinal)
	assert.NoDirExists(t, dir, "item 1 must not be reserved")
}

func TestBuild_InvalidRequest(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Request)
	}{
		{"no output dir", func(r *Request) { r.OutputDir = " " }},
		{"no container", func(r *Request) { r.Container = media.Container{} }},
		{"bad quality", func(r *Request) { r.Quality = "8k" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest(t.TempDir(), makeItems(1))
			tt.modify(&req)
			_, err := newTestBuilder(BuilderConfig{}).Build(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestBuild_CanceledBeforeStart(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestBuilder(BuilderConfig{}).Build(ctx, baseRequest(dir, makeItems(3)))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, listDir(t, dir))
}

func TestBuild_CanceledBetweenItems(t *testing.T) {
	for _, policy := range []AbortPolicy{KeepReservations, ReleaseReservations} {
		t.Run(string(policy), func(t *testing.T) {
			dir := t.TempDir()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			store := &hookStore{Store: reserve.NewStore()}
			store.beforeClaim = func(n int, _ string) error {
				if n == 2 {
					cancel() // takes effect before item 3
				}
				return nil
			}

			b := NewBuilder(store, BuilderConfig{OnAbort: policy}, testLogger())
			res, err := b.Build(ctx, baseRequest(dir, makeItems(3)))
			assert.Nil(t, res)
			assert.ErrorIs(t, err, context.Canceled)

			if policy == KeepReservations {
				assert.ElementsMatch(t, []string{"Video 1.mp4", "Video 2.mp4"}, listDir(t, dir))
			} else {
				assert.Empty(t, listDir(t, dir))
			}
		})
	}
}

func TestBuild_ReservationFailureAborts(t *testing.T) {
	dir := t.TempDir()
	diskFull := fmt.Errorf("%w: create placeholder: no space left on device", reserve.ErrReservationIO)

	store := &hookStore{Store: reserve.NewStore()}
	store.beforeClaim = func(n int, _ string) error {
		if n == 3 {
			return diskFull
		}
		return nil
	}

	b := NewBuilder(store, BuilderConfig{}, testLogger())
	res, err := b.Build(context.Background(), baseRequest(dir, makeItems(4)))
	assert.Nil(t, res, "no partial job list")
	require.ErrorIs(t, err, reserve.ErrReservationIO)

	var be *BatchError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 3, be.Ordinal)
	assert.Equal(t, "id03", be.ItemID)

	// Earlier reservations stay with the default policy
	assert.ElementsMatch(t, []string{"Video 1.mp4", "Video 2.mp4"}, listDir(t, dir))
}

func TestBuild_ReleaseKeepsDownloadedContent(t *testing.T) {
	dir := t.TempDir()
	store := &hookStore{Store: reserve.NewStore()}
	store.beforeClaim = func(n int, _ string) error {
		if n == 2 {
			// A fast downloader already wrote into the first placeholder
			if err := os.WriteFile(filepath.Join(dir, "Video 1.mp4"), []byte("data"), 0644); err != nil {
				return err
			}
			return reserve.ErrReservationIO
		}
		return nil
	}

	b := NewBuilder(store, BuilderConfig{OnAbort: ReleaseReservations}, testLogger())
	_, err := b.Build(context.Background(), baseRequest(dir, makeItems(2)))
	require.ErrorIs(t, err, reserve.ErrReservationIO)
	assert.Equal(t, []string{"Video 1.mp4"}, listDir(t, dir))
}

func TestBuild_ResolutionExhausted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"Video 1.mp4", "Video 1 (1).mp4"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	b := newTestBuilder(BuilderConfig{MaxAttempts: 2})
	_, err := b.Build(context.Background(), baseRequest(dir, makeItems(1)))
	assert.ErrorIs(t, err, reserve.ErrResolutionExhausted)
}

func TestBuild_RelativeOutputDir(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	res, err := newTestBuilder(BuilderConfig{}).Build(context.Background(), baseRequest("out", makeItems(1)))
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(res.Jobs[0].Path))
	assert.FileExists(t, filepath.Join(dir, "out", "Video 1.mp4"))
}
