package batch_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/batchprep/internal/batch"
	"github.com/vmunix/batchprep/internal/batch/mocks"
	"github.com/vmunix/batchprep/internal/manifest"
	"github.com/vmunix/batchprep/internal/media"
	"github.com/vmunix/batchprep/internal/naming"
	"github.com/vmunix/batchprep/internal/reserve"
)

func newService(recorder batch.Recorder) *batch.Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	builder := batch.NewBuilder(reserve.NewStore(), batch.BuilderConfig{}, logger)
	return batch.NewService(builder, recorder, logger)
}

func prepareRequest(dir string) batch.PrepareRequest {
	return batch.PrepareRequest{
		Request: batch.Request{
			Items: []media.Item{
				{ID: "a", Title: "First", Duration: media.DurationOf(90)},
				{ID: "b", Title: "Second", Duration: media.DurationOf(185)},
				{ID: "c", Title: "Live"},
			},
			Policy:    naming.DefaultPolicy(),
			Container: media.MP4,
			Quality:   media.QualityHighest,
			OutputDir: dir,
		},
		Title:            "My Playlist",
		GenerateManifest: true,
	}
}

func TestService_Prepare(t *testing.T) {
	dir := t.TempDir()
	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecorder(ctrl)

	var recordedID string
	rec.EXPECT().
		Record(gomock.Any(), gomock.Any(), gomock.Len(3)).
		DoAndReturn(func(_ context.Context, batchID string, jobs []batch.Job) error {
			recordedID = batchID
			return nil
		})

	out, err := newService(rec).Prepare(context.Background(), prepareRequest(dir))
	require.NoError(t, err)

	assert.NotEmpty(t, out.BatchID)
	assert.Equal(t, out.BatchID, recordedID)
	assert.Len(t, out.Jobs, 3)
	assert.NoError(t, out.ManifestErr)
	assert.NoError(t, out.RecordErr)

	assert.Equal(t, filepath.Join(dir, manifest.DefaultFileName), out.ManifestPath)
	content, err := os.ReadFile(out.ManifestPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "My Playlist\nVideos List:\n"))
	assert.True(t, strings.HasSuffix(string(content), "Playlist Duration: 00:04:35\n"))
}

func TestService_Prepare_ManifestListsAvailableItems(t *testing.T) {
	dir := t.TempDir()
	req := prepareRequest(dir)
	req.ManifestItems = req.Items
	req.Items = req.Items[:1]
	req.ManifestName = "info.txt"

	out, err := newService(nil).Prepare(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, out.Jobs, 1)

	content, err := os.ReadFile(filepath.Join(dir, "info.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "Second 00:03:05")
	assert.Contains(t, string(content), "Live N/A")
}

func TestService_Prepare_ManifestFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	// A directory where the manifest should go makes the rename fail
	require.NoError(t, os.Mkdir(filepath.Join(dir, manifest.DefaultFileName), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.DefaultFileName, "keep"), nil, 0644))

	out, err := newService(nil).Prepare(context.Background(), prepareRequest(dir))
	require.NoError(t, err)
	assert.Len(t, out.Jobs, 3)
	assert.ErrorIs(t, out.ManifestErr, manifest.ErrManifestIO)
}

func TestService_Prepare_RecordFailureIsNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecorder(ctrl)
	rec.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("database is locked"))

	out, err := newService(rec).Prepare(context.Background(), prepareRequest(t.TempDir()))
	require.NoError(t, err)
	assert.Len(t, out.Jobs, 3)
	assert.EqualError(t, out.RecordErr, "database is locked")
}

func TestService_Prepare_NothingToRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecorder(ctrl) // no calls expected

	req := prepareRequest(t.TempDir())
	req.Items = nil
	req.GenerateManifest = false

	out, err := newService(rec).Prepare(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, out.Jobs)
	assert.Empty(t, out.ManifestPath)
}

func TestService_Prepare_Canceled(t *testing.T) {
	dir := t.TempDir()
	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecorder(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := newService(rec).Prepare(ctx, prepareRequest(dir))
	assert.Nil(t, out)
	assert.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no placeholders and no manifest")
}

func TestService_Prepare_PolicyError(t *testing.T) {
	dir := t.TempDir()
	req := prepareRequest(dir)
	req.Policy.Template = "{bogus}"

	out, err := newService(nil).Prepare(context.Background(), req)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, naming.ErrPolicy)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "policy errors create nothing")
}

// cancelAfterStore cancels the batch context once n placeholders are claimed.
type cancelAfterStore struct {
	*reserve.Store
	n      int
	cancel context.CancelFunc
}

func (s *cancelAfterStore) Claim(path string) error {
	if err := s.Store.Claim(path); err != nil {
		return err
	}
	s.n--
	if s.n == 0 {
		s.cancel()
	}
	return nil
}

func TestService_Prepare_CanceledMidBatchWritesNoManifest(t *testing.T) {
	for _, policy := range []batch.AbortPolicy{batch.KeepReservations, batch.ReleaseReservations} {
		t.Run(string(policy), func(t *testing.T) {
			dir := t.TempDir()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			store := &cancelAfterStore{Store: reserve.NewStore(), n: 1, cancel: cancel}
			builder := batch.NewBuilder(store, batch.BuilderConfig{OnAbort: policy}, logger)

			ctrl := gomock.NewController(t)
			rec := mocks.NewMockRecorder(ctrl) // nothing recorded for a canceled batch

			out, err := batch.NewService(builder, rec, logger).Prepare(ctx, prepareRequest(dir))
			assert.Nil(t, out)
			assert.ErrorIs(t, err, context.Canceled)

			assert.NoFileExists(t, filepath.Join(dir, manifest.DefaultFileName))
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			for _, e := range entries {
				assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "staged manifest left behind: %s", e.Name())
			}
		})
	}
}
