// internal/reserve/resolver_test.go
package reserve

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// racingClaimer simulates another process creating a path just before we do.
type racingClaimer struct {
	store *Store
	steal map[string]bool
}

func (c *racingClaimer) Claim(path string) error {
	if c.steal[path] {
		delete(c.steal, path)
		if err := os.WriteFile(path, []byte("other process"), 0644); err != nil {
			return err
		}
	}
	return c.store.Claim(path)
}

type failingClaimer struct{ err error }

func (c failingClaimer) Claim(string) error { return c.err }

func TestResolver_FreePathUnchanged(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "video.mp4")

	got, err := NewResolver(NewStore(), 0).Reserve(base)
	require.NoError(t, err)
	assert.Equal(t, base, got)
	assert.FileExists(t, got)
}

func TestResolver_Suffixes(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "video.mp4")
	r := NewResolver(NewStore(), 0)

	want := []string{"video.mp4", "video (1).mp4", "video (2).mp4", "video (3).mp4"}
	for _, name := range want {
		got, err := r.Reserve(base)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, name), got)
	}
	assert.Len(t, r.Reserved(), len(want))
}

func TestResolver_CollisionAfterSuffix(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"video.mp4", "video (1).mp4", "video (2).mp4"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	got, err := NewResolver(NewStore(), 0).Reserve(filepath.Join(dir, "video.mp4"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "video (3).mp4"), got)
}

func TestResolver_LostRaceMovesOn(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "video.mp4")
	claimer := &racingClaimer{store: NewStore(), steal: map[string]bool{base: true}}

	got, err := NewResolver(claimer, 0).Reserve(base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "video (1).mp4"), got)

	// The winner's file is untouched
	content, err := os.ReadFile(base)
	require.NoError(t, err)
	assert.Equal(t, "other process", string(content))
}

func TestResolver_Exhausted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"video.mp4", "video (1).mp4", "video (2).mp4"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	_, err := NewResolver(NewStore(), 3).Reserve(filepath.Join(dir, "video.mp4"))
	assert.ErrorIs(t, err, ErrResolutionExhausted)
}

func TestResolver_IOErrorStops(t *testing.T) {
	boom := errors.New("disk full")
	_, err := NewResolver(failingClaimer{err: boom}, 0).Reserve("/x/video.mp4")
	assert.ErrorIs(t, err, boom)
}

func TestResolver_EmptyStem(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, ".mp4")
	r := NewResolver(NewStore(), 0)

	first, err := r.Reserve(base)
	require.NoError(t, err)
	assert.Equal(t, base, first)

	second, err := r.Reserve(base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "(1).mp4"), second)
}

func TestCandidateName(t *testing.T) {
	assert.Equal(t, "a.mp4", CandidateName("a", ".mp4", 0))
	assert.Equal(t, "a (12).mp4", CandidateName("a", ".mp4", 12))
	assert.Equal(t, "noext (1)", CandidateName("noext", "", 1))
}

func TestCandidateName_LengthLimit(t *testing.T) {
	stem := strings.Repeat("é", 200) // 400 bytes

	for _, attempt := range []int{0, 1, 100} {
		name := CandidateName(stem, ".webm", attempt)
		assert.LessOrEqual(t, len(name), MaxNameBytes)
		assert.True(t, utf8.ValidString(name), "truncation must not split runes")
		assert.True(t, strings.HasSuffix(name, ".webm"))
	}

	// Distinct attempts stay distinct after truncation
	assert.NotEqual(t, CandidateName(stem, ".webm", 1), CandidateName(stem, ".webm", 2))
}

func TestFitName(t *testing.T) {
	assert.Equal(t, "short.mp4", FitName("short.mp4"))
	long := strings.Repeat("a", 300) + ".mp4"
	fitted := FitName(long)
	assert.Len(t, fitted, MaxNameBytes)
	assert.True(t, strings.HasSuffix(fitted, ".mp4"))
}
