package batch

import (
	"github.com/vmunix/batchprep/internal/media"
	"github.com/vmunix/batchprep/internal/naming"
)

// Request describes one batch.
type Request struct {
	// Items is the selection, in the order jobs should be produced.
	Items []media.Item

	// Policy controls file naming.
	Policy naming.Policy

	// Container and Quality are passed through to every job.
	Container media.Container
	Quality   media.QualityPreference

	// OutputDir is the directory all reserved paths live under.
	OutputDir string

	// SkipExisting drops items whose unsuffixed path already exists.
	SkipExisting bool

	// PlaylistContext selects the sequence template when the policy is sequential.
	PlaylistContext bool
}

// Job is a download job ready for the downloader. Path points to a
// placeholder created for this job; the downloader owns it from now on.
type Job struct {
	Ordinal   int
	Item      media.Item
	Container media.Container
	Quality   media.QualityPreference
	Path      string
}

// Skip records an item left out because its file already exists.
type Skip struct {
	Ordinal int
	Item    media.Item
	Path    string
}

// Result is the outcome of a successful build.
type Result struct {
	Jobs    []Job
	Skipped []Skip
}
