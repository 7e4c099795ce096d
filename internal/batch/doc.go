// Package batch turns a selection of videos into download jobs whose output
// paths are already reserved on disk.
//
// Builder processes the selection in order and is the only place that
// creates placeholders. Service runs a Builder alongside the manifest writer
// and records the result in an optional ledger.
package batch
