package monitor

import "errors"

var (
	// ErrBaselineMissing reports that no baseline has been recorded yet.
	ErrBaselineMissing = errors.New("baseline missing; run \"fimon init\" to record one")
	// ErrBaselineExists reports that init would overwrite an accepted baseline.
	ErrBaselineExists = errors.New("baseline already exists; pass --force to replace it")
	// ErrNothingToTrack reports that init found no files to record.
	ErrNothingToTrack = errors.New("no files to track")
)
