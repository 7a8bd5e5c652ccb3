package store

import "errors"

// ErrBaselineNotFound reports that no baseline has been persisted yet.
var ErrBaselineNotFound = errors.New("baseline not found")
