// Package store persists the accepted baseline and the snapshots used for
// content diffs.
//
// Two backends are provided: a CSV baseline file paired with a snapshot
// directory, and a single SQLite database holding both.
package store
