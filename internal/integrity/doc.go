// Package integrity implements the comparison engine of the file-integrity
// monitor.
//
// Baseline holds the accepted state of every tracked file. Scanner compares a
// baseline against the filesystem and produces ordered ChangeEvent values,
// attaching a line-level diff to content modifications. Reconciler applies an
// authorization decision to those events, updating the baseline and snapshot
// stores together. Guard serialises reconciliations against concurrent scans.
package integrity
