// Package probe reads the integrity-relevant facts of a single file: its SHA-256
// content digest, permission bits, owning account, metadata change time, and
// line content.
//
// A vanished file is reported through ErrNotFound so callers can classify it as
// deleted; every other fault is wrapped in *Error.
package probe
