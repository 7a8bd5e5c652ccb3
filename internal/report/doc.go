// Package report renders scan results for people and machines and keeps the
// investigation report file.
package report
