// Package discovery enumerates the regular files under a monitored root.
package discovery
