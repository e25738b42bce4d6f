//go:build !cgo_sqlite

package store

// Compiled by default: a pure Go SQLite implementation, no C compiler
// required, which keeps cross-compilation trivial.
//
// Build command:
//   CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver registered by the active build.
	DriverName = "sqlite"

	// BuildMode describes the current build configuration.
	BuildMode = "purego"
)
