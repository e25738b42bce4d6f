//go:build cgo_sqlite

package store

// Compiled when building with CGO and the cgo_sqlite tag. The C driver is
// noticeably faster on large payloads.
//
// Build command:
//   CGO_ENABLED=1 go build -tags cgo_sqlite ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver registered by the active build.
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration.
	BuildMode = "cgo"
)
