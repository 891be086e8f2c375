//go:build cgo

package store

import (
	// Register the libsql driver; it requires cgo.
	_ "github.com/tursodatabase/go-libsql"
)
