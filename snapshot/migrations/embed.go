package migrations

import "embed"

// FS contains embedded SQLite migrations for the household snapshots.
//
//go:embed *.sql
var FS embed.FS
