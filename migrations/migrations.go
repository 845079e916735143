// Package migrations embeds the goose SQL migrations of both databases.
package migrations

import "embed"

// Postgres holds the server schema.
//
//go:embed postgres/*.sql
var Postgres embed.FS

// SQLite holds the on-device schema.
//
//go:embed sqlite/*.sql
var SQLite embed.FS
