// Package migrations embeds the PostgreSQL schema applied at startup and in integration tests.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
