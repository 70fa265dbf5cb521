// Package migrations embeds the postgres schema for the ledger and submission tables.
package migrations

import "embed"

// FS contains the NNNNNN_name.{up,down}.sql migration files.
//
//go:embed *.sql
var FS embed.FS
