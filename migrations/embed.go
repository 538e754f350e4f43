// Package migrations embeds the SQL schema migrations.
package migrations

import "embed"

// FS holds the migration files, named NNN_description.sql
//
//go:embed *.sql
var FS embed.FS
