// Package migrations embeds the SQL schema migrations. Files apply in
// lexical order; see internal/platform/db.Migrate.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
