// Package migrations embeds the SQL schema so the migrate binary ships
// without a separate file tree.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
