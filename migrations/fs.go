// Package migrations embeds the registry database schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
