// Package migrations embeds the goose migration files for the SQLite KV.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
