// Package pgmigrations embeds the goose migration files for the Postgres KV.
package pgmigrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
