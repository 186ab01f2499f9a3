// Package migrations embeds the SQL schema for the Postgres key-value store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
