// Package migrations embeds the SQL migration files applied by goose.
//
// Files follow the goose naming convention NNNNN_description.sql and run in
// order when the store opens.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
