// Package migrations embeds the tern migrations for the tally schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
