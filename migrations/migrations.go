// Package migrations embeds the storefront schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
