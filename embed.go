// Package tarjimon holds assets embedded into the bot binary.
package tarjimon

import "embed"

// MigrationsFS contains SQL migrations applied at startup.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
