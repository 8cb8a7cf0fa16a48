package db

import "embed"

// EmbedMigrations holds the goose migration files.
//
//go:embed migrations/*.sql
var EmbedMigrations embed.FS
