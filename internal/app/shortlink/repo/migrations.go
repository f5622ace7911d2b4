package repo

import "embed"

// Migrations holds the PostgreSQL schema, applied by platform/migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS
