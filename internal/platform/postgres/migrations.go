package postgres

import "embed"

// Migrations holds the goose SQL migrations that create the schema.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory within Migrations that holds the files.
const MigrationsDir = "migrations"
