package db

import "embed"

// Migrations holds the goose migrations for the results archive.
//
//go:embed migrations/*.sql
var Migrations embed.FS
