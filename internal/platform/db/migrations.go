package db

import "embed"

// Migrations holds the SQL files applied by `medledger migrate up`.
//
//go:embed migrations/*.sql
var Migrations embed.FS
