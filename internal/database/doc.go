// Package database implements the PostgreSQL-backed repositories.
//
// Uses a pgx connection pool shared across repositories. Migrations are a
// fixed list of idempotent statements applied on startup. Cascade deletes
// remove dependents before their parent inside one transaction.
package database
