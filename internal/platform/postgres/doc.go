// Package postgres implements the store interfaces on PostgreSQL through
// database/sql and the pgx driver. The schema lives in the embedded goose
// migrations.
package postgres
