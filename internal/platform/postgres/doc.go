// Package postgres implements the store interfaces on PostgreSQL through the
// pgx stdlib driver. It also carries the schema migrations, embedded into the
// binary and applied with goose.
package postgres
