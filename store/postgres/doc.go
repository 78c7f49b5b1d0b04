// Package postgres implements promptgate.UserStore on PostgreSQL through a
// pgx connection pool, with schema migrations embedded in the binary.
package postgres
