// Package postgres implements the internal/store interfaces on PostgreSQL
// through database/sql and the pgx stdlib driver. Schedules are stored as
// JSONB; terminal execution uniqueness is enforced by a partial unique index
// so concurrent batch runs cannot record one occurrence twice. Schema
// changes ship as embedded goose migrations applied by Migrate.
package postgres
