// Package store persists user accounts in PostgreSQL (pgx) or SQLite (modernc)
// through database/sql, and adapts them to goCred.UserProvider.
//
// Schema changes ship as goose migrations embedded per dialect. The users row
// also carries the refresh_token column that session.SQLStore reads and writes;
// this package never touches that column outside of Delete.
package store
