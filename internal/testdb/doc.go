//go:build integration

// Package testdb connects integration tests to a real Postgres database.
//
// Tests call Open, which skips the test unless INSIGHT_TEST_DATABASE_URL or
// DATABASE_URL is set, applies the embedded migrations and closes the pool
// when the test ends. WithTx runs a test body inside a transaction that is
// always rolled back so tests do not see each other's rows:
//
//	db := testdb.Open(t)
//	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//		s := postgres.NewPostgresInsightStore(tx)
//		...
//	})
//
// Run with: go test -tags=integration ./...
package testdb
