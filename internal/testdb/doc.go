//go:build integration

// Package testdb provides utilities for database integration tests.
//
// Each test runs in its own transaction, which is rolled back when the test
// completes, so tests may run in parallel against one database:
//
//	func TestMyFeature(t *testing.T) {
//	    t.Parallel()
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        taskStore := postgres.NewPostgresTaskStore(tx, nil)
//	        // ...
//	    })
//	}
//
// The connection string is read from DATABASE_URL, falling back to
// RECUR_TEST_DB_URL. Tests are skipped when neither is set.
package testdb
