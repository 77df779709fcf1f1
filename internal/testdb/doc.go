// Package testdb provides utilities specifically for database testing.
//
// Integration tests open a connection with GetTestDBWithT, which skips the test
// when no database URL is configured, apply the embedded goose migrations once
// with SetupTestDatabaseSchema, and run each case inside WithTx so every change
// is rolled back:
//
//	//go:build integration
//
//	func TestSessionRoundTrip(t *testing.T) {
//		db := testdb.GetTestDBWithT(t)
//		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//			sessions := postgres.NewPostgresSessionStore(tx, nil)
//			// ...
//		})
//	}
package testdb
