// Package store declares the persistence contracts of gauge: the catalog,
// session, response, plan and mastery stores, the transaction runner they
// share, and the errors callers match on. Implementations live in
// internal/platform/postgres.
package store
