// Package catalog answers questions about tables and builds their DDL.
//
// All statements take a pgdal.Querier, so the same Inspector works on a pool
// or inside a transaction. Identifiers are always quoted with
// pgx.Identifier.Sanitize(), which handles names with spaces, quotes or
// mixed case.
//
//	inspector := catalog.New()
//	exists, err := inspector.TableExists(ctx, conn, pgdal.NewTableRef("sales", "orders"))
//
// # Thread Safety
//
// Inspector holds no state and is safe for concurrent use; thread safety of
// each call depends on the Querier passed in.
package catalog
