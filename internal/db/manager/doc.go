// Package manager creates and drops the scrape database from a connection to
// the maintenance database. Identifiers are quoted with pgx.Identifier.Sanitize,
// so names containing spaces, quotes or semicolons are safe.
//
//	mgr := manager.New()
//	created, err := manager.EnsureDatabase(ctx, mgr, maintenancePool, "scrapethissite")
package manager
