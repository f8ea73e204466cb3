// Package db wraps pgx connection pooling for the control plane.
//
// Connect retries startup until PostgreSQL answers, Migrate applies embedded
// goose migrations through the pool, and WithTx scopes a unit of work to one
// transaction. UniqueViolation and IsNoRows translate driver errors so the
// store can map them onto domain errors.
//
//	pool, err := db.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := db.Migrate(ctx, pool, migrations.FS, cfg.MigrationsTable, log); err != nil {
//		return err
//	}
package db
