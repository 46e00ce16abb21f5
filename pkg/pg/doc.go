// Package pg bootstraps the PostgreSQL layer shared by the Postgres
// role/user source and the Postgres audit sink.
//
// It wraps pgx/v5 for pooled connectivity and goose/v3 for schema
// migrations. The permission schema ships embedded in the package, so
// Migrate needs no filesystem path:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//		return err
//	}
package pg
