// Package rolestore provides the inbound data adapters that feed the
// permission engine its role and user definitions.
//
// A Source loads a complete versioned data set. The engine's store
// replaces its snapshot wholesale on each load, so a Source only needs
// to answer "give me everything as of version N"; there is no partial
// update protocol. Sources that can detect changes additionally
// implement Watcher, and Sync bridges a Source to a permission.Store,
// refreshing on demand, on change signals, or on a polling interval.
//
// Three sources ship with the package:
//
//   - Memory: in-process data, useful for tests and embedded setups.
//   - File: a YAML document carrying its own version number.
//   - Postgres: normalized tables with a single-row revision counter.
//
// Usage:
//
//	src, err := rolestore.NewFile("roles.yaml")
//	if err != nil {
//		return err
//	}
//	sync := rolestore.NewSync(src, store)
//	if err := sync.Refresh(ctx); err != nil {
//		return err
//	}
package rolestore
