package rolestore

import (
	"context"

	"github.com/buildflow/permkit/pkg/permission"
)

// Data is a complete versioned role/user data set. Version must
// increase with every change the source persists; the engine rejects
// loads whose version does not advance.
type Data struct {
	Version uint64
	Roles   []permission.Role
	Users   []permission.User
}

// Source loads the full data set from a backing store.
type Source interface {
	Load(ctx context.Context) (Data, error)
}

// Watcher is implemented by sources that can signal data changes.
// Receiving from Changes means a Load would observe a newer version;
// signals may be coalesced.
type Watcher interface {
	Changes() <-chan struct{}
}
