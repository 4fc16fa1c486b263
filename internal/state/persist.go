package state

import "context"

// Persister stores and reloads the whole state tree. Save is called with the
// store's mutex held, so implementations must not call back into the store.
type Persister interface {
	Load(ctx context.Context) (map[string]interface{}, error)
	Save(ctx context.Context, tree map[string]interface{}) error
}
