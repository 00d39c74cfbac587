package webhook

import (
	"context"

	"bountyhooks/pkg/storage"
)

// Registry resolves hook secrets from the repository table.
type Registry struct {
	store storage.RepositoryStore
}

// NewRegistry creates a Registry backed by store.
func NewRegistry(store storage.RepositoryStore) *Registry {
	return &Registry{store: store}
}

// HookSecret implements SecretResolver.
func (r *Registry) HookSecret(ctx context.Context, fullName string) (string, error) {
	record, err := r.store.GetRepository(ctx, fullName)
	if err != nil || record == nil {
		return "", err
	}
	return record.HookSecret, nil
}
