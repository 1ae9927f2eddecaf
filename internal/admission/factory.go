package admission

import (
	"context"
	"strings"
)

// NewStore creates a postgres-backed counter store when configured,
// otherwise in-memory.
func NewStore(ctx context.Context, databaseURL string) (CounterStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewMemoryStore(), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}
