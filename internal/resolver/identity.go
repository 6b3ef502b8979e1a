package resolver

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-resolver/internal/appconfig"
)

// ResolveControllerUUID returns configured when set. Otherwise it reads
// the UUID from the resolver's app config, generating and storing one on
// first start.
func ResolveControllerUUID(configured string, store *appconfig.Store) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if id, ok := store.Get(App, "system", "uuid"); ok && id != "" {
		return id, nil
	}
	id := uuid.NewString()
	if err := store.Set(App, "system", "uuid", id); err != nil {
		return "", fmt.Errorf("storing controller uuid: %w", err)
	}
	return id, nil
}
