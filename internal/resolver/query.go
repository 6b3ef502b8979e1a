package resolver

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-resolver/internal/directory"
	"github.com/nerrad567/gray-logic-resolver/internal/inventory"
	"github.com/nerrad567/gray-logic-resolver/internal/variables"
)

// SystemInfo identifies the controller in a snapshot.
type SystemInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	UUID    string `json:"uuid"`
}

// Snapshot is the answer to an inventory query.
type Snapshot struct {
	Devices     map[string]*inventory.Device   `json:"devices"`
	Schema      map[string]any                 `json:"schema"`
	Rooms       map[string]directory.Room      `json:"rooms"`
	Floorplans  map[string]directory.Floorplan `json:"floorplans"`
	Locations   map[string]directory.Location  `json:"locations"`
	System      SystemInfo                     `json:"system"`
	Variables   map[string]string              `json:"variables"`
	Environment variables.Environment          `json:"environment"`
}

// Inventory flags devices not seen for twice the discovery interval as
// stale and returns a snapshot of the control plane. It must run on the
// reactor.
func (r *Resolver) Inventory(ctx context.Context) (*Snapshot, error) {
	if flipped := r.inv.MarkStale(r.now(), 2*r.discoverInterval); len(flipped) > 0 {
		r.logger.Info("devices marked stale", "count", len(flipped), "uuids", flipped)
		r.inventoryChanged()
	}

	rooms, err := r.dir.Rooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading rooms: %w", err)
	}
	floorplans, err := r.dir.Floorplans(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading floorplans: %w", err)
	}
	locations, err := r.dir.Locations(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading locations: %w", err)
	}

	return &Snapshot{
		Devices:    r.inv.Snapshot(),
		Schema:     r.schema,
		Rooms:      rooms,
		Floorplans: floorplans,
		Locations:  locations,
		System: SystemInfo{
			Name:    r.siteName,
			Version: r.version,
			UUID:    r.uuid,
		},
		Variables:   r.vars.All(),
		Environment: r.env,
	}, nil
}

// QueryInventory runs Inventory on the reactor and waits for its result.
// It is safe to call from any goroutine.
func (r *Resolver) QueryInventory(ctx context.Context) (*Snapshot, error) {
	var (
		snap *Snapshot
		err  error
	)
	if doErr := r.Do(ctx, func(ctx context.Context) {
		snap, err = r.Inventory(ctx)
	}); doErr != nil {
		return nil, doErr
	}
	return snap, err
}
