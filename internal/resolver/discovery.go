package resolver

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-resolver/internal/bus"
	"github.com/nerrad567/gray-logic-resolver/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-resolver/internal/inventory"
)

// BroadcastDiscover asks every driver to re-announce its devices, then
// announces the controller itself. It must run on the reactor.
func (r *Resolver) BroadcastDiscover(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.publishTo(mqtt.Topics{}.BroadcastDiscover(), bus.NewDiscover(r.now())); err != nil {
		return fmt.Errorf("broadcasting discover: %w", err)
	}
	r.metrics.DiscoveryBroadcast()
	r.logger.Debug("discovery broadcast sent")

	r.SelfAnnounce(ctx)
	return nil
}

// SelfAnnounce adds the controller to its own inventory and announces it
// on the bus. It must run on the reactor.
func (r *Resolver) SelfAnnounce(ctx context.Context) {
	a := bus.Announce{
		UUID:       r.uuid,
		DeviceType: inventory.ControllerType,
		InternalID: inventory.ControllerType,
		HandledBy:  HandledBy,
	}
	r.announce(ctx, a)
	r.publish(bus.SubjectAnnounce, a)
}
