package resolver

import (
	"context"
	"errors"
	"regexp"
	"strconv"

	"github.com/nerrad567/gray-logic-resolver/internal/bus"
	"github.com/nerrad567/gray-logic-resolver/internal/directory"
	"github.com/nerrad567/gray-logic-resolver/internal/inventory"
	"github.com/nerrad567/gray-logic-resolver/internal/variables"
)

const (
	quantityState        = "state"
	quantityBatteryLevel = "batterylevel"
	quantityPosition     = "position"
)

// environmentReading matches the generic environment.<quantity>changed
// subjects. The specific environment subjects are handled before it.
var environmentReading = regexp.MustCompile(`^event\.environment\.([a-z0-9_]+)changed$`)

// HandleEvent applies one bus event. Events for devices not in the
// inventory, malformed payloads and inventory defects are logged and
// returned; the inventory is left unchanged by them. Subjects without a
// rule are ignored.
func (r *Resolver) HandleEvent(ctx context.Context, ev bus.Event) error {
	r.metrics.EventHandled(ev.Subject)

	err := r.applyEvent(ctx, ev)
	switch {
	case err == nil:
	case errors.Is(err, inventory.ErrMissingValues):
		uuid, _ := ev.DeviceUUID()
		r.logger.Error("inventory entry has no values, update skipped", "subject", ev.Subject, "uuid", uuid)
	case errors.Is(err, inventory.ErrDeviceNotFound):
		uuid, _ := ev.DeviceUUID()
		r.logger.Warn("event for unknown device ignored", "subject", ev.Subject, "uuid", uuid)
	default:
		r.logger.Warn("event rejected", "subject", ev.Subject, "error", err)
	}
	if r.onEvent != nil {
		r.onEvent(ev)
	}
	return err
}

func (r *Resolver) applyEvent(ctx context.Context, ev bus.Event) error {
	switch ev.Subject {
	case bus.SubjectAnnounce:
		a, err := ev.Announce()
		if err != nil {
			return err
		}
		r.announce(ctx, a)
		return nil

	case bus.SubjectRemove:
		rm, err := ev.Remove()
		if err != nil {
			return err
		}
		if r.inv.Remove(rm.UUID) {
			r.logger.Info("device removed", "uuid", rm.UUID)
			r.inventoryChanged()
		}
		return nil

	case bus.SubjectStale:
		s, err := ev.Stale()
		if err != nil {
			return err
		}
		if err := r.inv.SetStale(s.UUID, *s.Stale); err != nil {
			return err
		}
		r.inventoryChanged()
		return nil

	case bus.SubjectTimeChanged:
		t, err := ev.TimeChanged()
		if err != nil {
			return err
		}
		r.vars.SetCalendar(variables.Calendar{
			Minute:  t.Minute,
			Hour:    t.Hour,
			Day:     t.Day,
			Weekday: t.Weekday,
			Month:   t.Month,
			Year:    t.Year,
		})
		return nil

	case bus.SubjectPositionChanged:
		return r.positionChanged(ev)

	case bus.SubjectStateChanged, bus.SubjectSensorTriggered:
		return r.reading(ev, quantityState)

	case bus.SubjectBatteryLevelChanged:
		return r.reading(ev, quantityBatteryLevel)
	}

	if m := environmentReading.FindStringSubmatch(ev.Subject); m != nil {
		return r.reading(ev, m[1])
	}
	return nil
}

// announce creates or refreshes the inventory entry for a device, copying
// its name and room from the directory.
func (r *Resolver) announce(ctx context.Context, a bus.Announce) {
	res := r.inv.Announce(inventory.Announcement{
		UUID:       a.UUID,
		DeviceType: a.DeviceType,
		InternalID: a.InternalID,
		HandledBy:  a.HandledBy,
	}, r.naming(ctx, a.UUID), r.now())

	switch {
	case res.Created:
		r.logger.Info("device announced", "uuid", a.UUID, "devicetype", a.DeviceType, "handled_by", a.HandledBy)
	case res.Conflict():
		r.logger.Warn("device re-announced with a different type",
			"uuid", a.UUID, "previous", res.PreviousType, "devicetype", a.DeviceType)
		r.metrics.DeviceTypeConflict()
	default:
		r.logger.Debug("device re-announced", "uuid", a.UUID)
	}
	r.inventoryChanged()
}

// naming reads a device's name and room from the directory. When the
// directory cannot be read, the inventory's current copy is kept.
func (r *Resolver) naming(ctx context.Context, uuid string) inventory.Naming {
	rec, err := r.dir.Device(ctx, uuid)
	if err == nil {
		return inventory.Naming{Name: rec.Name, Room: rec.Room}
	}
	if !errors.Is(err, directory.ErrDeviceNotFound) {
		r.logger.Error("failed to read device naming", "uuid", uuid, "error", err)
		if d, ok := r.inv.Get(uuid); ok {
			return inventory.Naming{Name: d.Name, Room: d.Room}
		}
	}
	return inventory.Naming{}
}

func (r *Resolver) positionChanged(ev bus.Event) error {
	p, err := ev.PositionChanged()
	if err != nil {
		return err
	}
	r.env.SetPosition(*p.Latitude, *p.Longitude)

	if p.UUID == "" || !r.inv.Contains(p.UUID) {
		return nil
	}
	err = r.inv.RecordValue(p.UUID, quantityPosition, inventory.Value{
		Unit:      p.Unit,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
	}, r.now())
	if err != nil {
		return err
	}
	r.inventoryChanged()
	return nil
}

// reading records a device-scoped level under quantity. The state quantity
// also sets the device's top-level state.
func (r *Resolver) reading(ev bus.Event, quantity string) error {
	rd, err := ev.Reading()
	if err != nil {
		return err
	}

	now := r.now()
	if quantity == quantityState {
		err = r.inv.SetState(rd.UUID, rd.Level, rd.Unit, now)
	} else {
		err = r.inv.RecordValue(rd.UUID, quantity, inventory.Value{Level: rd.Level, Unit: rd.Unit}, now)
	}
	if err != nil {
		return err
	}
	r.inventoryChanged()

	if v, ok := numeric(rd.Level); ok && r.recorder != nil {
		r.recorder.WriteDeviceValue(rd.UUID, quantity, rd.Unit, v, now)
	}
	return nil
}

func numeric(level any) (float64, bool) {
	switch v := level.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}
