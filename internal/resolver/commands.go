package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-resolver/internal/bus"
	"github.com/nerrad567/gray-logic-resolver/internal/directory"
	"github.com/nerrad567/gray-logic-resolver/internal/metrics"
)

type commandFunc func(ctx context.Context, req bus.Request) (any, error)

// created is the response data of commands that may generate a UUID.
type created struct {
	UUID string `json:"uuid"`
}

// HandleRequest answers one request. Requests targeting the controller's
// UUID reach the administrative commands; everything else is an
// inventory query.
func (r *Resolver) HandleRequest(ctx context.Context, req bus.Request) bus.Response {
	var (
		data any
		err  error
	)
	if req.Target == r.uuid {
		data, err = r.handleAdmin(ctx, req)
	} else {
		data, err = r.handleQuery(ctx, req)
	}

	now := r.now()
	switch {
	case err == nil:
		r.metrics.CommandHandled(req.Command, metrics.ResultOK)
		return bus.NewResponse(req.RequestID, data, now)

	case errors.Is(err, ErrUnknownCommand):
		r.metrics.CommandHandled(req.Command, metrics.ResultUnknown)
		r.logger.Debug("unknown command", "command", req.Command, "target", req.Target)
		return bus.NewErrorResponse(req.RequestID, bus.ErrCodeUnknownCommand, err.Error(), now)

	case errors.Is(err, bus.ErrMissingField), errors.Is(err, bus.ErrMalformed):
		r.metrics.CommandHandled(req.Command, metrics.ResultInvalid)
		return bus.NewErrorResponse(req.RequestID, bus.ErrCodeInvalidParameters, err.Error(), now)

	default:
		r.metrics.CommandHandled(req.Command, metrics.ResultFailed)
		r.logger.Warn("command failed", "command", req.Command, "error", err)
		return bus.NewErrorResponse(req.RequestID, bus.ErrCodeFailed, err.Error(), now)
	}
}

func (r *Resolver) handleAdmin(ctx context.Context, req bus.Request) (any, error) {
	cmd, ok := r.commands[req.Command]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, req.Command)
	}
	return cmd(ctx, req)
}

func (r *Resolver) handleQuery(ctx context.Context, req bus.Request) (any, error) {
	if req.Command != bus.CmdInventory {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, req.Command)
	}
	return r.Inventory(ctx)
}

func (r *Resolver) adminCommands() map[string]commandFunc {
	return map[string]commandFunc{
		bus.CmdSetRoomName:           r.setRoomName,
		bus.CmdSetDeviceRoom:         r.setDeviceRoom,
		bus.CmdSetDeviceName:         r.setDeviceName,
		bus.CmdDeleteRoom:            r.deleteRoom,
		bus.CmdSetFloorplanName:      r.setFloorplanName,
		bus.CmdSetDeviceFloorplan:    r.setDeviceFloorplan,
		bus.CmdDeleteFloorplanDevice: r.deleteFloorplanDevice,
		bus.CmdDeleteFloorplan:       r.deleteFloorplan,
		bus.CmdSetLocationName:       r.setLocationName,
		bus.CmdSetRoomLocation:       r.setRoomLocation,
		bus.CmdDeleteLocation:        r.deleteLocation,
		bus.CmdSetVariable:           r.setVariable,
		bus.CmdDelVariable:           r.delVariable,
		bus.CmdGetDevice:             r.getDevice,
		bus.CmdGetConfigTree:         r.getConfigTree,
		bus.CmdSetConfig:             r.setConfig,
	}
}

// orNew returns id, or a fresh UUID when id is empty.
func orNew(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// =============================================================================
// Rooms and devices
// =============================================================================

func (r *Resolver) setRoomName(ctx context.Context, req bus.Request) (any, error) {
	var p bus.SetRoomName
	if err := req.Bind(&p); err != nil {
		return nil, err
	}
	room := orNew(p.Room)
	if err := r.dir.SetRoomName(ctx, room, p.Name); err != nil {
		return nil, err
	}
	r.publish(bus.SubjectRoomNameChanged, bus.NameChanged{UUID: room, Name: p.Name})
	return created{UUID: room}, nil
}

func (r *Resolver) setDeviceRoom(ctx context.Context, req bus.Request) (any, error) {
	var p bus.SetDeviceRoom
	if err := req.Bind(&p); err != nil {
		return nil, err
	}
	if err := r.dir.SetDeviceRoom(ctx, p.Device, *p.Room); err != nil {
		return nil, err
	}
	if r.inv.SetRoom(p.Device, *p.Room) {
		r.inventoryChanged()
	}
	return nil, nil
}

func (r *Resolver) setDeviceName(ctx context.Context, req bus.Request) (any, error) {
	var p bus.SetDeviceName
	if err := req.Bind(&p); err != nil {
		return nil, err
	}
	if err := r.dir.SetDeviceName(ctx, p.Device, p.Name); err != nil {
		return nil, err
	}
	if r.inv.SetName(p.Device, p.Name) {
		r.inventoryChanged()
	}
	r.publish(bus.SubjectDeviceNameChanged, bus.NameChanged{UUID: p.Device, Name: p.Name})
	return nil, nil
}

func (r *Resolver) deleteRoom(ctx context.Context, req bus.Request) (any, error) {
	var p bus.DeleteRoom
	if err := req.Bind(&p); err != nil {
		return nil, err
	}
	if err := r.dir.DeleteRoom(ctx, p.Room); err != nil {
		return nil, err
	}
	if r.inv.ClearRoom(p.Room) > 0 {
		r.inventoryChanged()
	}
	r.publish(bus.SubjectRoomDeleted, bus.Deleted{UUID: p.Room})
	return nil, nil
}

// =============================================================================
// Floorplans
// =============================================================================

func (r *Resolver) setFloorplanName(ctx context.Context, req bus.Request) (any, error) {
	var p bus.SetFloorplanName
	if err := req.Bind(&p); err != nil {
		return nil, err
	}
	fp := orNew(p.Floorplan)
	if err := r.dir.SetFloorplanName(ctx, fp, p.Name); err != nil {
		return nil, err
	}
	r.publish(bus.SubjectFloorplanNameChanged, bus.NameChanged{UUID: fp, Name: p.Name})
	return created{UUID: fp}, nil
}

func (r *Resolver) setDeviceFloorplan(ctx context.Context, req bus.Request) (any, error) {
	var p bus.SetDeviceFloorplan
	if err := req.Bind(&p); err != nil {
		return nil, err
	}
	placement := directory.Placement{X: *p.X, Y: *p.Y}
	if err := r.dir.SetDevicePlacement(ctx, p.Floorplan, p.Device, placement); err != nil {
		return nil, err
	}
	r.publish(bus.SubjectFloorplanDeviceChanged, bus.FloorplanDeviceChanged{
		UUID:      p.Device,
		Floorplan: p.Floorplan,
		X:         placement.X,
		Y:         placement.Y,
	})
	return nil, nil
}

func (r *Resolver) deleteFloorplanDevice(ctx context.Context, req bus.Request) (any, error) {
	var p bus.DeleteFloorplanDevice
	if err := req.Bind(&p); err != nil {
		return nil, err
	}
	if err := r.dir.DeleteDevicePlacement(ctx, p.Floorplan, p.Device); err != nil {
		return nil, err
	}
	r.publish(bus.SubjectFloorplanDeviceRemoved, bus.FloorplanDeviceRemoved{UUID: p.Device, Floorplan: p.Floorplan})
	return nil, nil
}

func (r *Resolver) deleteFloorplan(ctx context.Context, req bus.Request) (any, error) {
	var p bus.DeleteFloorplan
	if err := req.Bind(&p); err != nil {
		return nil, err
	}
	if err := r.dir.DeleteFloorplan(ctx, p.Floorplan); err != nil {
		return nil, err
	}
	r.publish(bus.SubjectFloorplanDeleted, bus.Deleted{UUID: p.Floorplan})
	return nil, nil
}

// =============================================================================
// Locations
// =============================================================================

func (r *Resolver) setLocationName(ctx context.Context, req bus.Request) (any, error) {
	var p bus.SetLocationName
	if err := req.Bind(&p); err != nil {
		return nil, err
	}

	loc := directory.Location{UUID: orNew(p.Location), Name: p.Name}
	switch {
	case p.Description != nil:
		loc.Description = *p.Description
	case p.Location != "":
		existing, err := r.dir.Location(ctx, p.Location)
		if err != nil && !errors.Is(err, directory.ErrLocationNotFound) {
			return nil, err
		}
		if existing != nil {
			loc.Description = existing.Description
		}
	}

	if err := r.dir.SetLocation(ctx, loc); err != nil {
		return nil, err
	}
	r.publish(bus.SubjectLocationNameChanged, bus.NameChanged{UUID: loc.UUID, Name: loc.Name})
	return created{UUID: loc.UUID}, nil
}

func (r *Resolver) setRoomLocation(ctx context.Context, req bus.Request) (any, error) {
	var p bus.SetRoomLocation
	if err := req.Bind(&p); err != nil {
		return nil, err
	}
	return nil, r.dir.SetRoomLocation(ctx, p.Room, *p.Location)
}

func (r *Resolver) deleteLocation(ctx context.Context, req bus.Request) (any, error) {
	var p bus.DeleteLocation
	if err := req.Bind(&p); err != nil {
		return nil, err
	}
	if err := r.dir.DeleteLocation(ctx, p.Location); err != nil {
		return nil, err
	}
	r.publish(bus.SubjectLocationDeleted, bus.Deleted{UUID: p.Location})
	return nil, nil
}

// =============================================================================
// Variables, devices and config
// =============================================================================

func (r *Resolver) setVariable(_ context.Context, req bus.Request) (any, error) {
	var p bus.SetVariable
	if err := req.Bind(&p); err != nil {
		return nil, err
	}
	r.vars.Set(p.Variable, *p.Value)
	return nil, nil
}

func (r *Resolver) delVariable(_ context.Context, req bus.Request) (any, error) {
	var p bus.DelVariable
	if err := req.Bind(&p); err != nil {
		return nil, err
	}
	if !r.vars.Delete(p.Variable) {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchVariable, p.Variable)
	}
	return nil, nil
}

func (r *Resolver) getDevice(_ context.Context, req bus.Request) (any, error) {
	var p bus.GetDevice
	if err := req.Bind(&p); err != nil {
		return nil, err
	}
	d, ok := r.inv.Get(p.Device)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchDevice, p.Device)
	}
	return d, nil
}

func (r *Resolver) getConfigTree(context.Context, bus.Request) (any, error) {
	return r.config.Tree(), nil
}

func (r *Resolver) setConfig(_ context.Context, req bus.Request) (any, error) {
	var p bus.SetConfig
	if err := req.Bind(&p); err != nil {
		return nil, err
	}
	app := p.App
	if app == "" {
		app = App
	}
	return nil, r.config.Set(app, p.Section, p.Option, *p.Value)
}
