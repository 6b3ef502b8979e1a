package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Device returns the naming row for a device.
func (d *SQLiteDirectory) Device(ctx context.Context, uuid string) (*DeviceRecord, error) {
	rec := DeviceRecord{UUID: uuid}
	err := d.db.QueryRowContext(ctx,
		`SELECT name, room FROM devices WHERE uuid = ?`, uuid,
	).Scan(&rec.Name, &rec.Room)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying device %s: %w", uuid, err)
	}
	return &rec, nil
}

// SetDeviceName creates or renames the naming row for a device.
func (d *SQLiteDirectory) SetDeviceName(ctx context.Context, uuid, name string) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO devices (uuid, name) VALUES (?, ?)
		 ON CONFLICT(uuid) DO UPDATE SET name = excluded.name`,
		uuid, name)
	return d.verifyWrite("device "+uuid+" name", err, name, func() (string, error) {
		return d.readString(ctx, ErrDeviceNotFound, `SELECT name FROM devices WHERE uuid = ?`, uuid)
	})
}

// SetDeviceRoom assigns a device to a room. An empty room clears the assignment.
func (d *SQLiteDirectory) SetDeviceRoom(ctx context.Context, uuid, room string) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO devices (uuid, room) VALUES (?, ?)
		 ON CONFLICT(uuid) DO UPDATE SET room = excluded.room`,
		uuid, room)
	return d.verifyWrite("device "+uuid+" room", err, room, func() (string, error) {
		return d.readString(ctx, ErrDeviceNotFound, `SELECT room FROM devices WHERE uuid = ?`, uuid)
	})
}
