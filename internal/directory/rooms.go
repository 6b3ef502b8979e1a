package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Room returns a single room.
func (d *SQLiteDirectory) Room(ctx context.Context, uuid string) (*Room, error) {
	room := Room{UUID: uuid}
	err := d.db.QueryRowContext(ctx,
		`SELECT name, location FROM rooms WHERE uuid = ?`, uuid,
	).Scan(&room.Name, &room.Location)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying room %s: %w", uuid, err)
	}
	return &room, nil
}

// Rooms returns every room keyed by UUID.
func (d *SQLiteDirectory) Rooms(ctx context.Context) (map[string]Room, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT uuid, name, location FROM rooms`)
	if err != nil {
		return nil, fmt.Errorf("querying rooms: %w", err)
	}
	defer rows.Close()

	rooms := make(map[string]Room)
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.UUID, &r.Name, &r.Location); err != nil {
			return nil, fmt.Errorf("scanning room: %w", err)
		}
		rooms[r.UUID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rooms: %w", err)
	}
	return rooms, nil
}

// SetRoomName creates or renames a room.
func (d *SQLiteDirectory) SetRoomName(ctx context.Context, uuid, name string) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO rooms (uuid, name) VALUES (?, ?)
		 ON CONFLICT(uuid) DO UPDATE SET name = excluded.name`,
		uuid, name)
	return d.verifyWrite("room "+uuid+" name", err, name, func() (string, error) {
		return d.readString(ctx, ErrRoomNotFound, `SELECT name FROM rooms WHERE uuid = ?`, uuid)
	})
}

// SetRoomLocation assigns an existing room to a location. An empty
// location clears the assignment.
func (d *SQLiteDirectory) SetRoomLocation(ctx context.Context, uuid, location string) error {
	if _, err := d.Room(ctx, uuid); err != nil {
		return err
	}
	_, err := d.db.ExecContext(ctx, `UPDATE rooms SET location = ? WHERE uuid = ?`, location, uuid)
	return d.verifyWrite("room "+uuid+" location", err, location, func() (string, error) {
		return d.readString(ctx, ErrRoomNotFound, `SELECT location FROM rooms WHERE uuid = ?`, uuid)
	})
}

// DeleteRoom removes a room and clears it from every device that was in it.
// Deleting an unknown room succeeds.
func (d *SQLiteDirectory) DeleteRoom(ctx context.Context, uuid string) error {
	return d.deleteInTx(ctx, "room "+uuid, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE devices SET room = '' WHERE room = ?`, uuid); err != nil {
			return fmt.Errorf("clearing device rooms: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE uuid = ?`, uuid); err != nil {
			return fmt.Errorf("deleting room row: %w", err)
		}
		return nil
	}, `SELECT COUNT(*) FROM rooms WHERE uuid = ?`, uuid)
}
