package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Location returns a single location.
func (d *SQLiteDirectory) Location(ctx context.Context, uuid string) (*Location, error) {
	loc := Location{UUID: uuid}
	err := d.db.QueryRowContext(ctx,
		`SELECT name, description FROM locations WHERE uuid = ?`, uuid,
	).Scan(&loc.Name, &loc.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLocationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying location %s: %w", uuid, err)
	}
	return &loc, nil
}

// Locations returns every location keyed by UUID.
func (d *SQLiteDirectory) Locations(ctx context.Context) (map[string]Location, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT uuid, name, description FROM locations`)
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", err)
	}
	defer rows.Close()

	locations := make(map[string]Location)
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.UUID, &l.Name, &l.Description); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		locations[l.UUID] = l
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating locations: %w", err)
	}
	return locations, nil
}

// SetLocation creates a location or updates its name and description.
func (d *SQLiteDirectory) SetLocation(ctx context.Context, loc Location) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO locations (uuid, name, description) VALUES (?, ?, ?)
		 ON CONFLICT(uuid) DO UPDATE SET name = excluded.name, description = excluded.description`,
		loc.UUID, loc.Name, loc.Description)
	return d.verifyWrite("location "+loc.UUID, err, loc.Name+"\x00"+loc.Description, func() (string, error) {
		got, err := d.Location(ctx, loc.UUID)
		if err != nil {
			return "", err
		}
		return got.Name + "\x00" + got.Description, nil
	})
}

// DeleteLocation removes a location and clears it from every room that
// referenced it.
func (d *SQLiteDirectory) DeleteLocation(ctx context.Context, uuid string) error {
	return d.deleteInTx(ctx, "location "+uuid, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE rooms SET location = '' WHERE location = ?`, uuid); err != nil {
			return fmt.Errorf("clearing room locations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM locations WHERE uuid = ?`, uuid); err != nil {
			return fmt.Errorf("deleting location row: %w", err)
		}
		return nil
	}, `SELECT COUNT(*) FROM locations WHERE uuid = ?`, uuid)
}
