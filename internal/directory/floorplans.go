package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Floorplan returns a floorplan with its placements.
func (d *SQLiteDirectory) Floorplan(ctx context.Context, uuid string) (*Floorplan, error) {
	fp := Floorplan{UUID: uuid, Placements: make(map[string]Placement)}
	err := d.db.QueryRowContext(ctx, `SELECT name FROM floorplans WHERE uuid = ?`, uuid).Scan(&fp.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFloorplanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying floorplan %s: %w", uuid, err)
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT device, x, y FROM floorplan_devices WHERE floorplan = ?`, uuid)
	if err != nil {
		return nil, fmt.Errorf("querying placements for %s: %w", uuid, err)
	}
	defer rows.Close()

	for rows.Next() {
		var device string
		var p Placement
		if err := rows.Scan(&device, &p.X, &p.Y); err != nil {
			return nil, fmt.Errorf("scanning placement: %w", err)
		}
		fp.Placements[device] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating placements: %w", err)
	}
	return &fp, nil
}

// Floorplans returns every floorplan keyed by UUID, placements included.
// Placements whose floorplan row is missing are not reported.
func (d *SQLiteDirectory) Floorplans(ctx context.Context) (map[string]Floorplan, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT uuid, name FROM floorplans`)
	if err != nil {
		return nil, fmt.Errorf("querying floorplans: %w", err)
	}
	defer rows.Close()

	plans := make(map[string]Floorplan)
	for rows.Next() {
		fp := Floorplan{Placements: make(map[string]Placement)}
		if err := rows.Scan(&fp.UUID, &fp.Name); err != nil {
			return nil, fmt.Errorf("scanning floorplan: %w", err)
		}
		plans[fp.UUID] = fp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating floorplans: %w", err)
	}

	prow, err := d.db.QueryContext(ctx, `SELECT floorplan, device, x, y FROM floorplan_devices`)
	if err != nil {
		return nil, fmt.Errorf("querying placements: %w", err)
	}
	defer prow.Close()

	for prow.Next() {
		var floorplan, device string
		var p Placement
		if err := prow.Scan(&floorplan, &device, &p.X, &p.Y); err != nil {
			return nil, fmt.Errorf("scanning placement: %w", err)
		}
		if fp, ok := plans[floorplan]; ok {
			fp.Placements[device] = p
		}
	}
	if err := prow.Err(); err != nil {
		return nil, fmt.Errorf("iterating placements: %w", err)
	}
	return plans, nil
}

// SetFloorplanName creates or renames a floorplan.
func (d *SQLiteDirectory) SetFloorplanName(ctx context.Context, uuid, name string) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO floorplans (uuid, name) VALUES (?, ?)
		 ON CONFLICT(uuid) DO UPDATE SET name = excluded.name`,
		uuid, name)
	return d.verifyWrite("floorplan "+uuid+" name", err, name, func() (string, error) {
		return d.readString(ctx, ErrFloorplanNotFound, `SELECT name FROM floorplans WHERE uuid = ?`, uuid)
	})
}

// SetDevicePlacement positions a device on a floorplan, replacing any
// previous position on the same floorplan.
func (d *SQLiteDirectory) SetDevicePlacement(ctx context.Context, floorplan, device string, p Placement) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO floorplan_devices (floorplan, device, x, y) VALUES (?, ?, ?, ?)
		 ON CONFLICT(floorplan, device) DO UPDATE SET x = excluded.x, y = excluded.y`,
		floorplan, device, p.X, p.Y)
	return d.verifyWrite("placement of "+device+" on "+floorplan, err, formatPlacement(p), func() (string, error) {
		var got Placement
		err := d.db.QueryRowContext(ctx,
			`SELECT x, y FROM floorplan_devices WHERE floorplan = ? AND device = ?`,
			floorplan, device,
		).Scan(&got.X, &got.Y)
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrPlacementNotFound
		}
		if err != nil {
			return "", fmt.Errorf("querying placement: %w", err)
		}
		return formatPlacement(got), nil
	})
}

// DeleteDevicePlacement removes a device from a floorplan.
func (d *SQLiteDirectory) DeleteDevicePlacement(ctx context.Context, floorplan, device string) error {
	_, err := d.db.ExecContext(ctx,
		`DELETE FROM floorplan_devices WHERE floorplan = ? AND device = ?`, floorplan, device)

	var remaining int
	if qerr := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM floorplan_devices WHERE floorplan = ? AND device = ?`,
		floorplan, device,
	).Scan(&remaining); qerr != nil {
		return errors.Join(fmt.Errorf("checking placement deletion: %w", qerr), err)
	}
	if remaining != 0 {
		return errors.Join(fmt.Errorf("%w: placement of %s on %s still present", ErrVerificationFailed, device, floorplan), err)
	}
	return nil
}

// DeleteFloorplan removes all placements on a floorplan, then the
// floorplan itself, atomically.
func (d *SQLiteDirectory) DeleteFloorplan(ctx context.Context, uuid string) error {
	return d.deleteInTx(ctx, "floorplan "+uuid, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM floorplan_devices WHERE floorplan = ?`, uuid); err != nil {
			return fmt.Errorf("deleting placements: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM floorplans WHERE uuid = ?`, uuid); err != nil {
			return fmt.Errorf("deleting floorplan row: %w", err)
		}
		return nil
	}, `SELECT COUNT(*) FROM floorplans WHERE uuid = ?`, uuid)
}

func formatPlacement(p Placement) string {
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}
