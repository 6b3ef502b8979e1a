package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Directory defines the durable naming and placement operations the
// resolver depends on.
type Directory interface {
	Device(ctx context.Context, uuid string) (*DeviceRecord, error)
	SetDeviceName(ctx context.Context, uuid, name string) error
	SetDeviceRoom(ctx context.Context, uuid, room string) error

	Room(ctx context.Context, uuid string) (*Room, error)
	Rooms(ctx context.Context) (map[string]Room, error)
	SetRoomName(ctx context.Context, uuid, name string) error
	SetRoomLocation(ctx context.Context, uuid, location string) error
	DeleteRoom(ctx context.Context, uuid string) error

	Floorplan(ctx context.Context, uuid string) (*Floorplan, error)
	Floorplans(ctx context.Context) (map[string]Floorplan, error)
	SetFloorplanName(ctx context.Context, uuid, name string) error
	SetDevicePlacement(ctx context.Context, floorplan, device string, p Placement) error
	DeleteDevicePlacement(ctx context.Context, floorplan, device string) error
	DeleteFloorplan(ctx context.Context, uuid string) error

	Location(ctx context.Context, uuid string) (*Location, error)
	Locations(ctx context.Context) (map[string]Location, error)
	SetLocation(ctx context.Context, loc Location) error
	DeleteLocation(ctx context.Context, uuid string) error
}

// Logger defines the logging interface used by the directory.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// SQLiteDirectory implements Directory over the tables created by the
// embedded migrations.
type SQLiteDirectory struct {
	db     *sql.DB
	logger Logger
}

var _ Directory = (*SQLiteDirectory)(nil)

// NewSQLiteDirectory creates a directory over an open database whose
// schema has been migrated.
func NewSQLiteDirectory(db *sql.DB) *SQLiteDirectory {
	return &SQLiteDirectory{db: db, logger: noopLogger{}}
}

// SetLogger sets the logger for the directory.
func (d *SQLiteDirectory) SetLogger(logger Logger) {
	d.logger = logger
}

// verifyWrite decides the outcome of a write from its read-back alone.
// A driver error is logged when the stored value matches anyway.
func (d *SQLiteDirectory) verifyWrite(what string, execErr error, want string, read func() (string, error)) error {
	got, readErr := read()
	if readErr == nil && got == want {
		if execErr != nil {
			d.logger.Warn("directory write reported an error but read-back matches",
				"entity", what, "error", execErr)
		}
		return nil
	}
	failure := fmt.Errorf("%w: %s read back %q, want %q", ErrVerificationFailed, what, got, want)
	return errors.Join(failure, execErr, readErr)
}

// deleteInTx runs steps in one transaction, then commits only if
// existsQuery reports no remaining primary row.
func (d *SQLiteDirectory) deleteInTx(ctx context.Context, what string, steps func(tx *sql.Tx) error, existsQuery string, args ...any) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is a no-op after commit

	if err := steps(tx); err != nil {
		return fmt.Errorf("deleting %s: %w", what, err)
	}

	var remaining int
	if err := tx.QueryRowContext(ctx, existsQuery, args...).Scan(&remaining); err != nil {
		return fmt.Errorf("checking %s deletion: %w", what, err)
	}
	if remaining != 0 {
		d.logger.Error("delete left primary row behind, rolling back", "entity", what)
		return fmt.Errorf("%w: %s still present after delete", ErrVerificationFailed, what)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s deletion: %w", what, err)
	}
	return nil
}

// readString returns the single string column selected by query, or
// notFound when there is no row.
func (d *SQLiteDirectory) readString(ctx context.Context, notFound error, query string, args ...any) (string, error) {
	var s string
	err := d.db.QueryRowContext(ctx, query, args...).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound
	}
	if err != nil {
		return "", fmt.Errorf("querying directory: %w", err)
	}
	return s, nil
}
