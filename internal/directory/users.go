package directory

import "context"

// UserStore is the user and permission surface of the directory. It has
// no backing tables; every operation returns ErrUnsupported and callers
// must treat user management as unavailable.
type UserStore interface {
	CreateUser(ctx context.Context, username, password, pin, description string) error
	DeleteUser(ctx context.Context, username string) error
	AuthorizeUser(ctx context.Context, username, password string) (bool, error)
	SetPermission(ctx context.Context, username, permission string) error
	DeletePermission(ctx context.Context, username, permission string) error
}

var _ UserStore = (*SQLiteDirectory)(nil)

// CreateUser is not supported.
func (d *SQLiteDirectory) CreateUser(context.Context, string, string, string, string) error {
	return ErrUnsupported
}

// DeleteUser is not supported.
func (d *SQLiteDirectory) DeleteUser(context.Context, string) error {
	return ErrUnsupported
}

// AuthorizeUser never authorises anyone.
func (d *SQLiteDirectory) AuthorizeUser(context.Context, string, string) (bool, error) {
	return false, ErrUnsupported
}

// SetPermission is not supported.
func (d *SQLiteDirectory) SetPermission(context.Context, string, string) error {
	return ErrUnsupported
}

// DeletePermission is not supported.
func (d *SQLiteDirectory) DeletePermission(context.Context, string, string) error {
	return ErrUnsupported
}
