package repository

import (
	"context"
	"errors"

	"github.com/davitrie/userbase/internal/domain/entity"
)

// Storage conditions the service layer translates into domain outcomes.
var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserRepository is the storage contract the user lifecycle depends on.
// Find operations exclude soft-deleted records and report a miss as
// (nil, nil), not an error. List operations order newest-created-first.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)

	// FindByIDAny also matches soft-deleted records; restore and hard
	// delete need to reach them.
	FindByIDAny(ctx context.Context, id string) (*entity.User, error)

	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindAll(ctx context.Context) ([]*entity.User, error)
	FindByRole(ctx context.Context, role entity.Role) ([]*entity.User, error)

	// Save upserts by id. A uniqueness violation on email is surfaced as
	// ErrDuplicateEmail, distinct from other failures.
	Save(ctx context.Context, u *entity.User) error

	// Delete removes the record physically; ErrNotFound when absent.
	Delete(ctx context.Context, id string) error

	// Count excludes soft-deleted records.
	Count(ctx context.Context) (int64, error)
}
