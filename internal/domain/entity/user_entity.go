package entity

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Domain failures raised by entity mutations. The application layer maps
// them onto the transport error taxonomy.
var (
	ErrInvalidEmail   = errors.New("invalid email format")
	ErrEmptyName      = errors.New("name cannot be empty")
	ErrInvalidRole    = errors.New("invalid user role")
	ErrAlreadyDeleted = errors.New("user is already deleted")
	ErrNotDeleted     = errors.New("user is not deleted")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// User is the aggregate root for the user domain. It carries no persistence
// code; the postgres adapter translates between this shape and the storage
// record. All mutations go through named operations so the invariants hold
// after every change.
type User struct {
	ID        string
	Email     string
	Name      *string // nil means no name set
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// NewUser constructs a fresh active user. The email is validated and the
// role defaults to USER when unspecified.
func NewUser(email string, name *string, role Role) (*User, error) {
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if name != nil && strings.TrimSpace(*name) == "" {
		return nil, ErrEmptyName
	}
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	now := time.Now().UTC()
	return &User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateEmail re-validates the format before assignment; on failure the
// prior email is retained.
func (u *User) UpdateEmail(newEmail string) error {
	if !emailPattern.MatchString(newEmail) {
		return ErrInvalidEmail
	}
	u.Email = newEmail
	u.touch()
	return nil
}

// UpdateName accepts nil to clear the name; a present name must be
// non-empty after trimming.
func (u *User) UpdateName(newName *string) error {
	if newName != nil && strings.TrimSpace(*newName) == "" {
		return ErrEmptyName
	}
	u.Name = newName
	u.touch()
	return nil
}

func (u *User) UpdateRole(newRole Role) error {
	if !newRole.Valid() {
		return ErrInvalidRole
	}
	u.Role = newRole
	u.touch()
	return nil
}

// SoftDelete moves the user to the deleted state. Deleting twice is a
// state-transition violation, not a no-op.
func (u *User) SoftDelete() error {
	if u.DeletedAt != nil {
		return ErrAlreadyDeleted
	}
	now := time.Now().UTC()
	u.DeletedAt = &now
	u.UpdatedAt = now
	return nil
}

// Restore returns a deleted user to the active state.
func (u *User) Restore() error {
	if u.DeletedAt == nil {
		return ErrNotDeleted
	}
	u.DeletedAt = nil
	u.touch()
	return nil
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsModerator is true for moderators and admins; ADMIN implies MODERATOR.
func (u *User) IsModerator() bool {
	return u.Role == RoleModerator || u.IsAdmin()
}

func (u *User) touch() {
	u.UpdatedAt = time.Now().UTC()
}
