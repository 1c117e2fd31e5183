package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/sirupsen/logrus"

	"github.com/davitrie/userbase/internal/domain/entity"
	"github.com/davitrie/userbase/internal/domain/repository"
	"github.com/davitrie/userbase/internal/rpc"
)

// Service orchestrates repository calls and entity mutations for the user
// CRUD use cases, translating domain conditions into typed outcomes.
// Events and ES are optional collaborators; nil disables them.
type Service struct {
	Repo         repository.UserRepository
	Logger       *logrus.Logger
	Events       Publisher
	ES           *elasticsearch.Client
	ESUsersIndex string
}

func NewService(repo repository.UserRepository, logger *logrus.Logger, events Publisher, es *elasticsearch.Client, esUsersIndex string) *Service {
	return &Service{Repo: repo, Logger: logger, Events: events, ES: es, ESUsersIndex: esUsersIndex}
}

type CreateUserInput struct {
	Email string
	Name  *string
	Role  entity.Role // empty defaults to USER
}

// UpdateUserInput is a partial update: nil pointer fields are untouched.
// SetName distinguishes "name omitted" from "name explicitly cleared".
type UpdateUserInput struct {
	Email   *string
	Name    *string
	SetName bool
	Role    *entity.Role
}

// Create rejects a duplicate email up front with a conflict, before
// constructing the entity. The repository's uniqueness translation remains
// as a backstop against concurrent creates.
func (s *Service) Create(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	existing, err := s.Repo.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, rpc.Conflict("user with this email already exists")
	}

	u, err := entity.NewUser(in.Email, in.Name, in.Role)
	if err != nil {
		return nil, domainError(err)
	}

	if err := s.Repo.Save(ctx, u); err != nil {
		return nil, saveError(err)
	}

	s.publishEvent(ctx, EventUserCreated, u.ID, u.Email)
	s.indexUser(ctx, u)
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, rpc.NotFound(fmt.Sprintf("user with id %s not found", id))
	}
	return u, nil
}

// GetByEmail reports a miss as (nil, nil): email lookup doubles as an
// existence check.
func (s *Service) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return s.Repo.FindByEmail(ctx, email)
}

func (s *Service) List(ctx context.Context) ([]*entity.User, error) {
	return s.Repo.FindAll(ctx)
}

func (s *Service) ListByRole(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	return s.Repo.FindByRole(ctx, role)
}

// Update applies only the fields present in the request and persists.
func (s *Service) Update(ctx context.Context, id string, in UpdateUserInput) (*entity.User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		if err := u.UpdateEmail(*in.Email); err != nil {
			return nil, domainError(err)
		}
	}
	if in.SetName {
		if err := u.UpdateName(in.Name); err != nil {
			return nil, domainError(err)
		}
	}
	if in.Role != nil {
		if err := u.UpdateRole(*in.Role); err != nil {
			return nil, domainError(err)
		}
	}

	if err := s.Repo.Save(ctx, u); err != nil {
		return nil, saveError(err)
	}

	s.publishEvent(ctx, EventUserUpdated, u.ID, u.Email)
	s.indexUser(ctx, u)
	return u, nil
}

func (s *Service) UpdateRole(ctx context.Context, id string, role entity.Role) (*entity.User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := u.UpdateRole(role); err != nil {
		return nil, domainError(err)
	}
	if err := s.Repo.Save(ctx, u); err != nil {
		return nil, saveError(err)
	}
	s.publishEvent(ctx, EventUserUpdated, u.ID, u.Email)
	s.indexUser(ctx, u)
	return u, nil
}

func (s *Service) SoftDelete(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := u.SoftDelete(); err != nil {
		return nil, domainError(err)
	}
	if err := s.Repo.Save(ctx, u); err != nil {
		return nil, saveError(err)
	}
	s.publishEvent(ctx, EventUserSoftDeleted, u.ID, u.Email)
	s.removeFromIndex(ctx, u.ID)
	return u, nil
}

// Restore brings a soft-deleted user back to the active state. The normal
// read path excludes deleted records, so the lookup here includes them.
func (s *Service) Restore(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.findIncludingDeleted(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := u.Restore(); err != nil {
		return nil, domainError(err)
	}
	if err := s.Repo.Save(ctx, u); err != nil {
		return nil, saveError(err)
	}
	s.publishEvent(ctx, EventUserRestored, u.ID, u.Email)
	s.indexUser(ctx, u)
	return u, nil
}

// HardDelete removes the record physically. It is permitted directly on an
// active record; no prior soft-delete is required.
func (s *Service) HardDelete(ctx context.Context, id string) error {
	u, err := s.findIncludingDeleted(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, u.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return rpc.NotFound(fmt.Sprintf("user with id %s not found", id))
		}
		return err
	}
	s.publishEvent(ctx, EventUserHardDeleted, u.ID, u.Email)
	s.removeFromIndex(ctx, u.ID)
	return nil
}

func (s *Service) Admins(ctx context.Context) ([]*entity.User, error) {
	return s.Repo.FindByRole(ctx, entity.RoleAdmin)
}

func (s *Service) Moderators(ctx context.Context) ([]*entity.User, error) {
	return s.Repo.FindByRole(ctx, entity.RoleModerator)
}

func (s *Service) CountUsers(ctx context.Context) (int64, error) {
	return s.Repo.Count(ctx)
}

func (s *Service) findIncludingDeleted(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Repo.FindByIDAny(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, rpc.NotFound(fmt.Sprintf("user with id %s not found", id))
	}
	return u, nil
}

func domainError(err error) error {
	switch {
	case errors.Is(err, entity.ErrInvalidEmail):
		return rpc.BadRequest(err.Error(), map[string]string{"email": "must be a valid email"})
	case errors.Is(err, entity.ErrEmptyName):
		return rpc.BadRequest(err.Error(), map[string]string{"name": "must not be empty"})
	case errors.Is(err, entity.ErrInvalidRole):
		return rpc.BadRequest(err.Error(), map[string]string{"role": "must be one of: USER, MODERATOR, ADMIN"})
	case errors.Is(err, entity.ErrAlreadyDeleted), errors.Is(err, entity.ErrNotDeleted):
		return rpc.Conflict(err.Error())
	default:
		return err
	}
}

func saveError(err error) error {
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return rpc.Conflict("user with this email already exists")
	}
	return err
}
