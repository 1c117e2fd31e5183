package procedures

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/davitrie/userbase/internal/application"
	"github.com/davitrie/userbase/internal/domain/entity"
	"github.com/davitrie/userbase/internal/rpc"
)

// UserDeps wires the user-management procedures. All of them require an
// authenticated caller.
type UserDeps struct {
	Service  *application.Service
	Validate *validator.Validate
	Base     []rpc.Middleware
}

type createUserInput struct {
	Email string  `json:"email" validate:"required,email"`
	Name  *string `json:"name"`
	Role  *string `json:"role" validate:"omitempty,oneof=USER MODERATOR ADMIN"`
}

type userIDInput struct {
	ID string `json:"id" validate:"required,uuid"`
}

type userEmailInput struct {
	Email string `json:"email" validate:"required,email"`
}

type roleInput struct {
	Role string `json:"role" validate:"required,oneof=USER MODERATOR ADMIN"`
}

// updateUserInput is a partial update. Name is raw so an explicit null
// (clear the name) is distinguishable from an omitted field.
type updateUserInput struct {
	ID    string          `json:"id" validate:"required,uuid"`
	Email *string         `json:"email" validate:"omitempty,email"`
	Name  json.RawMessage `json:"name"`
	Role  *string         `json:"role" validate:"omitempty,oneof=USER MODERATOR ADMIN"`
}

type updateRoleInput struct {
	ID   string `json:"id" validate:"required,uuid"`
	Role string `json:"role" validate:"required,oneof=USER MODERATOR ADMIN"`
}

type searchInput struct {
	Query string `json:"query" validate:"required,min=1,max=200"`
	Size  *int   `json:"size" validate:"omitempty,gte=1,lte=50"`
}

// userView serializes an entity for the wire: timestamps as RFC3339,
// deletedAt null while active.
func userView(u *entity.User) map[string]any {
	var deletedAt any
	if u.DeletedAt != nil {
		deletedAt = u.DeletedAt.UTC().Format(time.RFC3339Nano)
	}
	return map[string]any{
		"id":        u.ID,
		"email":     u.Email,
		"name":      u.Name,
		"role":      u.Role,
		"createdAt": u.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updatedAt": u.UpdatedAt.UTC().Format(time.RFC3339Nano),
		"deletedAt": deletedAt,
	}
}

func userViews(users []*entity.User) []map[string]any {
	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, userView(u))
	}
	return out
}

// RegisterUsers registers the user.* procedures backed by the user service.
func RegisterUsers(r *rpc.Router, d UserDeps) {
	r.Register(rpc.Procedure{
		Path:         "user.create",
		Kind:         rpc.KindMutation,
		Input:        rpc.SchemaFor[createUserInput](d.Validate),
		RequiresAuth: true,
		Middlewares:  d.Base,
		Handler: func(ctx context.Context, call *rpc.CallContext, input any) (any, error) {
			in := input.(createUserInput)
			var role entity.Role
			if in.Role != nil {
				role = entity.Role(*in.Role)
			}
			u, err := d.Service.Create(ctx, application.CreateUserInput{Email: in.Email, Name: in.Name, Role: role})
			if err != nil {
				return nil, err
			}
			return userView(u), nil
		},
	})

	r.Register(rpc.Procedure{
		Path:         "user.get",
		Kind:         rpc.KindQuery,
		Input:        rpc.SchemaFor[userIDInput](d.Validate),
		RequiresAuth: true,
		Middlewares:  d.Base,
		Handler: func(ctx context.Context, call *rpc.CallContext, input any) (any, error) {
			in := input.(userIDInput)
			u, err := d.Service.GetByID(ctx, in.ID)
			if err != nil {
				return nil, err
			}
			return userView(u), nil
		},
	})

	r.Register(rpc.Procedure{
		Path:         "user.getByEmail",
		Kind:         rpc.KindQuery,
		Input:        rpc.SchemaFor[userEmailInput](d.Validate),
		RequiresAuth: true,
		Middlewares:  d.Base,
		Handler: func(ctx context.Context, call *rpc.CallContext, input any) (any, error) {
			in := input.(userEmailInput)
			u, err := d.Service.GetByEmail(ctx, in.Email)
			if err != nil {
				return nil, err
			}
			if u == nil {
				// A miss is an explicit empty result, not an error.
				return map[string]any{"user": nil}, nil
			}
			return map[string]any{"user": userView(u)}, nil
		},
	})

	r.Register(rpc.Procedure{
		Path:         "user.list",
		Kind:         rpc.KindQuery,
		RequiresAuth: true,
		Middlewares:  d.Base,
		Handler: func(ctx context.Context, call *rpc.CallContext, _ any) (any, error) {
			users, err := d.Service.List(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"users": userViews(users)}, nil
		},
	})

	r.Register(rpc.Procedure{
		Path:         "user.listByRole",
		Kind:         rpc.KindQuery,
		Input:        rpc.SchemaFor[roleInput](d.Validate),
		RequiresAuth: true,
		Middlewares:  d.Base,
		Handler: func(ctx context.Context, call *rpc.CallContext, input any) (any, error) {
			in := input.(roleInput)
			users, err := d.Service.ListByRole(ctx, entity.Role(in.Role))
			if err != nil {
				return nil, err
			}
			return map[string]any{"users": userViews(users)}, nil
		},
	})

	r.Register(rpc.Procedure{
		Path:         "user.update",
		Kind:         rpc.KindMutation,
		Input:        rpc.SchemaFor[updateUserInput](d.Validate),
		RequiresAuth: true,
		Middlewares:  d.Base,
		Handler: func(ctx context.Context, call *rpc.CallContext, input any) (any, error) {
			in := input.(updateUserInput)

			upd := application.UpdateUserInput{Email: in.Email}
			if in.Role != nil {
				role := entity.Role(*in.Role)
				upd.Role = &role
			}
			if in.Name != nil {
				upd.SetName = true
				if string(in.Name) != "null" {
					var name string
					if err := json.Unmarshal(in.Name, &name); err != nil {
						return nil, rpc.BadRequest("invalid input", map[string]string{"name": "must be a string or null"})
					}
					upd.Name = &name
				}
			}

			u, err := d.Service.Update(ctx, in.ID, upd)
			if err != nil {
				return nil, err
			}
			return userView(u), nil
		},
	})

	r.Register(rpc.Procedure{
		Path:         "user.updateRole",
		Kind:         rpc.KindMutation,
		Input:        rpc.SchemaFor[updateRoleInput](d.Validate),
		RequiresAuth: true,
		Middlewares:  d.Base,
		Handler: func(ctx context.Context, call *rpc.CallContext, input any) (any, error) {
			in := input.(updateRoleInput)
			u, err := d.Service.UpdateRole(ctx, in.ID, entity.Role(in.Role))
			if err != nil {
				return nil, err
			}
			return userView(u), nil
		},
	})

	r.Register(rpc.Procedure{
		Path:         "user.softDelete",
		Kind:         rpc.KindMutation,
		Input:        rpc.SchemaFor[userIDInput](d.Validate),
		RequiresAuth: true,
		Middlewares:  d.Base,
		Handler: func(ctx context.Context, call *rpc.CallContext, input any) (any, error) {
			in := input.(userIDInput)
			u, err := d.Service.SoftDelete(ctx, in.ID)
			if err != nil {
				return nil, err
			}
			return userView(u), nil
		},
	})

	r.Register(rpc.Procedure{
		Path:         "user.restore",
		Kind:         rpc.KindMutation,
		Input:        rpc.SchemaFor[userIDInput](d.Validate),
		RequiresAuth: true,
		Middlewares:  d.Base,
		Handler: func(ctx context.Context, call *rpc.CallContext, input any) (any, error) {
			in := input.(userIDInput)
			u, err := d.Service.Restore(ctx, in.ID)
			if err != nil {
				return nil, err
			}
			return userView(u), nil
		},
	})

	r.Register(rpc.Procedure{
		Path:         "user.delete",
		Kind:         rpc.KindMutation,
		Input:        rpc.SchemaFor[userIDInput](d.Validate),
		RequiresAuth: true,
		Middlewares:  d.Base,
		Handler: func(ctx context.Context, call *rpc.CallContext, input any) (any, error) {
			in := input.(userIDInput)
			if err := d.Service.HardDelete(ctx, in.ID); err != nil {
				return nil, err
			}
			return map[string]any{"deleted": true, "id": in.ID}, nil
		},
	})

	r.Register(rpc.Procedure{
		Path:         "user.count",
		Kind:         rpc.KindQuery,
		RequiresAuth: true,
		Middlewares:  d.Base,
		Handler: func(ctx context.Context, call *rpc.CallContext, _ any) (any, error) {
			n, err := d.Service.CountUsers(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"count": n}, nil
		},
	})

	r.Register(rpc.Procedure{
		Path:         "user.admins",
		Kind:         rpc.KindQuery,
		RequiresAuth: true,
		Middlewares:  d.Base,
		Handler: func(ctx context.Context, call *rpc.CallContext, _ any) (any, error) {
			users, err := d.Service.Admins(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"users": userViews(users)}, nil
		},
	})

	r.Register(rpc.Procedure{
		Path:         "user.moderators",
		Kind:         rpc.KindQuery,
		RequiresAuth: true,
		Middlewares:  d.Base,
		Handler: func(ctx context.Context, call *rpc.CallContext, _ any) (any, error) {
			users, err := d.Service.Moderators(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"users": userViews(users)}, nil
		},
	})

	r.Register(rpc.Procedure{
		Path:         "user.search",
		Kind:         rpc.KindQuery,
		Input:        rpc.SchemaFor[searchInput](d.Validate),
		RequiresAuth: true,
		Middlewares:  d.Base,
		Handler: func(ctx context.Context, call *rpc.CallContext, input any) (any, error) {
			in := input.(searchInput)
			size := 10
			if in.Size != nil {
				size = *in.Size
			}
			hits, err := d.Service.Search(ctx, in.Query, size)
			if err != nil {
				return nil, err
			}
			return map[string]any{"results": hits}, nil
		},
	})
}
