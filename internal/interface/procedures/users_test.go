package procedures

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/davitrie/userbase/internal/application"
	"github.com/davitrie/userbase/internal/domain/entity"
	"github.com/davitrie/userbase/internal/domain/repository"
	"github.com/davitrie/userbase/internal/rpc"
	"github.com/davitrie/userbase/pkg/validation"
)

type memRepo struct {
	users map[string]*entity.User
}

func newMemRepo() *memRepo { return &memRepo{users: make(map[string]*entity.User)} }

func (r *memRepo) FindByID(ctx context.Context, id string) (*entity.User, error) {
	u, ok := r.users[id]
	if !ok || u.IsDeleted() {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *memRepo) FindByIDAny(ctx context.Context, id string) (*entity.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *memRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	for _, u := range r.users {
		if u.Email == email && !u.IsDeleted() {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memRepo) FindAll(ctx context.Context) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range r.users {
		if !u.IsDeleted() {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRepo) FindByRole(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range r.users {
		if u.Role == role && !u.IsDeleted() {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRepo) Save(ctx context.Context, u *entity.User) error {
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	for _, u := range r.users {
		if !u.IsDeleted() {
			n++
		}
	}
	return n, nil
}

var _ repository.UserRepository = (*memRepo)(nil)

func usersRouter(t *testing.T) *rpc.Router {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svc := application.NewService(newMemRepo(), logger, nil, nil, "")
	base := []rpc.Middleware{rpc.ErrorNormalization(logger), rpc.Logging(logger)}

	r := rpc.NewRouter()
	RegisterUsers(r, UserDeps{Service: svc, Validate: validation.New(), Base: base})
	return r
}

func authedCall() *rpc.CallContext {
	return rpc.NewCallContext("127.0.0.1", &rpc.User{ID: "caller-1", Email: "caller@x.com"}, nil)
}

func call(t *testing.T, r *rpc.Router, path string, kind rpc.Kind, input string) (map[string]any, error) {
	t.Helper()
	var raw json.RawMessage
	if input != "" {
		raw = json.RawMessage(input)
	}
	res, err := r.Dispatch(context.Background(), authedCall(), path, kind, raw)
	if err != nil {
		return nil, err
	}
	out, ok := res.(map[string]any)
	if !ok {
		t.Fatalf("expected map result, got %T", res)
	}
	return out, nil
}

func TestUserProceduresRequireAuth(t *testing.T) {
	r := usersRouter(t)
	anon := rpc.NewCallContext("127.0.0.1", nil, nil)

	for _, path := range []string{"user.list", "user.count"} {
		_, err := r.Dispatch(context.Background(), anon, path, rpc.KindQuery, nil)
		rpcErr, ok := rpc.AsError(err)
		if !ok || rpcErr.Code != rpc.CodeUnauthorized {
			t.Errorf("%s without a user: expected UNAUTHORIZED, got %v", path, err)
		}
	}
}

func TestUserCreateAndGet(t *testing.T) {
	r := usersRouter(t)

	created, err := call(t, r, "user.create", rpc.KindMutation, `{"email":"alice@x.com","name":"Alice"}`)
	if err != nil {
		t.Fatalf("user.create failed: %v", err)
	}
	if created["email"] != "alice@x.com" {
		t.Fatalf("expected email back, got %v", created["email"])
	}
	if created["role"] != entity.RoleUser {
		t.Fatalf("expected default role USER, got %v", created["role"])
	}
	if created["deletedAt"] != nil {
		t.Fatal("new user must have null deletedAt")
	}

	id := created["id"].(string)
	got, err := call(t, r, "user.get", rpc.KindQuery, `{"id":"`+id+`"}`)
	if err != nil {
		t.Fatalf("user.get failed: %v", err)
	}
	if got["id"] != id {
		t.Fatalf("expected id %s, got %v", id, got["id"])
	}
}

func TestUserCreateAsQueryRejected(t *testing.T) {
	r := usersRouter(t)
	_, err := call(t, r, "user.create", rpc.KindQuery, `{"email":"alice@x.com"}`)
	rpcErr, ok := rpc.AsError(err)
	if !ok || rpcErr.Code != rpc.CodeNotFound {
		t.Fatalf("mutations must not be callable as queries, got %v", err)
	}
}

func TestUserGetInvalidID(t *testing.T) {
	r := usersRouter(t)
	_, err := call(t, r, "user.get", rpc.KindQuery, `{"id":"not-a-uuid"}`)
	rpcErr, ok := rpc.AsError(err)
	if !ok || rpcErr.Code != rpc.CodeBadRequest {
		t.Fatalf("expected BAD_REQUEST for malformed uuid, got %v", err)
	}
}

func TestUserGetByEmailMiss(t *testing.T) {
	r := usersRouter(t)
	out, err := call(t, r, "user.getByEmail", rpc.KindQuery, `{"email":"ghost@x.com"}`)
	if err != nil {
		t.Fatalf("user.getByEmail failed: %v", err)
	}
	if out["user"] != nil {
		t.Fatalf("expected null user on miss, got %v", out["user"])
	}
}

func TestUserUpdateClearsNameOnNull(t *testing.T) {
	r := usersRouter(t)
	created, err := call(t, r, "user.create", rpc.KindMutation, `{"email":"alice@x.com","name":"Alice"}`)
	if err != nil {
		t.Fatalf("user.create failed: %v", err)
	}
	id := created["id"].(string)

	// Omitted name stays put.
	updated, err := call(t, r, "user.update", rpc.KindMutation, `{"id":"`+id+`","email":"alice2@x.com"}`)
	if err != nil {
		t.Fatalf("user.update failed: %v", err)
	}
	if name, _ := updated["name"].(*string); name == nil || *name != "Alice" {
		t.Fatalf("omitted name must remain, got %v", updated["name"])
	}

	// Explicit null clears it.
	updated, err = call(t, r, "user.update", rpc.KindMutation, `{"id":"`+id+`","name":null}`)
	if err != nil {
		t.Fatalf("user.update with null name failed: %v", err)
	}
	if name, _ := updated["name"].(*string); name != nil {
		t.Fatalf("null name must clear, got %v", updated["name"])
	}
}

func TestUserSoftDeleteRestoreFlow(t *testing.T) {
	r := usersRouter(t)
	created, err := call(t, r, "user.create", rpc.KindMutation, `{"email":"alice@x.com"}`)
	if err != nil {
		t.Fatalf("user.create failed: %v", err)
	}
	id := created["id"].(string)

	deleted, err := call(t, r, "user.softDelete", rpc.KindMutation, `{"id":"`+id+`"}`)
	if err != nil {
		t.Fatalf("user.softDelete failed: %v", err)
	}
	if deleted["deletedAt"] == nil {
		t.Fatal("expected deletedAt set after soft delete")
	}

	_, err = call(t, r, "user.get", rpc.KindQuery, `{"id":"`+id+`"}`)
	rpcErr, ok := rpc.AsError(err)
	if !ok || rpcErr.Code != rpc.CodeNotFound {
		t.Fatalf("soft-deleted user must be unreadable, got %v", err)
	}

	restored, err := call(t, r, "user.restore", rpc.KindMutation, `{"id":"`+id+`"}`)
	if err != nil {
		t.Fatalf("user.restore failed: %v", err)
	}
	if restored["deletedAt"] != nil {
		t.Fatal("expected deletedAt cleared after restore")
	}
}

func TestUserDelete(t *testing.T) {
	r := usersRouter(t)
	created, err := call(t, r, "user.create", rpc.KindMutation, `{"email":"alice@x.com"}`)
	if err != nil {
		t.Fatalf("user.create failed: %v", err)
	}
	id := created["id"].(string)

	out, err := call(t, r, "user.delete", rpc.KindMutation, `{"id":"`+id+`"}`)
	if err != nil {
		t.Fatalf("user.delete failed: %v", err)
	}
	if out["deleted"] != true || out["id"] != id {
		t.Fatalf("unexpected delete result: %v", out)
	}

	_, err = call(t, r, "user.delete", rpc.KindMutation, `{"id":"`+id+`"}`)
	rpcErr, ok := rpc.AsError(err)
	if !ok || rpcErr.Code != rpc.CodeNotFound {
		t.Fatalf("deleting a gone user must be NOT_FOUND, got %v", err)
	}
}

func TestUserCountAndRoleListings(t *testing.T) {
	r := usersRouter(t)
	for _, payload := range []string{
		`{"email":"admin@x.com","role":"ADMIN"}`,
		`{"email":"mod@x.com","role":"MODERATOR"}`,
		`{"email":"user@x.com"}`,
	} {
		if _, err := call(t, r, "user.create", rpc.KindMutation, payload); err != nil {
			t.Fatalf("seed %s: %v", payload, err)
		}
	}

	out, err := call(t, r, "user.count", rpc.KindQuery, "")
	if err != nil {
		t.Fatalf("user.count failed: %v", err)
	}
	if out["count"] != int64(3) {
		t.Fatalf("expected count 3, got %v", out["count"])
	}

	admins, err := call(t, r, "user.admins", rpc.KindQuery, "")
	if err != nil {
		t.Fatalf("user.admins failed: %v", err)
	}
	if len(admins["users"].([]map[string]any)) != 1 {
		t.Fatalf("expected one admin, got %v", admins["users"])
	}

	mods, err := call(t, r, "user.moderators", rpc.KindQuery, "")
	if err != nil {
		t.Fatalf("user.moderators failed: %v", err)
	}
	if len(mods["users"].([]map[string]any)) != 1 {
		t.Fatalf("expected one moderator, got %v", mods["users"])
	}
}

func TestUserSearchWithoutBackend(t *testing.T) {
	r := usersRouter(t)
	out, err := call(t, r, "user.search", rpc.KindQuery, `{"query":"alice"}`)
	if err != nil {
		t.Fatalf("user.search failed: %v", err)
	}
	if len(out["results"].([]map[string]any)) != 0 {
		t.Fatalf("expected no results without a search backend, got %v", out["results"])
	}
}
