package router

import (
	"time"

	"github.com/davitrie/userbase/internal/application"
	"github.com/davitrie/userbase/internal/container"
	pginfra "github.com/davitrie/userbase/internal/infrastructure/postgres"
	handlers "github.com/davitrie/userbase/internal/interface/http"
	"github.com/davitrie/userbase/internal/interface/procedures"
	"github.com/davitrie/userbase/internal/router/modules"
	"github.com/davitrie/userbase/internal/rpc"
	"github.com/davitrie/userbase/pkg/validation"
)

// buildDispatcher wires the procedure registry: every chain runs error
// normalization outermost, then logging; health.ping additionally runs its
// own fixed-window limiter.
func buildDispatcher(startedAt time.Time) *rpc.Router {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	validate := validation.New()
	dispatcher := rpc.NewRouter()

	base := []rpc.Middleware{
		rpc.ErrorNormalization(logger),
		rpc.Logging(logger),
	}

	pingLimiter := rpc.NewRateLimiter(30, time.Minute)
	rateLimited := make([]rpc.Middleware, 0, len(base)+1)
	rateLimited = append(rateLimited, base...)
	rateLimited = append(rateLimited, pingLimiter.Middleware())

	procedures.RegisterHealth(dispatcher, procedures.HealthDeps{
		Env:         cfg.Env,
		StartedAt:   startedAt,
		Validate:    validate,
		Base:        base,
		RateLimited: rateLimited,
	})

	procedures.RegisterAuth(dispatcher, base)

	repo := pginfra.NewUserRepository(container.GetPGPool())

	var events application.Publisher
	if p := container.GetRabbitPub(); p != nil {
		events = p
	}

	service := application.NewService(repo, logger, events, container.GetES(), cfg.ESUsersIndex)

	procedures.RegisterUsers(dispatcher, procedures.UserDeps{
		Service:  service,
		Validate: validate,
		Base:     base,
	})

	return dispatcher
}

// InitModules initializes all application modules and registers them with
// the router registry. Called once during startup.
func InitModules(r *Registry) {
	dispatcher := buildDispatcher(time.Now())
	handler := handlers.NewRPCHandler(dispatcher, container.GetJWT(), container.GetLogger())
	r.Add(modules.NewRPCModule(handler))
}
