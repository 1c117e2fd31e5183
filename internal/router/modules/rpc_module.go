package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/davitrie/userbase/internal/container"
	handlers "github.com/davitrie/userbase/internal/interface/http"
	"github.com/davitrie/userbase/internal/interface/middleware"
)

// RPCModule mounts the procedure dispatcher under /rpc with the coarse
// transport-level rate limit in front of every inbound call.
// Queries: GET /api/rpc/:path, mutations: POST /api/rpc/:path.
type RPCModule struct {
	Handler *handlers.RPCHandler
}

func NewRPCModule(h *handlers.RPCHandler) *RPCModule {
	return &RPCModule{Handler: h}
}

func (m *RPCModule) Register(rg *gin.RouterGroup) {
	// 100 calls / 15 min per IP in production, 1000 otherwise
	max := 1000
	if container.GetConfig().Env == "production" {
		max = 100
	}
	rl := middleware.RateLimit(container.GetRedis(), max, 15*time.Minute, middleware.KeyByIP())

	grp := rg.Group("/rpc")
	grp.Use(rl)
	grp.GET("/:path", m.Handler.Query)
	grp.POST("/:path", m.Handler.Mutation)
}
