package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/davitrie/userbase/internal/rpc"
	"github.com/davitrie/userbase/pkg/helpers"
	"github.com/davitrie/userbase/pkg/response"
)

// RPCHandler adapts the HTTP transport to the procedure dispatcher:
// GET carries queries (input in the "input" query param), POST carries
// mutations (input in the body).
type RPCHandler struct {
	Router *rpc.Router
	JWT    *helpers.JWTManager
	Logger *logrus.Logger
}

func NewRPCHandler(router *rpc.Router, jwt *helpers.JWTManager, logger *logrus.Logger) *RPCHandler {
	return &RPCHandler{Router: router, JWT: jwt, Logger: logger}
}

// buildContext resolves the caller's network origin and, when a bearer
// credential verifies, the authenticated user. Verification failures are
// swallowed here; the router enforces auth per procedure.
func (h *RPCHandler) buildContext(c *gin.Context) *rpc.CallContext {
	ip := c.GetString("real_ip")
	if ip == "" {
		ip = c.ClientIP()
	}

	var user *rpc.User
	authz := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(authz, "Bearer "); ok && token != "" {
		claims, err := h.JWT.Verify(token)
		if err == nil {
			user = &rpc.User{ID: claims.UserID, Email: claims.Email}
		} else if h.Logger != nil {
			h.Logger.WithError(err).Debug("bearer token verification failed")
		}
	}

	return rpc.NewCallContext(ip, user, c)
}

// Query handles GET /rpc/:path.
func (h *RPCHandler) Query(c *gin.Context) {
	var raw json.RawMessage
	if in := c.Query("input"); in != "" {
		raw = json.RawMessage(in)
	}
	h.dispatch(c, rpc.KindQuery, raw)
}

// Mutation handles POST /rpc/:path.
func (h *RPCHandler) Mutation(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "failed to read request body", nil)
		c.JSON(resp.Status, resp)
		return
	}
	h.dispatch(c, rpc.KindMutation, body)
}

func (h *RPCHandler) dispatch(c *gin.Context, kind rpc.Kind, raw json.RawMessage) {
	path := c.Param("path")
	call := h.buildContext(c)

	result, err := h.Router.Dispatch(c.Request.Context(), call, path, kind, raw)
	if err != nil {
		rpcErr, ok := rpc.AsError(err)
		if !ok {
			// Dispatch only surfaces typed errors; this is a safety net.
			rpcErr = rpc.Internal(err)
		}
		if rpcErr.Code == rpc.CodeTooManyRequests && rpcErr.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(rpcErr.RetryAfter))
		}
		resp := response.Error[any](c, rpcErr.HTTPStatus(), rpcErr.Message, rpcErr)
		c.JSON(resp.Status, resp)
		return
	}

	resp := response.Success(c, http.StatusOK, result, "ok")
	c.JSON(resp.Status, resp)
}
