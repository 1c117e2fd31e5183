package rpc

// User is the verified principal resolved by the context builder.
type User struct {
	ID    string
	Email string
}

// CallContext is built once per inbound call and passed by reference through
// the middleware chain into the handler. Transport holds opaque framework
// handles; the engine never inspects it.
type CallContext struct {
	User      *User
	ClientIP  string
	Transport any
}

// NewCallContext builds the per-call context. A nil user means the call is
// unauthenticated; the router enforces auth per procedure.
func NewCallContext(clientIP string, user *User, transport any) *CallContext {
	return &CallContext{User: user, ClientIP: clientIP, Transport: transport}
}

// ClientID identifies the caller for rate limiting: the user id when
// authenticated, otherwise the network origin, otherwise "anonymous".
func (c *CallContext) ClientID() string {
	if c == nil {
		return "anonymous"
	}
	if c.User != nil && c.User.ID != "" {
		return c.User.ID
	}
	if c.ClientIP != "" {
		return c.ClientIP
	}
	return "anonymous"
}
