package types

// Keys under which the session middleware stores request state.
const (
	ContextUserKey   = "user"
	ContextUserIDKey = "user_id"
)
