// File: internal/common/context_keys.go
package common

const (
	// AuthorizationHeader is the header name for authorization token
	AuthorizationHeader = "Authorization"
	// AuthorizationTypeBearer is the prefix for Bearer tokens
	AuthorizationTypeBearer = "Bearer"
	// IdentityKey is the gin context key for the session identity
	IdentityKey = "identity"
	// ResolvedIdentityKey is the gin context key for the resolved identity (identity + profile)
	ResolvedIdentityKey = "resolvedIdentity"
	// LoggerKey is the gin context key for the request-scoped logger
	LoggerKey = "logger"
)
