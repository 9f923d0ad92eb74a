// File: internal/auth/model.go
package auth

import (
	"time"

	"instauto_backend/internal/shared"
)

// SessionRequest optionally carries the ID token when it is not sent in the
// Authorization header.
type SessionRequest struct {
	IDToken string `json:"id_token" binding:"omitempty,min=16"`
}

// SessionResponse describes the resolved caller and where to send it.
type SessionResponse struct {
	Identity    *shared.ResolvedIdentityResponse `json:"identity,omitempty"`
	LandingPath string                           `json:"landing_path"`
}

// DevTokenRequest asks for a local development token.
type DevTokenRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// DevTokenResponse is a signed local development token.
type DevTokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// SnapshotView is one event of the watch stream.
type SnapshotView struct {
	Seq         uint64                           `json:"seq"`
	Phase       string                           `json:"phase"`
	Status      string                           `json:"status,omitempty"`
	Identity    *shared.ResolvedIdentityResponse `json:"identity,omitempty"`
	LandingPath string                           `json:"landing_path,omitempty"`
}
