// Package pinauth validates submitted PINs against a portfolio item's stored
// secret and tracks the resulting authorization, scoped to one viewer session.
package pinauth

import (
	"errors"
	"time"
)

const MinPinLength = 4

var (
	// ErrPinTooShort is the client-side pre-check failure: the authoritative
	// check only runs for PINs that are non-empty and at least MinPinLength.
	ErrPinTooShort = errors.New("pin must be at least 4 characters")

	// ErrInvalidPin means the submitted PIN does not match the stored secret.
	ErrInvalidPin = errors.New("invalid pin")

	// ErrValidateUnavailable is the transport-class failure: validation could
	// not be performed at all. Retried only on explicit user action.
	ErrValidateUnavailable = errors.New("pin validation unavailable")

	ErrSessionNotFound = errors.New("viewer session not found")
)

// AuthorizationState is the per-session authorization fact for one portfolio
// item. Granted is flipped exactly once, by a successful validation, and never
// reverts within the session's lifetime.
type AuthorizationState struct {
	Required bool `json:"required"`
	Granted  bool `json:"granted"`
}

// Session is one viewer's browsing session against one portfolio item. It
// lives only in memory and dies with the server or its TTL, whichever first.
type Session struct {
	ID          string
	PortfolioID string
	State       AuthorizationState
	CreatedAt   time.Time
}

type Config struct {
	SessionTTLMinutes int `mapstructure:"session_ttl_minutes"`
	GrantTTLMinutes   int `mapstructure:"grant_ttl_minutes"`
}

// GrantClaims are the claims carried by a grant token issued after a
// successful PIN validation.
type GrantClaims struct {
	SessionID   string `json:"sessionId"`
	PortfolioID string `json:"portfolioId"`
}
