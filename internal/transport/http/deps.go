package http

import (
	"github.com/go-email-change/internal/application/emailchange"
	appmiddleware "github.com/go-email-change/internal/transport/http/middleware"
)

// Deps holds the collaborators the router wires into handlers and middleware.
// Sessions may be nil, in which case bearer tokens are trusted until expiry.
// RateLimiter is required; its owner calls Stop.
type Deps struct {
	EmailChange emailchange.Service
	Tokens      appmiddleware.TokenVerifier
	Sessions    appmiddleware.SessionLookup
	RateLimiter *appmiddleware.RateLimiter
}
