package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/manualshelf/manualshelf-server/internal/auth"
	domainerrors "github.com/manualshelf/manualshelf-server/internal/errors"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createSession",
		Method:      http.MethodPost,
		Path:        sessionPath,
		Summary:     "Create session",
		Description: "Exchanges the sync passphrase for a bearer token",
		Tags:        []string{"Session"},
		Middlewares: huma.Middlewares{s.limitHuma},
	}, s.handleCreateSession)
}

// CreateSessionRequest is the request body for creating a session.
type CreateSessionRequest struct {
	Passphrase string `json:"passphrase" validate:"required" doc:"Sync passphrase"`
}

// CreateSessionInput wraps the session request for Huma.
type CreateSessionInput struct {
	Body CreateSessionRequest
}

// SessionResponse carries a bearer token.
type SessionResponse struct {
	Token     string    `json:"token" doc:"PASETO bearer token"`
	ExpiresAt time.Time `json:"expires_at" doc:"Token expiry"`
}

// SessionOutput wraps the session response for Huma.
type SessionOutput struct {
	Body SessionResponse
}

func (s *Server) handleCreateSession(_ context.Context, input *CreateSessionInput) (*SessionOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	account := s.services.Account.Account()
	if account == nil || !account.Exists() {
		return nil, domainerrors.Forbidden("No sync account is configured")
	}

	token, expires, err := account.CreateSession(input.Body.Passphrase)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPassphrase) {
			s.logger.Warn("session rejected: invalid passphrase")
			return nil, domainerrors.Unauthorized("Invalid passphrase")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "Failed to issue token")
	}

	return &SessionOutput{Body: SessionResponse{Token: token, ExpiresAt: expires}}, nil
}

// limitHuma applies the per-IP limiter to a huma operation.
func (s *Server) limitHuma(ctx huma.Context, next func(huma.Context)) {
	if s.limiter != nil && !s.limiter.Allow(clientIP(ctx.RemoteAddr())) {
		s.logger.Warn("Rate limit exceeded", "ip", clientIP(ctx.RemoteAddr()), "path", ctx.URL().Path)
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, "Too many requests. Please try again later.")
		return
	}
	next(ctx)
}
