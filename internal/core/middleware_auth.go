package core

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"wordsmith/internal/types"
)

// userIDHeader names the end user when the web application calls with the
// internal service key.
const userIDHeader = "X-User-ID"

// authPublicPaths are exempt from authentication.
var authPublicPaths = map[string]bool{
	"/health": true,
}

// AuthMiddleware resolves the bearer token to an Actor and stores it in the
// request context. Failures are 401 with auth_token_missing,
// auth_token_invalid or auth_token_revoked; a failing credential store is
// 503. With no Authenticator configured the middleware passes through.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Authenticator == nil || authPublicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.writeAuthError(w, r, types.ErrCodeAuthTokenMissing, "Authorization header is required")
			return
		}
		token := extractBearerToken(authHeader)
		if token == "" {
			s.writeAuthError(w, r, types.ErrCodeAuthTokenMissing, "Bearer token is required")
			return
		}

		actor, err := s.Authenticator.ResolveToken(r.Context(), token, strings.TrimSpace(r.Header.Get(userIDHeader)))
		if err != nil {
			s.handleAuthError(w, r, err)
			return
		}
		if actor == nil {
			s.writeAuthError(w, r, types.ErrCodeAuthTokenInvalid, "Invalid authentication token")
			return
		}

		ctx := types.WithActor(r.Context(), *actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractBearerToken returns the token of a "Bearer <token>" header value.
// The scheme is case-insensitive per RFC 7235.
func extractBearerToken(authHeader string) string {
	const prefix = "Bearer "
	if len(authHeader) < len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(authHeader[len(prefix):])
}

func (s *Server) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		switch appErr.Kind() {
		case types.KindUnauthenticated:
			s.Logger.Warn("authentication failed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("error_code", string(appErr.Code)),
			)
			s.writeAuthError(w, r, appErr.Code, appErr.Message)
			return
		case types.KindPersistenceError:
			s.Logger.Error("authentication store unavailable",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
			Error(w, r, appErr)
			return
		}
	}

	s.Logger.Error("authentication failed: unexpected error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	s.writeAuthError(w, r, types.ErrCodeAuthTokenInvalid, "Authentication failed")
}

func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, code types.ErrorCode, message string) {
	JSON(w, r, http.StatusUnauthorized, APIErrorResponse{
		Error: ErrorDetail{
			Code:      string(code),
			Message:   message,
			RequestID: types.GetRequestID(r.Context()),
		},
	})
}

// ActorFromRequest returns the authenticated Actor or an auth_token_missing
// error when the request was not authenticated.
func ActorFromRequest(r *http.Request) (types.Actor, error) {
	actor, ok := types.GetActor(r.Context())
	if !ok || actor.ID == "" {
		return types.Actor{}, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil)
	}
	return actor, nil
}
