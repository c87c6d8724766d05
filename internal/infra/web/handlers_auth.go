package web

import (
	"net"
	"net/http"
	"time"

	"subscription-billing/internal/infra/logging"
	"subscription-billing/internal/infra/redis"
)

const (
	loginAttempts = 5
	loginWindow   = 15 * time.Minute
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type adminView struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	LastLoginAt *time.Time `json:"last_login,omitempty"`
}

type loginResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Admin     adminView `json:"admin"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}

	if s.deps.Limiter != nil {
		ok, err := s.deps.Limiter.Allow(r.Context(), redis.LoginAttemptKey(clientIP(r), req.Email), loginAttempts, loginWindow)
		if err != nil {
			// fail open; the limiter is an optional dependency
			logging.With(r.Context(), s.log).Warn().Err(err).Msg("login limiter unavailable")
		} else if !ok {
			w.Header().Set("Retry-After", "900")
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "too many login attempts", Kind: kindRateLimited})
			return
		}
	}

	admin, err := s.deps.Auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		logging.With(r.Context(), s.log).Info().Str("email", logging.Redact(req.Email, s.dev)).Msg("login rejected")
		writeError(w, r, s.log, s.dev, err)
		return
	}

	token, exp, err := s.auth.Mint(admin)
	if err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Message:   "Login successful",
		Token:     token,
		ExpiresAt: exp,
		Admin: adminView{
			ID:          admin.ID,
			Name:        admin.Name,
			Email:       admin.Email,
			Role:        string(admin.Role),
			LastLoginAt: admin.LastLoginAt,
		},
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
