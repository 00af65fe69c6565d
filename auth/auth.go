package auth

import (
	"context"
	"net/http"
	"time"

	"recipehub/middleware"
	"recipehub/models"
	"recipehub/utils"
	"recipehub/validation"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

// Authenticator checks credentials. users.Service implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

// Revoker invalidates a token id until ttl elapses.
type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

type Handler struct {
	users   Authenticator
	tokens  *middleware.Auth
	revoker Revoker
	ttl     time.Duration
	now     func() time.Time
}

// NewHandler builds the auth handlers. revoker may be nil, in which case
// logout only acknowledges.
func NewHandler(users Authenticator, tokens *middleware.Auth, revoker Revoker, ttl time.Duration) *Handler {
	return &Handler{users: users, tokens: tokens, revoker: revoker, ttl: ttl, now: time.Now}
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var in models.LoginInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := validation.Struct(&in); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	user, err := h.users.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	now := h.now()
	claims := middleware.NewClaims(user, utils.GetUUID(), h.ttl, now)
	token, err := h.tokens.Sign(claims)
	if err != nil {
		utils.WriteError(w, r, models.NewInternalError(err))
		return
	}

	log.Info().Str("userId", user.ID.Hex()).Msg("user logged in")
	utils.SendResponse(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
	}, "User logged in successfully")
}

// Logout handles POST /auth/logout. It must run after Authenticate.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		utils.WriteError(w, r, models.NewUnauthorizedError("Missing token"))
		return
	}

	if h.revoker != nil && claims.ID != "" && claims.ExpiresAt != nil {
		remaining := claims.ExpiresAt.Sub(h.now())
		if err := h.revoker.Revoke(ctx, claims.ID, remaining); err != nil {
			utils.WriteError(w, r, err)
			return
		}
	}

	utils.SendResponse(w, http.StatusOK, nil, "Logged out successfully")
}
