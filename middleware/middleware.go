package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipehub/globals"
	"recipehub/models"
	"recipehub/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

// JWT claims
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Revocations reports tokens invalidated by logout.
type Revocations interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type claimsKey struct{}

// Auth signs and checks bearer tokens with one HMAC secret.
type Auth struct {
	secret  []byte
	revoked Revocations
}

// NewAuth builds an Auth. revoked may be nil.
func NewAuth(secret string, revoked Revocations) *Auth {
	return &Auth{secret: []byte(secret), revoked: revoked}
}

// Sign issues an HS256 token for claims.
func (a *Auth) Sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ValidateJWT parses an Authorization header value of the form "Bearer <token>".
func (a *Auth) ValidateJWT(ctx context.Context, header string) (*Claims, error) {
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return nil, errors.New("invalid token format")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if a.revoked != nil && claims.ID != "" {
		revoked, err := a.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			// fail open
			log.Warn().Err(err).Msg("token revocation check failed")
		} else if revoked {
			return nil, errors.New("token revoked")
		}
	}
	return claims, nil
}

func withClaims(r *http.Request, claims *Claims) *http.Request {
	ctx := context.WithValue(r.Context(), globals.UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, globals.RoleKey, claims.Role)
	ctx = context.WithValue(ctx, claimsKey{}, claims)
	return r.WithContext(ctx)
}

// ClaimsFromContext returns the claims stored by Authenticate.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

func (a *Auth) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			utils.WriteError(w, r, models.NewUnauthorizedError("Missing token"))
			return
		}

		claims, err := a.ValidateJWT(r.Context(), tokenString)
		if err != nil {
			utils.WriteError(w, r, models.NewUnauthorizedError("Invalid token"))
			return
		}

		next(w, withClaims(r, claims), ps)
	}
}

// RequireRoles admits requests whose role is one of roles. It must run
// after Authenticate.
func RequireRoles(roles ...string) Middleware {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			role := utils.GetRoleFromRequest(r)
			for _, allowed := range roles {
				if role == allowed {
					next(w, r, ps)
					return
				}
			}
			utils.WriteError(w, r, models.NewForbiddenError("Insufficient permissions"))
		}
	}
}

// NewClaims builds claims for a user valid for ttl from now.
func NewClaims(user *models.User, jti string, ttl time.Duration, now time.Time) *Claims {
	return &Claims{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}
