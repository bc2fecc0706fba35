package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wildtrek/tours/internal/api/apierror"
	"github.com/wildtrek/tours/internal/domain"
	"github.com/wildtrek/tours/internal/http/response"
	"github.com/wildtrek/tours/internal/platform/token"
	"github.com/wildtrek/tours/pkg/logger"
)

// CookieName is the fixed session cookie; the login handler sets it and the
// extractor below reads it when no bearer header is present.
const CookieName = "jwt"

type ctxKey string

const userKey ctxKey = "current_user"

// UserLoader is the slice of the user store the auth chain needs.
type UserLoader interface {
	FindActiveByID(ctx context.Context, id int64) (*domain.User, error)
}

type Authenticator struct {
	tokens *token.Service
	users  UserLoader
}

func NewAuthenticator(tokens *token.Service, users UserLoader) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// extractToken pulls the raw token from "Authorization: Bearer <t>" or the jwt
// cookie, in that order.
func extractToken(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// authenticate walks the full chain: token present -> valid -> user exists ->
// password unchanged since issuance. Any failure is an operational 401.
func (a *Authenticator) authenticate(r *http.Request) (*domain.User, error) {
	raw := extractToken(r)
	if raw == "" {
		return nil, apierror.Unauthenticated("you are not logged in; please log in to get access")
	}

	id, err := a.tokens.Verify(raw)
	if err != nil {
		return nil, err // ErrExpired / ErrInvalid, classified by the funnel
	}

	user, err := a.users.FindActiveByID(r.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apierror.Unauthenticated("the user belonging to this token no longer exists")
		}
		return nil, err
	}

	if user.ChangedPasswordAfter(id.IssuedAt) {
		return nil, apierror.Unauthenticated("user recently changed the password; please log in again")
	}

	return user, nil
}

// RequireAuth rejects unauthenticated requests and attaches the resolved user
// to the request context.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.authenticate(r)
		if err != nil {
			response.Error(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// OptionalAuth runs the same chain but never rejects; pages rendered for
// anonymous visitors simply see no user in context.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, err := a.authenticate(r); err == nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRoles gates a route on an allow-list of roles. Must run after
// RequireAuth; a request without a resolved user is rejected.
func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := CurrentUser(r.Context())
			if user == nil {
				response.Error(w, r, apierror.Unauthenticated("you are not logged in; please log in to get access"))
				return
			}
			if !allowed[user.Role] {
				response.Error(w, r, apierror.Forbidden("you do not have permission to perform this action"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUser attaches a resolved user to the context. Handler tests use it to
// stand in for the auth chain.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, logger.UserIDKey, user.ID)
}

// CurrentUser returns the authenticated user, or nil outside RequireAuth /
// when OptionalAuth failed.
func CurrentUser(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userKey).(*domain.User)
	return user
}

// SetSessionCookie writes the http-only jwt cookie with the token's lifetime;
// Secure outside development.
func SetSessionCookie(w http.ResponseWriter, tok string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    tok,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie overwrites the cookie with a short-lived dummy value.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "loggedout",
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
