// Package service holds the flows that span more than one store or
// collaborator: credentials, review aggregates and checkout.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wildtrek/tours/internal/api/apierror"
	"github.com/wildtrek/tours/internal/domain"
	"github.com/wildtrek/tours/internal/platform/mailer"
	"github.com/wildtrek/tours/internal/platform/password"
	"github.com/wildtrek/tours/internal/platform/token"
	"github.com/wildtrek/tours/pkg/events"
	"github.com/wildtrek/tours/pkg/logger"
)

// AuthUserStore is the slice of the users repo the auth flows need.
type AuthUserStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByResetHash(ctx context.Context, resetHash string) (*domain.User, error)
	SetResetToken(ctx context.Context, id int64, resetHash string, expires time.Time) error
	ClearResetToken(ctx context.Context, id int64) error
	SetPassword(ctx context.Context, id int64, passwordHash string) error
}

type Auth struct {
	users    AuthUserStore
	hasher   password.Hasher
	tokens   *token.Service
	mail     mailer.Service
	bus      events.Publisher
	resetTTL time.Duration
}

func NewAuth(users AuthUserStore, hasher password.Hasher, tokens *token.Service,
	mail mailer.Service, bus events.Publisher, resetTTL time.Duration) *Auth {
	return &Auth{users: users, hasher: hasher, tokens: tokens, mail: mail, bus: bus, resetTTL: resetTTL}
}

// TokenTTL is the session lifetime, for cookie expiry.
func (a *Auth) TokenTTL() time.Duration { return a.tokens.TTL() }

// Signup creates an account and logs it straight in.
func (a *Auth) Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	hash, err := a.hasher.Hash(req.Password)
	if err != nil {
		return nil, "", err
	}

	user, err := a.users.Create(ctx, req.Name, req.Email, hash)
	if err != nil {
		return nil, "", err
	}

	signed, err := a.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}

	a.publish(ctx, events.UserSignedUp, events.UserSignedUpEvent{
		UserID: user.ID, Email: user.Email, Name: user.Name, SignedAt: time.Now(),
	})
	a.publish(ctx, events.NotifySend, events.NotificationEvent{
		Type: "welcome", Recipient: user.Email, Name: user.Name, URL: "/me",
	})

	return user, signed, nil
}

// Login checks credentials. Unknown email and wrong password share one
// message so the response does not leak which part was wrong.
func (a *Auth) Login(ctx context.Context, req domain.LoginRequest) (*domain.User, string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	user, err := a.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apierror.New(http.StatusUnauthorized,
				apierror.CodeInvalidCredentials, "incorrect email or password")
		}
		return nil, "", err
	}
	if !a.hasher.Compare(req.Password, user.PasswordHash) {
		return nil, "", apierror.New(http.StatusUnauthorized,
			apierror.CodeInvalidCredentials, "incorrect email or password")
	}

	signed, err := a.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, signed, nil
}

// ForgotPassword stores a hashed single-use reset token and emails the raw
// token. A failed send rolls the token back so the stored state never points
// at an email nobody received.
func (a *Auth) ForgotPassword(ctx context.Context, email, resetURLBase string) error {
	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apierror.NotFound("there is no user with that email address")
		}
		return err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return err
	}
	resetToken := hex.EncodeToString(raw)
	resetHash := hashResetToken(resetToken)

	if err := a.users.SetResetToken(ctx, user.ID, resetHash, time.Now().Add(a.resetTTL)); err != nil {
		return err
	}

	resetURL := resetURLBase + "/api/v1/users/resetPassword/" + resetToken
	if err := a.mail.SendPasswordReset(user.Email, user.Name, resetURL); err != nil {
		if clearErr := a.users.ClearResetToken(ctx, user.ID); clearErr != nil {
			logger.ErrorContext(ctx, "failed to roll back reset token", "error", clearErr, "user_id", user.ID)
		}
		return apierror.Wrap(err, http.StatusInternalServerError,
			apierror.CodeEmailDeliveryFailed, "there was an error sending the email; try again later")
	}
	return nil
}

// ResetPassword consumes a reset token. The stored hash is cleared by the
// password write, so a second use of the same token fails the lookup.
func (a *Auth) ResetPassword(ctx context.Context, rawToken string, req domain.ResetPasswordRequest) (*domain.User, string, error) {
	user, err := a.users.FindByResetHash(ctx, hashResetToken(rawToken))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apierror.BadRequest(apierror.CodeInvalidOrExpiredToken,
				"token is invalid or has expired")
		}
		return nil, "", err
	}

	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	hash, err := a.hasher.Hash(req.Password)
	if err != nil {
		return nil, "", err
	}
	if err := a.users.SetPassword(ctx, user.ID, hash); err != nil {
		return nil, "", err
	}

	signed, err := a.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}

	a.publish(ctx, events.PasswordChanged, map[string]any{"user_id": user.ID})
	return user, signed, nil
}

// UpdatePassword changes the password of a logged-in user and issues a fresh
// token, since the old one dies with the password change.
func (a *Auth) UpdatePassword(ctx context.Context, user *domain.User, req domain.UpdatePasswordRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if !a.hasher.Compare(req.PasswordCurrent, user.PasswordHash) {
		return "", apierror.New(http.StatusUnauthorized,
			apierror.CodeInvalidCredentials, "your current password is wrong")
	}

	hash, err := a.hasher.Hash(req.Password)
	if err != nil {
		return "", err
	}
	if err := a.users.SetPassword(ctx, user.ID, hash); err != nil {
		return "", err
	}

	signed, err := a.tokens.Issue(user.ID)
	if err != nil {
		return "", err
	}

	a.publish(ctx, events.PasswordChanged, map[string]any{"user_id": user.ID})
	return signed, nil
}

func (a *Auth) publish(ctx context.Context, subject string, data any) {
	if a.bus == nil {
		return
	}
	if err := a.bus.Publish(ctx, subject, data); err != nil {
		logger.ErrorContext(ctx, "failed to publish event", "subject", subject, "error", err)
	}
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
