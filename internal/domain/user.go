package domain

import (
	"strings"
	"time"
)

// Valid user roles
const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

var validRoles = map[string]bool{
	RoleUser:      true,
	RoleGuide:     true,
	RoleLeadGuide: true,
	RoleAdmin:     true,
}

// User is the credential-store record. The password hash and reset fields are
// never serialized to clients; Active=false is a soft delete.
type User struct {
	ID                   int64      `json:"id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	Photo                string     `json:"photo"`
	Role                 string     `json:"role"`
	PasswordHash         string     `json:"-"`
	PasswordChangedAt    *time.Time `json:"-"`
	PasswordResetHash    *string    `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	Active               bool       `json:"-"`
	CreatedAt            time.Time  `json:"created_at"`
}

// ChangedPasswordAfter reports whether the password changed after the given
// token issue time. Tokens issued before a password change are dead.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.After(issuedAt)
}

type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (r *SignupRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *SignupRequest) Validate() error {
	var problems []string
	if r.Name == "" {
		problems = append(problems, "please tell us your name")
	}
	if r.Email == "" {
		problems = append(problems, "please provide your email address")
	} else if !isValidEmail(r.Email) {
		problems = append(problems, "please provide a valid email")
	}
	if len(r.Password) < 8 {
		problems = append(problems, "password must be at least 8 characters")
	}
	if r.Password != r.PasswordConfirm {
		problems = append(problems, "passwords must be the same")
	}
	return newValidationError(problems...)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *LoginRequest) Validate() error {
	var problems []string
	if r.Email == "" {
		problems = append(problems, "please provide email")
	}
	if r.Password == "" {
		problems = append(problems, "please provide password")
	}
	return newValidationError(problems...)
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (r *ResetPasswordRequest) Validate() error {
	var problems []string
	if len(r.Password) < 8 {
		problems = append(problems, "password must be at least 8 characters")
	}
	if r.Password != r.PasswordConfirm {
		problems = append(problems, "passwords must be the same")
	}
	return newValidationError(problems...)
}

type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (r *UpdatePasswordRequest) Validate() error {
	var problems []string
	if r.PasswordCurrent == "" {
		problems = append(problems, "please provide your current password")
	}
	if len(r.Password) < 8 {
		problems = append(problems, "password must be at least 8 characters")
	}
	if r.Password != r.PasswordConfirm {
		problems = append(problems, "passwords must be the same")
	}
	return newValidationError(problems...)
}

// ValidateUserPatch gates admin PATCHes on user records. Password mutations go
// through the dedicated password routes only.
func ValidateUserPatch(patch map[string]any) error {
	var problems []string
	for key, v := range patch {
		switch key {
		case "name":
			if s, ok := v.(string); !ok || strings.TrimSpace(s) == "" {
				problems = append(problems, "name must be a non-empty string")
			}
		case "email":
			s, ok := v.(string)
			if !ok || !isValidEmail(strings.ToLower(strings.TrimSpace(s))) {
				problems = append(problems, "please provide a valid email")
			}
		case "role":
			if s, ok := v.(string); !ok || !validRoles[s] {
				problems = append(problems, "role is either: user, guide, lead-guide or admin")
			}
		case "photo", "active":
			// accepted as-is
		case "password", "passwordConfirm":
			problems = append(problems, "this route is not for password updates; use /updateMyPassword")
		}
	}
	return newValidationError(problems...)
}
