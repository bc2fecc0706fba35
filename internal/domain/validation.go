package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError marks input the client can fix. The error funnel maps it to
// a 400 with the joined messages.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid input data: " + strings.Join(e.Problems, ". ")
}

func newValidationError(problems ...string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

func requireRange(problems []string, name string, v, min, max float64) []string {
	if v < min || v > max {
		problems = append(problems, fmt.Sprintf("%s must be between %g and %g", name, min, max))
	}
	return problems
}
