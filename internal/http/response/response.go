// Package response owns the wire envelope and the single error funnel every
// handler failure passes through.
package response

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/wildtrek/tours/internal/api/apierror"
	"github.com/wildtrek/tours/pkg/logger"
)

// production switches the funnel's verbosity: detail and stacks in
// development, squashed internals in production.
var production bool

func SetProduction(p bool) { production = p }

// Envelope is the uniform response shape:
// {status: success|fail|error, data?, token?, message?}.
type Envelope struct {
	Status  string `json:"status"`
	Results *int   `json:"results,omitempty"`
	Token   string `json:"token,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	// Development-only fields
	Error string `json:"error,omitempty"`
	Stack string `json:"stack,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func Success(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Status: "success", Data: data})
}

// SuccessList includes the result count alongside the data, like every list
// endpoint response.
func SuccessList(w http.ResponseWriter, count int, data any) {
	writeJSON(w, http.StatusOK, Envelope{Status: "success", Results: &count, Data: data})
}

// SuccessToken is the login/signup/reset shape: envelope plus the bearer token.
func SuccessToken(w http.ResponseWriter, status int, token string, data any) {
	writeJSON(w, status, Envelope{Status: "success", Token: token, Data: data})
}

func SuccessMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Status: "success", Message: message})
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error is the funnel. It classifies err, picks fail/error status wording,
// squashes non-operational detail in production, and renders HTML for page
// requests instead of JSON.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	op := apierror.From(err)

	if !op.IsOperational() {
		logger.ErrorContext(r.Context(), "unexpected error", "error", err)
	}

	if !strings.HasPrefix(r.URL.Path, "/api") {
		renderErrorPage(w, r, op)
		return
	}

	env := Envelope{
		Status:  statusWord(op.Status),
		Message: op.Message,
	}

	if production {
		if !op.IsOperational() {
			env.Message = "something went very wrong"
		}
	} else {
		env.Error = fmt.Sprintf("%+v", err)
		env.Stack = string(debug.Stack())
	}

	writeJSON(w, op.Status, env)
}

func statusWord(status int) string {
	if status >= 400 && status < 500 {
		return "fail"
	}
	return "error"
}

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head><title>Something went wrong!</title></head>
<body>
  <main class="error">
    <h1>Something went wrong!</h1>
    <p>{{.Message}}</p>
  </main>
</body>
</html>
`))

func renderErrorPage(w http.ResponseWriter, r *http.Request, op *apierror.Error) {
	msg := op.Message
	if production && !op.IsOperational() {
		msg = "Please try again later!"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(op.Status)
	if err := errorPage.Execute(w, map[string]string{"Message": msg}); err != nil {
		logger.ErrorContext(r.Context(), "failed to render error page", "error", err)
	}
}
