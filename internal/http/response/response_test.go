package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wildtrek/tours/internal/api/apierror"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return env
}

func TestErrorOperationalProd(t *testing.T) {
	SetProduction(true)
	defer SetProduction(false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tours/999", nil)
	Error(rec, req, apierror.NotFound("no document found with that ID"))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	env := decode(t, rec)
	if env.Status != "fail" {
		t.Errorf("status word = %q, want fail", env.Status)
	}
	if env.Message != "no document found with that ID" {
		t.Errorf("operational message squashed: %q", env.Message)
	}
	if env.Stack != "" || env.Error != "" {
		t.Error("production response leaked debug detail")
	}
}

func TestErrorInternalSquashedInProd(t *testing.T) {
	SetProduction(true)
	defer SetProduction(false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	Error(rec, req, errors.New("pool exhausted: pq: too many connections"))

	env := decode(t, rec)
	if rec.Code != http.StatusInternalServerError || env.Status != "error" {
		t.Errorf("got %d/%q, want 500/error", rec.Code, env.Status)
	}
	if strings.Contains(env.Message, "too many connections") {
		t.Errorf("internal detail leaked: %q", env.Message)
	}
}

func TestErrorDevIncludesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	Error(rec, req, errors.New("boom"))

	env := decode(t, rec)
	if env.Error == "" || env.Stack == "" {
		t.Error("development response should include error and stack")
	}
}

func TestErrorRendersHTMLForPages(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tour/the-forest-hiker", nil)
	Error(rec, req, apierror.NotFound("there is no tour with that name"))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q, want html", ct)
	}
	if !strings.Contains(rec.Body.String(), "there is no tour with that name") {
		t.Error("page should carry the operational message")
	}
}

func TestSuccessList(t *testing.T) {
	rec := httptest.NewRecorder()
	SuccessList(rec, 3, []string{"a", "b", "c"})

	env := decode(t, rec)
	if env.Status != "success" || env.Results == nil || *env.Results != 3 {
		t.Errorf("unexpected envelope: %+v", env)
	}
}
