package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/wildtrek/tours/internal/api/query"
	"github.com/wildtrek/tours/internal/domain"
)

// ---------- Mock store ----------

type mockTourStore struct {
	tours    map[int64]*domain.Tour
	nextID   int64
	lastOpts query.ListOptions
}

func newMockTourStore(tours ...*domain.Tour) *mockTourStore {
	s := &mockTourStore{tours: map[int64]*domain.Tour{}, nextID: 1}
	for _, t := range tours {
		s.tours[t.ID] = t
		if t.ID >= s.nextID {
			s.nextID = t.ID + 1
		}
	}
	return s
}

func (s *mockTourStore) List(_ context.Context, opts query.ListOptions) ([]domain.Tour, error) {
	s.lastOpts = opts
	out := []domain.Tour{}
	for _, t := range s.tours {
		out = append(out, *t)
		if len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

func (s *mockTourStore) Find(_ context.Context, id int64) (*domain.Tour, error) {
	t, ok := s.tours[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return t, nil
}

func (s *mockTourStore) Insert(_ context.Context, t *domain.Tour) (*domain.Tour, error) {
	created := *t
	created.ID = s.nextID
	s.nextID++
	s.tours[created.ID] = &created
	return &created, nil
}

func (s *mockTourStore) Update(_ context.Context, id int64, patch map[string]any) (*domain.Tour, error) {
	t, ok := s.tours[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if price, ok := patch["price"].(float64); ok {
		t.Price = price
	}
	return t, nil
}

func (s *mockTourStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.tours[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.tours, id)
	return nil
}

func validTour(id int64) *domain.Tour {
	return &domain.Tour{
		ID: id, Name: "The Forest Hiker", Slug: "the-forest-hiker",
		DurationDays: 5, MaxGroupSize: 25, Difficulty: domain.DifficultyEasy,
		RatingsAverage: 4.7, Price: 397, Summary: "Breathtaking hike",
	}
}

func mountResource(store *mockTourStore) http.Handler {
	res := &Resource[domain.Tour]{
		Store:         store,
		ListFields:    map[string]bool{"price": true, "difficulty": true},
		ValidatePatch: domain.ValidateTourPatch,
	}
	r := chi.NewRouter()
	r.Route("/api/v1/tours", res.Mount)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	decoded := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
		}
	}
	return rec, decoded
}

// ---------- Tests ----------

func TestResourceListAppliesQueryContract(t *testing.T) {
	store := newMockTourStore(validTour(1), validTour(2))
	h := mountResource(store)

	rec, body := doJSON(t, h, http.MethodGet,
		"/api/v1/tours?price[gte]=100&sort=-price&limit=1&page=2", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["status"] != "success" {
		t.Errorf("status word = %v", body["status"])
	}
	if got := body["results"].(float64); got != 1 {
		t.Errorf("results = %v, want 1", got)
	}

	opts := store.lastOpts
	if opts.Limit != 1 || opts.Page != 2 {
		t.Errorf("pagination = page %d limit %d", opts.Page, opts.Limit)
	}
	if len(opts.Filters) != 1 || opts.Filters[0].Op != query.OpGte {
		t.Errorf("filters = %+v", opts.Filters)
	}
	if len(opts.Sort) != 1 || !opts.Sort[0].Desc {
		t.Errorf("sort = %+v", opts.Sort)
	}
}

func TestResourceListProjectsFields(t *testing.T) {
	store := newMockTourStore(validTour(1))
	h := mountResource(store)

	_, body := doJSON(t, h, http.MethodGet, "/api/v1/tours?fields=name,price", "")

	items := body["data"].([]any)
	item := items[0].(map[string]any)
	if _, ok := item["difficulty"]; ok {
		t.Error("projection leaked an unrequested field")
	}
	if _, ok := item["name"]; !ok {
		t.Error("requested field missing")
	}
	if _, ok := item["id"]; !ok {
		t.Error("id must always survive projection")
	}
}

func TestResourceGetOneNotFound(t *testing.T) {
	h := mountResource(newMockTourStore())

	rec, body := doJSON(t, h, http.MethodGet, "/api/v1/tours/42", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body["status"] != "fail" {
		t.Errorf("status word = %v, want fail", body["status"])
	}
}

func TestResourceGetOneBadID(t *testing.T) {
	h := mountResource(newMockTourStore())

	rec, _ := doJSON(t, h, http.MethodGet, "/api/v1/tours/not-a-number", "")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestResourceCreate(t *testing.T) {
	store := newMockTourStore()
	h := mountResource(store)

	rec, body := doJSON(t, h, http.MethodPost, "/api/v1/tours",
		`{"name":"The Forest Hiker","duration":5,"maxGroupSize":25,
		  "difficulty":"easy","price":397,"summary":"Breathtaking hike"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %v", rec.Code, body)
	}
	data := body["data"].(map[string]any)
	if data["slug"] != "the-forest-hiker" {
		t.Errorf("slug = %v", data["slug"])
	}
	if data["ratingsAverage"].(float64) != 4.5 {
		t.Errorf("default rating = %v", data["ratingsAverage"])
	}
}

func TestResourceCreateValidationFails(t *testing.T) {
	h := mountResource(newMockTourStore())

	rec, body := doJSON(t, h, http.MethodPost, "/api/v1/tours",
		`{"name":"Too short","difficulty":"extreme"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	msg := body["message"].(string)
	if !strings.Contains(msg, "difficulty") {
		t.Errorf("message = %q, want difficulty problem", msg)
	}
}

// stubBookingStore only needs Insert; bookings validate without normalizing,
// so Create must still reject bad bodies for types without a Normalize method.
type stubBookingStore struct {
	inserted int
}

func (s *stubBookingStore) List(_ context.Context, _ query.ListOptions) ([]domain.Booking, error) {
	return nil, nil
}
func (s *stubBookingStore) Find(_ context.Context, _ int64) (*domain.Booking, error) {
	return nil, pgx.ErrNoRows
}
func (s *stubBookingStore) Insert(_ context.Context, b *domain.Booking) (*domain.Booking, error) {
	s.inserted++
	created := *b
	created.ID = int64(s.inserted)
	return &created, nil
}
func (s *stubBookingStore) Update(_ context.Context, _ int64, _ map[string]any) (*domain.Booking, error) {
	return nil, pgx.ErrNoRows
}
func (s *stubBookingStore) Delete(_ context.Context, _ int64) error { return pgx.ErrNoRows }

func TestResourceCreateValidatesWithoutNormalize(t *testing.T) {
	store := &stubBookingStore{}
	res := &Resource[domain.Booking]{Store: store}
	r := chi.NewRouter()
	r.Route("/api/v1/bookings", res.Mount)

	rec, body := doJSON(t, r, http.MethodPost, "/api/v1/bookings", `{"price":-5}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid booking accepted: status = %d, body %v", rec.Code, body)
	}
	if store.inserted != 0 {
		t.Errorf("store.Insert called %d times, want 0", store.inserted)
	}
	msg := body["message"].(string)
	if !strings.Contains(msg, "price") {
		t.Errorf("message = %q, want price problem", msg)
	}
}

func TestResourceUpdatePatchValidation(t *testing.T) {
	store := newMockTourStore(validTour(1))
	h := mountResource(store)

	rec, _ := doJSON(t, h, http.MethodPatch, "/api/v1/tours/1", `{"price":-5}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative price accepted: %d", rec.Code)
	}

	rec, body := doJSON(t, h, http.MethodPatch, "/api/v1/tours/1", `{"price":500}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := body["data"].(map[string]any)
	if data["price"].(float64) != 500 {
		t.Errorf("price = %v", data["price"])
	}
}

func TestResourceDelete(t *testing.T) {
	store := newMockTourStore(validTour(1))
	h := mountResource(store)

	rec, _ := doJSON(t, h, http.MethodDelete, "/api/v1/tours/1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(store.tours) != 0 {
		t.Error("row still present after delete")
	}

	rec, _ = doJSON(t, h, http.MethodDelete, "/api/v1/tours/1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rec.Code)
	}
}
