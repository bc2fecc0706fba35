package handlers

import (
	"html/template"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wildtrek/tours/internal/api/query"
	"github.com/wildtrek/tours/internal/domain"
	"github.com/wildtrek/tours/internal/http/middleware"
	"github.com/wildtrek/tours/internal/http/response"
	"github.com/wildtrek/tours/internal/repo/postgres"
	"github.com/wildtrek/tours/pkg/logger"
)

// ViewsHandler renders the server-side pages. All view routes run behind
// OptionalAuth so the header can show the logged-in user without demanding
// one.
type ViewsHandler struct {
	tpl      *template.Template
	tours    postgres.ToursRepo
	bookings postgres.BookingsRepo
}

type viewData struct {
	Title    string
	User     *domain.User
	Tours    []domain.Tour
	Tour     *domain.Tour
	Bookings []domain.Booking
}

func NewViewsHandler(templates fs.FS, tours postgres.ToursRepo, bookings postgres.BookingsRepo) (*ViewsHandler, error) {
	tpl, err := template.ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &ViewsHandler{tpl: tpl, tours: tours, bookings: bookings}, nil
}

func (h *ViewsHandler) render(w http.ResponseWriter, r *http.Request, name string, data viewData) {
	data.User = middleware.CurrentUser(r.Context())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tpl.ExecuteTemplate(w, name, data); err != nil {
		logger.ErrorContext(r.Context(), "failed to render page", "template", name, "error", err)
	}
}

func (h *ViewsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	opts := query.ParseListOptions(r.URL.Query(), postgres.TourListFields())
	tours, err := h.tours.List(r.Context(), opts)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	h.render(w, r, "overview", viewData{Title: "All tours", Tours: tours})
}

func (h *ViewsHandler) Tour(w http.ResponseWriter, r *http.Request) {
	tour, err := h.tours.FindBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	h.render(w, r, "tour", viewData{Title: tour.Name, Tour: tour})
}

func (h *ViewsHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "login", viewData{Title: "Log into your account"})
}

// Account requires a logged-in user; the router mounts it behind RequireAuth.
func (h *ViewsHandler) Account(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "account", viewData{Title: "Your account"})
}

func (h *ViewsHandler) MyTours(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	bookings, err := h.bookings.ListByUser(r.Context(), user.ID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	h.render(w, r, "my_tours", viewData{Title: "My bookings", Bookings: bookings})
}
