package handlers

import (
	"io"
	"net/http"

	"github.com/wildtrek/tours/internal/api/apierror"
	"github.com/wildtrek/tours/internal/domain"
	"github.com/wildtrek/tours/internal/http/middleware"
	"github.com/wildtrek/tours/internal/http/response"
	"github.com/wildtrek/tours/internal/repo/postgres"
	"github.com/wildtrek/tours/internal/service"
)

// BookingsHandler is the admin booking CRUD plus the Stripe checkout flow.
type BookingsHandler struct {
	Resource[domain.Booking]
	bookings postgres.BookingsRepo
	tours    postgres.ToursRepo
	svc      *service.Bookings
}

func NewBookingsHandler(bookings postgres.BookingsRepo, tours postgres.ToursRepo, svc *service.Bookings) *BookingsHandler {
	return &BookingsHandler{
		Resource: Resource[domain.Booking]{
			Store:         bookings,
			ListFields:    postgres.BookingListFields(),
			ValidatePatch: domain.ValidateBookingPatch,
		},
		bookings: bookings,
		tours:    tours,
		svc:      svc,
	}
}

// CheckoutSession starts payment for GET /checkout-session/{id} and returns
// the hosted Stripe URL.
func (h *BookingsHandler) CheckoutSession(w http.ResponseWriter, r *http.Request) {
	tourID, err := pathID(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	tour, err := h.tours.Find(r.Context(), tourID)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	user := middleware.CurrentUser(r.Context())
	url, err := h.svc.CheckoutSession(r.Context(), tour, user)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, map[string]any{"session": map[string]string{"url": url}})
}

// Webhook receives Stripe's checkout.session.completed callback. Stripe
// authenticates itself through the signature header, not a session.
func (h *BookingsHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		response.Error(w, r, apierror.BadRequest(apierror.CodeValidationFailed, "unreadable webhook body"))
		return
	}

	if err := h.svc.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		response.Error(w, r, err)
		return
	}
	response.SuccessMessage(w, http.StatusOK, "received")
}

// MyBookings lists the authenticated user's bookings.
func (h *BookingsHandler) MyBookings(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	bookings, err := h.bookings.ListByUser(r.Context(), user.ID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.SuccessList(w, len(bookings), bookings)
}
