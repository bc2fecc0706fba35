package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/wildtrek/tours/internal/api/apierror"
	"github.com/wildtrek/tours/internal/domain"
	"github.com/wildtrek/tours/pkg/events"
	"github.com/wildtrek/tours/pkg/logger"
)

type bookingWriter interface {
	Insert(ctx context.Context, b *domain.Booking) (*domain.Booking, error)
}

// Bookings drives paid tour bookings through Stripe Checkout. The booking row
// is only written when the webhook confirms payment.
type Bookings struct {
	bookings      bookingWriter
	stripe        *client.API
	bus           events.Publisher
	webhookSecret string
	publicURL     string
}

func NewBookings(bookings bookingWriter, secretKey, webhookSecret, publicURL string, bus events.Publisher) *Bookings {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Bookings{
		bookings:      bookings,
		stripe:        api,
		bus:           bus,
		webhookSecret: webhookSecret,
		publicURL:     publicURL,
	}
}

// CheckoutSession creates a Stripe Checkout session for one seat on a tour
// and returns the hosted payment URL.
func (s *Bookings) CheckoutSession(ctx context.Context, tour *domain.Tour, user *domain.User) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(s.publicURL + "/my-tours"),
		CancelURL:          stripe.String(s.publicURL + "/tour/" + tour.Slug),
		CustomerEmail:      stripe.String(user.Email),
		ClientReferenceID:  stripe.String(checkoutRef(tour.ID, user.ID)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(int64(tour.Price * 100)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(tour.Name + " Tour"),
					Description: stripe.String(tour.Summary),
				},
			},
		}},
	}
	params.Context = ctx

	sess, err := s.stripe.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// HandleWebhook verifies the Stripe signature and, on a completed checkout,
// records the paid booking.
func (s *Bookings) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return apierror.Wrap(err, 400, apierror.CodeValidationFailed, "invalid webhook signature")
	}

	if event.Type != "checkout.session.completed" {
		return nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return apierror.Wrap(err, 400, apierror.CodeValidationFailed, "malformed webhook payload")
	}

	tourID, userID, err := parseCheckoutRef(sess.ClientReferenceID)
	if err != nil {
		return err
	}

	booking, err := s.bookings.Insert(ctx, &domain.Booking{
		TourID: tourID,
		UserID: userID,
		Price:  float64(sess.AmountTotal) / 100,
		Paid:   true,
	})
	if err != nil {
		return err
	}

	if s.bus != nil {
		err := s.bus.Publish(ctx, events.BookingCreated, events.BookingCreatedEvent{
			BookingID: booking.ID, TourID: tourID, UserID: userID,
			Price: sess.AmountTotal, CreatedAt: time.Now(),
		})
		if err != nil {
			logger.ErrorContext(ctx, "failed to publish event", "subject", events.BookingCreated, "error", err)
		}
	}
	return nil
}

func checkoutRef(tourID, userID int64) string {
	return strconv.FormatInt(tourID, 10) + ":" + strconv.FormatInt(userID, 10)
}

func parseCheckoutRef(ref string) (tourID, userID int64, err error) {
	parts := strings.SplitN(ref, ":", 2)
	if len(parts) != 2 {
		return 0, 0, apierror.BadRequest(apierror.CodeValidationFailed, "malformed checkout reference")
	}
	tourID, err1 := strconv.ParseInt(parts[0], 10, 64)
	userID, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, apierror.BadRequest(apierror.CodeValidationFailed, "malformed checkout reference")
	}
	return tourID, userID, nil
}
