package service

import (
	"context"

	"github.com/wildtrek/tours/internal/domain"
	"github.com/wildtrek/tours/pkg/events"
	"github.com/wildtrek/tours/pkg/logger"
)

type ratingSource interface {
	RatingStats(ctx context.Context, tourID int64) (avg float64, qty int, err error)
}

type ratingSink interface {
	SetRatings(ctx context.Context, tourID int64, avg float64, qty int) error
}

// Reviews keeps tour rating aggregates in step with review writes. The
// recompute runs after every create, update and delete.
type Reviews struct {
	reviews ratingSource
	tours   ratingSink
	bus     events.Publisher
}

func NewReviews(reviews ratingSource, tours ratingSink, bus events.Publisher) *Reviews {
	return &Reviews{reviews: reviews, tours: tours, bus: bus}
}

// RecalcRatings refreshes ratings_average and ratings_quantity for a tour
// from its current reviews. Failures are logged, not surfaced; the review
// write itself already succeeded.
func (s *Reviews) RecalcRatings(ctx context.Context, tourID int64) {
	avg, qty, err := s.reviews.RatingStats(ctx, tourID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to compute rating stats", "tour_id", tourID, "error", err)
		return
	}
	if err := s.tours.SetRatings(ctx, tourID, avg, qty); err != nil {
		logger.ErrorContext(ctx, "failed to store rating stats", "tour_id", tourID, "error", err)
	}
}

// Written announces a new review and refreshes the aggregate.
func (s *Reviews) Written(ctx context.Context, rv *domain.Review) {
	s.RecalcRatings(ctx, rv.TourID)
	if s.bus == nil {
		return
	}
	err := s.bus.Publish(ctx, events.ReviewWritten, events.ReviewWrittenEvent{
		ReviewID: rv.ID, TourID: rv.TourID, UserID: rv.UserID, Rating: rv.Rating,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to publish event", "subject", events.ReviewWritten, "error", err)
	}
}
