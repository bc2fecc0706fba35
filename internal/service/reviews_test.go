package service

import (
	"context"
	"errors"
	"testing"

	"github.com/wildtrek/tours/internal/domain"
)

type mockRatings struct {
	avg float64
	qty int
	err error

	gotTourID int64
	gotAvg    float64
	gotQty    int
	setCalled bool
}

func (m *mockRatings) RatingStats(_ context.Context, tourID int64) (float64, int, error) {
	m.gotTourID = tourID
	return m.avg, m.qty, m.err
}

func (m *mockRatings) SetRatings(_ context.Context, tourID int64, avg float64, qty int) error {
	m.setCalled = true
	m.gotAvg, m.gotQty = avg, qty
	return nil
}

func TestRecalcRatingsWritesAggregate(t *testing.T) {
	m := &mockRatings{avg: 4.2, qty: 17}
	NewReviews(m, m, nil).RecalcRatings(context.Background(), 9)

	if m.gotTourID != 9 {
		t.Errorf("queried tour %d", m.gotTourID)
	}
	if !m.setCalled || m.gotAvg != 4.2 || m.gotQty != 17 {
		t.Errorf("stored avg=%v qty=%d called=%v", m.gotAvg, m.gotQty, m.setCalled)
	}
}

func TestRecalcRatingsSkipsWriteOnStatsError(t *testing.T) {
	m := &mockRatings{err: errors.New("db down")}
	NewReviews(m, m, nil).RecalcRatings(context.Background(), 9)

	if m.setCalled {
		t.Error("aggregate written despite failed recompute")
	}
}

func TestWrittenRecomputesForTheReviewedTour(t *testing.T) {
	m := &mockRatings{avg: 5, qty: 1}
	NewReviews(m, m, nil).Written(context.Background(), &domain.Review{ID: 1, TourID: 3, Rating: 5})

	if m.gotTourID != 3 {
		t.Errorf("recomputed tour %d, want 3", m.gotTourID)
	}
}
