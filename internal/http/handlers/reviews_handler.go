package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wildtrek/tours/internal/api/query"
	"github.com/wildtrek/tours/internal/domain"
	"github.com/wildtrek/tours/internal/http/middleware"
	"github.com/wildtrek/tours/internal/repo/postgres"
	"github.com/wildtrek/tours/internal/service"
)

// ReviewsHandler serves reviews both top-level and nested under a tour. The
// scope hook pins nested listings to their tour and stamps authorship on
// create, so clients cannot review as someone else.
type ReviewsHandler struct {
	Resource[domain.Review]
}

func NewReviewsHandler(reviews postgres.ReviewsRepo, svc *service.Reviews) *ReviewsHandler {
	h := &ReviewsHandler{
		Resource: Resource[domain.Review]{
			Store:         reviews,
			ListFields:    postgres.ReviewListFields(),
			ValidatePatch: domain.ValidateReviewPatch,
			Scope:         reviewScope,
		},
	}
	h.AfterCreate = func(ctx context.Context, rv *domain.Review) {
		svc.Written(ctx, rv)
	}
	h.AfterChange = func(ctx context.Context, rv *domain.Review) {
		if rv != nil {
			svc.RecalcRatings(ctx, rv.TourID)
		}
	}
	return h
}

func reviewScope(r *http.Request, opts *query.ListOptions, body *domain.Review) {
	tourID, _ := strconv.ParseInt(chi.URLParam(r, "tourId"), 10, 64)

	if opts != nil && tourID != 0 {
		opts.Filters = append(opts.Filters, query.Filter{
			Field: "tourId", Op: query.OpEq, Value: strconv.FormatInt(tourID, 10),
		})
	}

	if body != nil {
		if tourID != 0 {
			body.TourID = tourID
		}
		if user := middleware.CurrentUser(r.Context()); user != nil {
			body.UserID = user.ID
		}
	}
}
