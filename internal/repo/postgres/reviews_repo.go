package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wildtrek/tours/internal/api/query"
	"github.com/wildtrek/tours/internal/domain"
)

const reviewCols = `r.id, r.review, r.rating, r.tour_id, r.user_id,
u.name, u.photo, r.created_at`

var reviewListFields = map[string]bool{
	"rating": true, "tourId": true, "userId": true, "createdAt": true, "id": true,
}

var reviewListCols = map[string]string{
	"rating": "r.rating", "tourId": "r.tour_id", "userId": "r.user_id",
	"createdAt": "r.created_at", "id": "r.id",
}

var reviewPatchCols = map[string]string{
	"review": "review", "rating": "rating",
}

// ReviewListFields exposes the allow-list to the handler layer.
func ReviewListFields() map[string]bool { return reviewListFields }

type ReviewsRepo interface {
	List(ctx context.Context, opts query.ListOptions) ([]domain.Review, error)
	Find(ctx context.Context, id int64) (*domain.Review, error)
	Insert(ctx context.Context, rv *domain.Review) (*domain.Review, error)
	Update(ctx context.Context, id int64, patch map[string]any) (*domain.Review, error)
	Delete(ctx context.Context, id int64) error
	RatingStats(ctx context.Context, tourID int64) (avg float64, qty int, err error)
}

type ReviewsRepoImpl struct{ pool *pgxpool.Pool }

func NewReviewsRepo(pool *pgxpool.Pool) *ReviewsRepoImpl { return &ReviewsRepoImpl{pool: pool} }

func scanReview(row pgx.Row) (*domain.Review, error) {
	var rv domain.Review
	if err := row.Scan(
		&rv.ID, &rv.Review, &rv.Rating, &rv.TourID, &rv.UserID,
		&rv.UserName, &rv.UserPhoto, &rv.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *ReviewsRepoImpl) List(ctx context.Context, opts query.ListOptions) ([]domain.Review, error) {
	q, args := appendListClauses(
		`SELECT `+reviewCols+` FROM reviews r JOIN users u ON u.id = r.user_id WHERE true`,
		opts, reviewListCols, nil, "r.created_at DESC",
	)
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, *rv)
	}
	return reviews, rows.Err()
}

func (r *ReviewsRepoImpl) Find(ctx context.Context, id int64) (*domain.Review, error) {
	const q = `SELECT ` + reviewCols + ` FROM reviews r JOIN users u ON u.id = r.user_id WHERE r.id = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanReview(r.pool.QueryRow(ctx, q, id))
}

func (r *ReviewsRepoImpl) Insert(ctx context.Context, rv *domain.Review) (*domain.Review, error) {
	// The unique (tour_id, user_id) index rejects a second review as a
	// duplicate-key error downstream.
	const q = `
INSERT INTO reviews (review, rating, tour_id, user_id)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	created := *rv
	if err := r.pool.QueryRow(ctx, q, rv.Review, rv.Rating, rv.TourID, rv.UserID).
		Scan(&created.ID, &created.CreatedAt); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *ReviewsRepoImpl) Update(ctx context.Context, id int64, patch map[string]any) (*domain.Review, error) {
	q, args, ok := buildUpdate("reviews", patch, reviewPatchCols, id,
		"id, review, rating, tour_id, user_id, created_at")
	if !ok {
		return r.Find(ctx, id)
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rv domain.Review
	if err := r.pool.QueryRow(ctx, q, args...).Scan(
		&rv.ID, &rv.Review, &rv.Rating, &rv.TourID, &rv.UserID, &rv.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *ReviewsRepoImpl) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM reviews WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// RatingStats recomputes a tour's review aggregate. A tour with no reviews
// falls back to the 4.5 default and zero quantity.
func (r *ReviewsRepoImpl) RatingStats(ctx context.Context, tourID int64) (float64, int, error) {
	const q = `
SELECT coalesce(round(avg(rating)::numeric, 1)::float8, 4.5), count(*)
FROM reviews
WHERE tour_id = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var avg float64
	var qty int
	if err := r.pool.QueryRow(ctx, q, tourID).Scan(&avg, &qty); err != nil {
		return 0, 0, err
	}
	return avg, qty, nil
}
