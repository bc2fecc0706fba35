package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wildtrek/tours/internal/api/query"
	"github.com/wildtrek/tours/internal/domain"
)

const tourCols = `id, name, slug, duration_days, max_group_size, difficulty,
ratings_average, ratings_quantity, price, price_discount, summary, description,
image_cover, images, start_dates, start_lat, start_lng, start_address,
secret, created_at`

// Secret tours never leave the repo through a public read; only internal
// callers (staff update fallback) may fetch them by id.
const (
	listToursSQL      = `SELECT ` + tourCols + ` FROM tours WHERE NOT secret`
	findTourSQL       = `SELECT ` + tourCols + ` FROM tours WHERE id = $1 AND NOT secret`
	findAnyTourSQL    = `SELECT ` + tourCols + ` FROM tours WHERE id = $1`
	findTourBySlugSQL = `SELECT ` + tourCols + ` FROM tours WHERE slug = $1 AND NOT secret`
)

var tourListFields = map[string]bool{
	"name": true, "duration": true, "maxGroupSize": true, "difficulty": true,
	"ratingsAverage": true, "ratingsQuantity": true, "price": true,
	"createdAt": true, "id": true,
}

var tourListCols = map[string]string{
	"name": "name", "duration": "duration_days", "maxGroupSize": "max_group_size",
	"difficulty": "difficulty", "ratingsAverage": "ratings_average",
	"ratingsQuantity": "ratings_quantity", "price": "price",
	"createdAt": "created_at", "id": "id",
}

var tourPatchCols = map[string]string{
	"name": "name", "slug": "slug", "duration": "duration_days",
	"maxGroupSize": "max_group_size", "difficulty": "difficulty",
	"ratingsAverage": "ratings_average", "price": "price",
	"priceDiscount": "price_discount", "summary": "summary",
	"description": "description", "imageCover": "image_cover",
	"images": "images", "startLat": "start_lat", "startLng": "start_lng",
	"startAddress": "start_address", "secret": "secret",
}

// TourListFields exposes the allow-list to the handler layer.
func TourListFields() map[string]bool { return tourListFields }

type ToursRepo interface {
	List(ctx context.Context, opts query.ListOptions) ([]domain.Tour, error)
	Find(ctx context.Context, id int64) (*domain.Tour, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Tour, error)
	Insert(ctx context.Context, t *domain.Tour) (*domain.Tour, error)
	Update(ctx context.Context, id int64, patch map[string]any) (*domain.Tour, error)
	Delete(ctx context.Context, id int64) error
	SetRatings(ctx context.Context, tourID int64, avg float64, qty int) error

	Stats(ctx context.Context) ([]domain.TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]domain.MonthlyPlanEntry, error)
	Within(ctx context.Context, lat, lng, radiusKm float64) ([]domain.Tour, error)
	Distances(ctx context.Context, lat, lng, multiplier float64) ([]domain.TourDistance, error)
}

type ToursRepoImpl struct{ pool *pgxpool.Pool }

func NewToursRepo(pool *pgxpool.Pool) *ToursRepoImpl { return &ToursRepoImpl{pool: pool} }

func scanTour(row pgx.Row) (*domain.Tour, error) {
	var t domain.Tour
	if err := row.Scan(
		&t.ID, &t.Name, &t.Slug, &t.DurationDays, &t.MaxGroupSize, &t.Difficulty,
		&t.RatingsAverage, &t.RatingsQuantity, &t.Price, &t.PriceDiscount,
		&t.Summary, &t.Description, &t.ImageCover, &t.Images, &t.StartDates,
		&t.StartLat, &t.StartLng, &t.StartAddress, &t.Secret, &t.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *ToursRepoImpl) collectTours(ctx context.Context, q string, args ...any) ([]domain.Tour, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tours := []domain.Tour{}
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		tours = append(tours, *t)
	}
	return tours, rows.Err()
}

func (r *ToursRepoImpl) List(ctx context.Context, opts query.ListOptions) ([]domain.Tour, error) {
	q, args := appendListClauses(listToursSQL, opts, tourListCols, nil, "created_at DESC")
	return r.collectTours(ctx, q, args...)
}

func (r *ToursRepoImpl) Find(ctx context.Context, id int64) (*domain.Tour, error) {
	return r.findOne(ctx, findTourSQL, id)
}

func (r *ToursRepoImpl) FindBySlug(ctx context.Context, slug string) (*domain.Tour, error) {
	return r.findOne(ctx, findTourBySlugSQL, slug)
}

func (r *ToursRepoImpl) findOne(ctx context.Context, q string, arg any) (*domain.Tour, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	t, err := scanTour(r.pool.QueryRow(ctx, q, arg))
	if err != nil {
		return nil, err
	}
	if err := r.attachGuides(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *ToursRepoImpl) attachGuides(ctx context.Context, t *domain.Tour) error {
	const q = `
SELECT u.id, u.name, u.email, u.photo, u.role
FROM tour_guides tg
JOIN users u ON u.id = tg.user_id AND u.active
WHERE tg.tour_id = $1
ORDER BY u.id`
	rows, err := r.pool.Query(ctx, q, t.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Photo, &u.Role); err != nil {
			return err
		}
		t.Guides = append(t.Guides, u)
	}
	return rows.Err()
}

func (r *ToursRepoImpl) Insert(ctx context.Context, t *domain.Tour) (*domain.Tour, error) {
	const q = `
INSERT INTO tours (name, slug, duration_days, max_group_size, difficulty,
	ratings_average, price, price_discount, summary, description,
	image_cover, images, start_dates, start_lat, start_lng, start_address, secret)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING ` + tourCols

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	created, err := scanTour(r.pool.QueryRow(ctx, q,
		t.Name, t.Slug, t.DurationDays, t.MaxGroupSize, t.Difficulty,
		t.RatingsAverage, t.Price, t.PriceDiscount, t.Summary, t.Description,
		t.ImageCover, t.Images, t.StartDates, t.StartLat, t.StartLng,
		t.StartAddress, t.Secret,
	))
	if err != nil {
		return nil, err
	}
	if err := r.setGuides(ctx, created.ID, t.GuideIDs); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *ToursRepoImpl) setGuides(ctx context.Context, tourID int64, guideIDs []int64) error {
	if guideIDs == nil {
		return nil
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM tour_guides WHERE tour_id = $1`, tourID); err != nil {
		return err
	}
	for _, gid := range guideIDs {
		if _, err := r.pool.Exec(ctx,
			`INSERT INTO tour_guides (tour_id, user_id) VALUES ($1, $2)`, tourID, gid); err != nil {
			return err
		}
	}
	return nil
}

func (r *ToursRepoImpl) Update(ctx context.Context, id int64, patch map[string]any) (*domain.Tour, error) {
	// A renamed tour gets a fresh slug in the same statement.
	if name, ok := patch["name"].(string); ok {
		patch["slug"] = domain.Slugify(name)
	}

	q, args, ok := buildUpdate("tours", patch, tourPatchCols, id, tourCols)
	if !ok {
		// Staff may patch secret tours, so the fallback read skips the
		// public visibility filter.
		return r.findOne(ctx, findAnyTourSQL, id)
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanTour(r.pool.QueryRow(ctx, q, args...))
}

func (r *ToursRepoImpl) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM tours WHERE id = $1`
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

// SetRatings writes the recomputed review aggregate onto the tour row.
func (r *ToursRepoImpl) SetRatings(ctx context.Context, tourID int64, avg float64, qty int) error {
	const q = `UPDATE tours SET ratings_average = $2, ratings_quantity = $3 WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, tourID, avg, qty)
	return err
}

// Stats groups tours by difficulty for the ops dashboard.
func (r *ToursRepoImpl) Stats(ctx context.Context) ([]domain.TourStats, error) {
	const q = `
SELECT difficulty,
	count(*)                         AS num_tours,
	coalesce(sum(ratings_quantity), 0) AS num_ratings,
	round(avg(ratings_average)::numeric, 2)::float8 AS avg_rating,
	round(avg(price)::numeric, 2)::float8           AS avg_price,
	min(price), max(price)
FROM tours
WHERE NOT secret AND ratings_average >= 4.5
GROUP BY difficulty
ORDER BY avg_price`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []domain.TourStats{}
	for rows.Next() {
		var s domain.TourStats
		if err := rows.Scan(&s.Difficulty, &s.NumTours, &s.NumRatings,
			&s.AvgRating, &s.AvgPrice, &s.MinPrice, &s.MaxPrice); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// MonthlyPlan counts tour starts per month of a year, busiest month first.
func (r *ToursRepoImpl) MonthlyPlan(ctx context.Context, year int) ([]domain.MonthlyPlanEntry, error) {
	const q = `
SELECT extract(month FROM d)::int AS month,
	count(*)                      AS num_tour_starts,
	array_agg(name ORDER BY name) AS tours
FROM tours, unnest(start_dates) AS d
WHERE NOT secret AND extract(year FROM d) = $1
GROUP BY month
ORDER BY num_tour_starts DESC, month
LIMIT 12`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plan := []domain.MonthlyPlanEntry{}
	for rows.Next() {
		var e domain.MonthlyPlanEntry
		if err := rows.Scan(&e.Month, &e.NumTourStarts, &e.Tours); err != nil {
			return nil, err
		}
		plan = append(plan, e)
	}
	return plan, rows.Err()
}

// haversineKm is the great-circle distance between a tour's start point and a
// query point, in kilometers. 6371 is the Earth radius in km.
const haversineKm = `
2 * 6371 * asin(sqrt(
	power(sin(radians(start_lat - $1) / 2), 2) +
	cos(radians($1)) * cos(radians(start_lat)) *
	power(sin(radians(start_lng - $2) / 2), 2)
))`

// Within returns tours whose start point lies inside a radius (km) of a point.
func (r *ToursRepoImpl) Within(ctx context.Context, lat, lng, radiusKm float64) ([]domain.Tour, error) {
	const q = `
SELECT ` + tourCols + `
FROM tours
WHERE NOT secret AND ` + haversineKm + ` <= $3
ORDER BY id`
	return r.collectTours(ctx, q, lat, lng, radiusKm)
}

// Distances lists every public tour with its distance from a point. multiplier
// converts km to the caller's unit (0.621371 for miles, 1 for km).
func (r *ToursRepoImpl) Distances(ctx context.Context, lat, lng, multiplier float64) ([]domain.TourDistance, error) {
	const q = `
SELECT id, name, ` + haversineKm + ` * $3 AS distance
FROM tours
WHERE NOT secret
ORDER BY distance`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, lat, lng, multiplier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.TourDistance{}
	for rows.Next() {
		var d domain.TourDistance
		if err := rows.Scan(&d.ID, &d.Name, &d.Distance); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
