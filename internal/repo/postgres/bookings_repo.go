package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wildtrek/tours/internal/api/query"
	"github.com/wildtrek/tours/internal/domain"
)

const bookingCols = `b.id, b.tour_id, b.user_id, t.name, b.price, b.paid, b.created_at`

var bookingListFields = map[string]bool{
	"tourId": true, "userId": true, "price": true, "paid": true,
	"createdAt": true, "id": true,
}

var bookingListCols = map[string]string{
	"tourId": "b.tour_id", "userId": "b.user_id", "price": "b.price",
	"paid": "b.paid", "createdAt": "b.created_at", "id": "b.id",
}

var bookingPatchCols = map[string]string{
	"price": "price", "paid": "paid",
}

// BookingListFields exposes the allow-list to the handler layer.
func BookingListFields() map[string]bool { return bookingListFields }

type BookingsRepo interface {
	List(ctx context.Context, opts query.ListOptions) ([]domain.Booking, error)
	Find(ctx context.Context, id int64) (*domain.Booking, error)
	Insert(ctx context.Context, b *domain.Booking) (*domain.Booking, error)
	Update(ctx context.Context, id int64, patch map[string]any) (*domain.Booking, error)
	Delete(ctx context.Context, id int64) error
	ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error)
}

type BookingsRepoImpl struct{ pool *pgxpool.Pool }

func NewBookingsRepo(pool *pgxpool.Pool) *BookingsRepoImpl { return &BookingsRepoImpl{pool: pool} }

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.TourID, &b.UserID, &b.TourName, &b.Price, &b.Paid, &b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingsRepoImpl) collect(ctx context.Context, q string, args ...any) ([]domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *BookingsRepoImpl) List(ctx context.Context, opts query.ListOptions) ([]domain.Booking, error) {
	q, args := appendListClauses(
		`SELECT `+bookingCols+` FROM bookings b JOIN tours t ON t.id = b.tour_id WHERE true`,
		opts, bookingListCols, nil, "b.created_at DESC",
	)
	return r.collect(ctx, q, args...)
}

func (r *BookingsRepoImpl) Find(ctx context.Context, id int64) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings b JOIN tours t ON t.id = b.tour_id WHERE b.id = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanBooking(r.pool.QueryRow(ctx, q, id))
}

func (r *BookingsRepoImpl) Insert(ctx context.Context, b *domain.Booking) (*domain.Booking, error) {
	const q = `
INSERT INTO bookings (tour_id, user_id, price, paid)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	created := *b
	if err := r.pool.QueryRow(ctx, q, b.TourID, b.UserID, b.Price, b.Paid).
		Scan(&created.ID, &created.CreatedAt); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *BookingsRepoImpl) Update(ctx context.Context, id int64, patch map[string]any) (*domain.Booking, error) {
	q, args, ok := buildUpdate("bookings", patch, bookingPatchCols, id,
		"id, tour_id, user_id, price, paid, created_at")
	if !ok {
		return r.Find(ctx, id)
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var b domain.Booking
	if err := r.pool.QueryRow(ctx, q, args...).Scan(
		&b.ID, &b.TourID, &b.UserID, &b.Price, &b.Paid, &b.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingsRepoImpl) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM bookings WHERE id = $1`
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

// ListByUser backs the /my-tours page.
func (r *BookingsRepoImpl) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	const q = `
SELECT ` + bookingCols + `
FROM bookings b
JOIN tours t ON t.id = b.tour_id
WHERE b.user_id = $1
ORDER BY b.created_at DESC, b.id`
	return r.collect(ctx, q, userID)
}
