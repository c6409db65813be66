package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/exambooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	CreateBatch(ctx context.Context, bookings []*domain.Booking) error
	Delete(ctx context.Context, id int64) error
	FindActiveByKey(ctx context.Context, key string) (*domain.Booking, error)
	FindActiveByKeys(ctx context.Context, keys []string) (map[string]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const insertBookingSQL = `INSERT INTO bookings (booking_key, trainee_id, session_id, status, credit_category, venue, writing_hand, token)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id, created_at, updated_at`

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	booking.Status = domain.BookingStatusActive
	err := r.db.QueryRow(ctx, insertBookingSQL,
		booking.Key, booking.TraineeID, booking.SessionID, booking.Status,
		booking.CreditCategory, booking.Venue, booking.WritingHand, booking.Token).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// CreateBatch inserts all bookings in one transaction so a bulk commit is
// all-or-nothing at the record level.
func (r *PGBookingRepository) CreateBatch(ctx context.Context, bookings []*domain.Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, b := range bookings {
		b.Status = domain.BookingStatusActive
		if err := tx.QueryRow(ctx, insertBookingSQL,
			b.Key, b.TraineeID, b.SessionID, b.Status,
			b.CreditCategory, b.Venue, b.WritingHand, b.Token).
			Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return fmt.Errorf("insert booking %s: %w", b.Key, err)
		}
	}
	return tx.Commit(ctx)
}

func (r *PGBookingRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const bookingColumns = `id, booking_key, trainee_id, session_id, status, credit_category, venue, writing_hand, token, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.Key, &b.TraineeID, &b.SessionID, &b.Status, &b.CreditCategory, &b.Venue, &b.WritingHand, &b.Token, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// FindActiveByKey ignores CANCELLED and COMPLETED rows: a cancelled booking
// must not block rebooking the same trainee into the same session.
func (r *PGBookingRepository) FindActiveByKey(ctx context.Context, key string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_key=$1 AND status='ACTIVE'`, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return b, nil
}

func (r *PGBookingRepository) FindActiveByKeys(ctx context.Context, keys []string) (map[string]domain.Booking, error) {
	if len(keys) == 0 {
		return map[string]domain.Booking{}, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_key = ANY($1) AND status='ACTIVE'`, keys)
	if err != nil {
		return nil, fmt.Errorf("find bookings: %w", err)
	}
	defer rows.Close()

	bookings := make(map[string]domain.Booking, len(keys))
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings[b.Key] = *b
	}
	return bookings, rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)
