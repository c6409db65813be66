package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/exambooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository interface {
	List(ctx context.Context) ([]domain.Session, error)
	GetByID(ctx context.Context, id int64) (*domain.Session, error)
	ListByIDs(ctx context.Context, ids []int64) (map[int64]domain.Session, error)
	// AddOccupancy applies an atomic delta to the durable occupancy count and
	// returns the new value. Callers must never read-modify-write occupancy.
	AddOccupancy(ctx context.Context, id int64, delta int) (int, error)
	ListOccupancyDrift(ctx context.Context) ([]OccupancyDrift, error)
}

// OccupancyDrift reports a session whose durable occupancy disagrees with
// the count of its active bookings.
type OccupancyDrift struct {
	SessionID      int64
	Occupancy      int
	ActiveBookings int
}

type PGSessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) SessionRepository {
	return &PGSessionRepository{db: db}
}

const sessionColumns = `id, category, session_date, venue, capacity, occupancy, status, created_at, updated_at`

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	if err := row.Scan(&s.ID, &s.Category, &s.Date, &s.Venue, &s.Capacity, &s.Occupancy, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PGSessionRepository) List(ctx context.Context) ([]domain.Session, error) {
	rows, err := r.db.Query(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY session_date`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func (r *PGSessionRepository) GetByID(ctx context.Context, id int64) (*domain.Session, error) {
	s, err := scanSession(r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (r *PGSessionRepository) ListByIDs(ctx context.Context, ids []int64) (map[int64]domain.Session, error) {
	if len(ids) == 0 {
		return map[int64]domain.Session{}, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list sessions by ids: %w", err)
	}
	defer rows.Close()

	sessions := make(map[int64]domain.Session, len(ids))
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions[s.ID] = *s
	}
	return sessions, rows.Err()
}

func (r *PGSessionRepository) AddOccupancy(ctx context.Context, id int64, delta int) (int, error) {
	var occupancy int
	err := r.db.QueryRow(ctx, `UPDATE sessions SET occupancy = occupancy + $2, updated_at = now() WHERE id=$1 RETURNING occupancy`, id, delta).Scan(&occupancy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("add occupancy: %w", err)
	}
	return occupancy, nil
}

func (r *PGSessionRepository) ListOccupancyDrift(ctx context.Context) ([]OccupancyDrift, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.occupancy, COUNT(b.id) FILTER (WHERE b.status = 'ACTIVE')
		FROM sessions s
		LEFT JOIN bookings b ON b.session_id = s.id
		GROUP BY s.id, s.occupancy
		HAVING s.occupancy <> COUNT(b.id) FILTER (WHERE b.status = 'ACTIVE')`)
	if err != nil {
		return nil, fmt.Errorf("occupancy drift: %w", err)
	}
	defer rows.Close()

	var drift []OccupancyDrift
	for rows.Next() {
		var d OccupancyDrift
		if err := rows.Scan(&d.SessionID, &d.Occupancy, &d.ActiveBookings); err != nil {
			return nil, fmt.Errorf("scan drift: %w", err)
		}
		drift = append(drift, d)
	}
	return drift, rows.Err()
}

var _ SessionRepository = (*PGSessionRepository)(nil)
