package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditNote is a human-readable record of an administrative override,
// linked to the booking, trainee and session it concerns.
type AuditNote struct {
	ID        int64
	BookingID int64
	TraineeID int64
	SessionID int64
	Actor     string
	Note      string
	CreatedAt time.Time
}

type AuditRepository interface {
	Create(ctx context.Context, note *AuditNote) error
}

type PGAuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) AuditRepository {
	return &PGAuditRepository{db: db}
}

func (r *PGAuditRepository) Create(ctx context.Context, note *AuditNote) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO audit_notes (booking_id, trainee_id, session_id, actor, note)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		note.BookingID, note.TraineeID, note.SessionID, note.Actor, note.Note).
		Scan(&note.ID, &note.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit note: %w", err)
	}
	return nil
}

var _ AuditRepository = (*PGAuditRepository)(nil)
