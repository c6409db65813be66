package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/exambooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by point lookups when no row matches.
var ErrNotFound = errors.New("not found")

type TraineeRepository interface {
	GetByRef(ctx context.Context, ref string) (*domain.Trainee, error)
	ListByRefs(ctx context.Context, refs []string) (map[string]domain.Trainee, error)
}

type PGTraineeRepository struct {
	db *pgxpool.Pool
}

func NewTraineeRepository(db *pgxpool.Pool) TraineeRepository {
	return &PGTraineeRepository{db: db}
}

func (r *PGTraineeRepository) GetByRef(ctx context.Context, ref string) (*domain.Trainee, error) {
	row := r.db.QueryRow(ctx, `SELECT id, ref, full_name, email, created_at, updated_at FROM trainees WHERE ref=$1`, ref)
	var t domain.Trainee
	if err := row.Scan(&t.ID, &t.Ref, &t.FullName, &t.Email, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get trainee: %w", err)
	}
	return &t, nil
}

func (r *PGTraineeRepository) ListByRefs(ctx context.Context, refs []string) (map[string]domain.Trainee, error) {
	if len(refs) == 0 {
		return map[string]domain.Trainee{}, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id, ref, full_name, email, created_at, updated_at FROM trainees WHERE ref = ANY($1)`, refs)
	if err != nil {
		return nil, fmt.Errorf("list trainees: %w", err)
	}
	defer rows.Close()

	trainees := make(map[string]domain.Trainee, len(refs))
	for rows.Next() {
		var t domain.Trainee
		if err := rows.Scan(&t.ID, &t.Ref, &t.FullName, &t.Email, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan trainee: %w", err)
		}
		trainees[t.Ref] = t
	}
	return trainees, rows.Err()
}

var _ TraineeRepository = (*PGTraineeRepository)(nil)
