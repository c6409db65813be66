package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/exambooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LedgerRepository interface {
	GetBalance(ctx context.Context, traineeID int64, category domain.CreditCategory) (int, error)
	// ListBalances returns every balance for the given trainees keyed by
	// (trainee id, category). Missing rows mean a balance of zero.
	ListBalances(ctx context.Context, traineeIDs []int64) (map[BalanceKey]int, error)
	// Decrement applies a conditional check-then-decrement. It fails with
	// INSUFFICIENT_CREDITS without touching the row when the balance would
	// go negative.
	Decrement(ctx context.Context, traineeID int64, category domain.CreditCategory, amount int) (int, error)
}

type BalanceKey struct {
	TraineeID int64
	Category  domain.CreditCategory
}

type PGLedgerRepository struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) LedgerRepository {
	return &PGLedgerRepository{db: db}
}

func (r *PGLedgerRepository) GetBalance(ctx context.Context, traineeID int64, category domain.CreditCategory) (int, error) {
	var balance int
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(balance), 0) FROM credit_ledger WHERE trainee_id=$1 AND category=$2`,
		traineeID, category).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

func (r *PGLedgerRepository) ListBalances(ctx context.Context, traineeIDs []int64) (map[BalanceKey]int, error) {
	if len(traineeIDs) == 0 {
		return map[BalanceKey]int{}, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT trainee_id, category, balance FROM credit_ledger WHERE trainee_id = ANY($1)`, traineeIDs)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	balances := make(map[BalanceKey]int)
	for rows.Next() {
		var key BalanceKey
		var balance int
		if err := rows.Scan(&key.TraineeID, &key.Category, &balance); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		balances[key] = balance
	}
	return balances, rows.Err()
}

func (r *PGLedgerRepository) Decrement(ctx context.Context, traineeID int64, category domain.CreditCategory, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("decrement amount must be positive, got %d", amount)
	}
	var balance int
	err := r.db.QueryRow(ctx,
		`UPDATE credit_ledger SET balance = balance - $3, updated_at = now()
		 WHERE trainee_id=$1 AND category=$2 AND balance >= $3
		 RETURNING balance`,
		traineeID, category, amount).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		// No row matched: either the ledger entry is missing or the guard
		// refused to go negative. Both are an insufficient balance.
		return 0, domain.Errorf(domain.CodeInsufficientCredits,
			"trainee %d has fewer than %d %s credits", traineeID, amount, category)
	}
	if err != nil {
		return 0, fmt.Errorf("decrement balance: %w", err)
	}
	return balance, nil
}

var _ LedgerRepository = (*PGLedgerRepository)(nil)
