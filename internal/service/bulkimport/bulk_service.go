// Package bulkimport validates and commits spreadsheet batches of bookings.
// Both phases of validation are shared by preview and commit so the two
// classify every row identically; only commit writes anything.
package bulkimport

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/exambooking/internal/domain"
	"github.com/Domenick1991/exambooking/internal/kafka"
	"github.com/Domenick1991/exambooking/internal/repository"
	"github.com/google/uuid"
)

type BulkUseCase interface {
	Preview(ctx context.Context, rows []Row) (*Report, error)
	Commit(ctx context.Context, rows []Row) (*CommitResult, error)
}

// Invalidator drops a session's cached occupancy counter after a bulk
// commit moved the durable count underneath it.
type Invalidator interface {
	InvalidateOccupancy(ctx context.Context, sessionID int64) error
}

type Syncer interface {
	Dispatch(event kafka.OccupancyEvent)
}

// Row is one line of the import file. SessionID stays textual so a
// malformed id is a per-row format error, not a decode failure.
type Row struct {
	Line       int
	TraineeRef string
	SessionID  string
	CreditText string
}

// RowOutcome is the per-row result, preserving file order via Line.
type RowOutcome struct {
	Line          int
	TraineeRef    string
	SessionID     int64
	Category      domain.CreditCategory
	BookingKey    string
	BalanceBefore int
	BalanceAfter  int
	Code          domain.ErrorCode
	Message       string

	// carried from validation into the commit step
	traineeID int64
	capacity  int
}

type Report struct {
	Valid   []RowOutcome
	Invalid []RowOutcome
}

type CommitResult struct {
	CreatedCount int
	Skipped      []RowOutcome
}

type Service struct {
	trainees repository.TraineeRepository
	sessions repository.SessionRepository
	bookings repository.BookingRepository
	ledger   repository.LedgerRepository
	counters Invalidator
	syncer   Syncer
	maxRows  int
}

func NewService(
	trainees repository.TraineeRepository,
	sessions repository.SessionRepository,
	bookings repository.BookingRepository,
	ledger repository.LedgerRepository,
	counters Invalidator,
	syncer Syncer,
	maxRows int,
) *Service {
	return &Service{
		trainees: trainees,
		sessions: sessions,
		bookings: bookings,
		ledger:   ledger,
		counters: counters,
		syncer:   syncer,
		maxRows:  maxRows,
	}
}

// Preview runs both validation phases and reports every row's outcome,
// including simulated before/after balances, without side effects.
func (s *Service) Preview(ctx context.Context, rows []Row) (*Report, error) {
	return s.validate(ctx, rows)
}

// Commit validates exactly like Preview, then persists the rows that
// passed: booking records in one transaction, one ledger decrement per
// (trainee, category) by the committed count, one occupancy add-delta per
// session. Invalid rows are skipped, never compensated.
func (s *Service) Commit(ctx context.Context, rows []Row) (*CommitResult, error) {
	report, err := s.validate(ctx, rows)
	if err != nil {
		return nil, err
	}

	staged := make([]*domain.Booking, 0, len(report.Valid))
	for _, outcome := range report.Valid {
		staged = append(staged, &domain.Booking{
			Key:            outcome.BookingKey,
			TraineeID:      outcome.traineeID,
			SessionID:      outcome.SessionID,
			CreditCategory: outcome.Category,
			Token:          uuid.NewString(),
		})
	}

	if err := s.bookings.CreateBatch(ctx, staged); err != nil {
		return nil, fmt.Errorf("commit bookings: %w", err)
	}

	// Aggregate committed work per ledger entry and per session. These run
	// against narrow atomic primitives; a failure here is drift, logged and
	// left to the reconciliation job rather than unwound.
	decrements := make(map[repository.BalanceKey]int)
	sessionDeltas := make(map[int64]int)
	capacities := make(map[int64]int)
	for _, outcome := range report.Valid {
		decrements[repository.BalanceKey{TraineeID: outcome.traineeID, Category: outcome.Category}]++
		sessionDeltas[outcome.SessionID]++
		capacities[outcome.SessionID] = outcome.capacity
	}

	for key, count := range decrements {
		if _, err := s.ledger.Decrement(ctx, key.TraineeID, key.Category, count); err != nil {
			log.Printf("bulk commit: ledger decrement %d x %s for trainee %d failed: %v",
				count, key.Category, key.TraineeID, err)
		}
	}

	for sessionID, delta := range sessionDeltas {
		occupancy, err := s.sessions.AddOccupancy(ctx, sessionID, delta)
		if err != nil {
			log.Printf("bulk commit: occupancy delta %+d for session %d failed: %v", delta, sessionID, err)
			continue
		}
		if err := s.counters.InvalidateOccupancy(ctx, sessionID); err != nil {
			log.Printf("bulk commit: counter invalidation for session %d failed: %v", sessionID, err)
		}
		s.syncer.Dispatch(kafka.OccupancyEvent{
			SessionID:  sessionID,
			Occupancy:  occupancy,
			Capacity:   capacities[sessionID],
			RecordedAt: time.Now().UTC(),
		})
	}

	return &CommitResult{CreatedCount: len(staged), Skipped: report.Invalid}, nil
}

func (s *Service) validate(ctx context.Context, rows []Row) (*Report, error) {
	if s.maxRows > 0 && len(rows) > s.maxRows {
		return nil, domain.Errorf(domain.CodePayloadTooLarge,
			"batch of %d rows exceeds the %d row limit", len(rows), s.maxRows)
	}

	report := &Report{Valid: []RowOutcome{}, Invalid: []RowOutcome{}}

	// Phase 1: per-row format checks. Malformed rows are excluded from
	// phase 2 but the batch continues.
	formatValid := make([]RowOutcome, 0, len(rows))
	for _, row := range rows {
		outcome := RowOutcome{Line: row.Line, TraineeRef: strings.TrimSpace(row.TraineeRef)}
		if outcome.TraineeRef == "" {
			report.Invalid = append(report.Invalid, failed(outcome, domain.CodeValidation, "trainee_ref is empty"))
			continue
		}
		sessionID, err := strconv.ParseInt(strings.TrimSpace(row.SessionID), 10, 64)
		if err != nil || sessionID <= 0 {
			report.Invalid = append(report.Invalid, failed(outcome, domain.CodeValidation,
				fmt.Sprintf("session_id %q is not a valid identifier", row.SessionID)))
			continue
		}
		outcome.SessionID = sessionID
		category, ok := domain.ResolveCreditCategory(row.CreditText)
		if !ok {
			report.Invalid = append(report.Invalid, failed(outcome, domain.CodeInvalidTokenType,
				fmt.Sprintf("unrecognized credit type %q", row.CreditText)))
			continue
		}
		outcome.Category = category
		formatValid = append(formatValid, outcome)
	}

	if len(formatValid) == 0 {
		return report, nil
	}

	// Phase 2: batch resolution and ledger simulation.
	refs := make([]string, 0, len(formatValid))
	ids := make([]int64, 0, len(formatValid))
	for _, o := range formatValid {
		refs = append(refs, o.TraineeRef)
		ids = append(ids, o.SessionID)
	}

	trainees, err := s.trainees.ListByRefs(ctx, dedupeStrings(refs))
	if err != nil {
		return nil, fmt.Errorf("resolve trainees: %w", err)
	}
	sessions, err := s.sessions.ListByIDs(ctx, dedupeInt64s(ids))
	if err != nil {
		return nil, fmt.Errorf("resolve sessions: %w", err)
	}

	traineeIDs := make([]int64, 0, len(trainees))
	for _, t := range trainees {
		traineeIDs = append(traineeIDs, t.ID)
	}
	balances, err := s.ledger.ListBalances(ctx, traineeIDs)
	if err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}

	keys := make([]string, 0, len(formatValid))
	for i := range formatValid {
		o := &formatValid[i]
		trainee, okT := trainees[o.TraineeRef]
		session, okS := sessions[o.SessionID]
		if okT && okS {
			o.BookingKey = domain.BookingKey(session.Category, trainee.Ref, session.Date)
			keys = append(keys, o.BookingKey)
		}
	}
	existing, err := s.bookings.FindActiveByKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("check duplicates: %w", err)
	}

	// Running balances simulate sequential depletion across the batch, and
	// running occupancy does the same for session capacity; nothing is
	// committed yet.
	simBalances := make(map[repository.BalanceKey]int)
	simOccupancy := make(map[int64]int)
	stagedKeys := make(map[string]int) // booking key -> line that staged it

	for _, o := range formatValid {
		trainee, ok := trainees[o.TraineeRef]
		if !ok {
			report.Invalid = append(report.Invalid, failed(o, domain.CodeContactNotFound,
				fmt.Sprintf("trainee %s not found", o.TraineeRef)))
			continue
		}
		session, ok := sessions[o.SessionID]
		if !ok {
			report.Invalid = append(report.Invalid, failed(o, domain.CodeExamNotFound,
				fmt.Sprintf("session %d not found", o.SessionID)))
			continue
		}
		if session.Status != domain.SessionStatusActive {
			report.Invalid = append(report.Invalid, failed(o, domain.CodeExamNotActive,
				fmt.Sprintf("session %d is %s", session.ID, session.Status)))
			continue
		}

		if _, dup := existing[o.BookingKey]; dup {
			report.Invalid = append(report.Invalid, failed(o, domain.CodeDuplicateBooking,
				fmt.Sprintf("active booking exists for %s", o.BookingKey)))
			continue
		}
		if line, dup := stagedKeys[o.BookingKey]; dup {
			report.Invalid = append(report.Invalid, failed(o, domain.CodeDuplicateBooking,
				fmt.Sprintf("duplicate of row %d in this file", line)))
			continue
		}

		if _, seen := simOccupancy[session.ID]; !seen {
			simOccupancy[session.ID] = session.Occupancy
		}
		if simOccupancy[session.ID] >= session.Capacity {
			report.Invalid = append(report.Invalid, failed(o, domain.CodeExamFull,
				fmt.Sprintf("session %d is full (%d/%d)", session.ID, simOccupancy[session.ID], session.Capacity)))
			continue
		}

		balanceKey := repository.BalanceKey{TraineeID: trainee.ID, Category: o.Category}
		if _, seen := simBalances[balanceKey]; !seen {
			simBalances[balanceKey] = balances[balanceKey]
		}
		before := simBalances[balanceKey]
		if before < 1 {
			o.BalanceBefore = before
			o.BalanceAfter = before
			report.Invalid = append(report.Invalid, failed(o, domain.CodeInsufficientCredits,
				fmt.Sprintf("trainee %s has no %s credits left", trainee.Ref, o.Category)))
			continue
		}

		simBalances[balanceKey] = before - 1
		simOccupancy[session.ID]++
		stagedKeys[o.BookingKey] = o.Line

		o.BalanceBefore = before
		o.BalanceAfter = before - 1
		o.traineeID = trainee.ID
		o.capacity = session.Capacity
		report.Valid = append(report.Valid, o)
	}

	return report, nil
}

func failed(o RowOutcome, code domain.ErrorCode, message string) RowOutcome {
	o.Code = code
	o.Message = message
	return o
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func dedupeInt64s(in []int64) []int64 {
	seen := make(map[int64]struct{}, len(in))
	out := make([]int64, 0, len(in))
	for _, n := range in {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

var _ BulkUseCase = (*Service)(nil)
