// Package admission implements the single-booking administrator override
// path: duplicate detection, capacity bypass with audit, the occupancy
// counter protocol and best-effort compensation on partial failure.
package admission

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Domenick1991/exambooking/internal/domain"
	"github.com/Domenick1991/exambooking/internal/kafka"
	"github.com/Domenick1991/exambooking/internal/repository"
	"github.com/google/uuid"
)

type AdmissionUseCase interface {
	CreateAdminBooking(ctx context.Context, input CreateAdminBookingInput) (*Result, error)
}

// Counter is the occupancy cache contract (see internal/cache).
type Counter interface {
	GetOrSeedOccupancy(ctx context.Context, sessionID int64, durable int) (int, error)
	IncrementOccupancy(ctx context.Context, sessionID int64, durableAfter int) (int, error)
}

// Syncer enqueues downstream propagation; it must never block the caller.
type Syncer interface {
	Dispatch(event kafka.OccupancyEvent)
}

type Service struct {
	trainees repository.TraineeRepository
	sessions repository.SessionRepository
	bookings repository.BookingRepository
	audit    repository.AuditRepository
	counter  Counter
	syncer   Syncer
}

type CreateAdminBookingInput struct {
	TraineeRef  string
	Email       string
	SessionID   int64
	Venue       string
	WritingHand string
	Actor       string
}

type Result struct {
	BookingKey       string
	RecordID         int64
	AppliedOverrides []string
}

func NewService(
	trainees repository.TraineeRepository,
	sessions repository.SessionRepository,
	bookings repository.BookingRepository,
	audit repository.AuditRepository,
	counter Counter,
	syncer Syncer,
) *Service {
	return &Service{
		trainees: trainees,
		sessions: sessions,
		bookings: bookings,
		audit:    audit,
		counter:  counter,
		syncer:   syncer,
	}
}

func (s *Service) CreateAdminBooking(ctx context.Context, input CreateAdminBookingInput) (*Result, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	trainee, err := s.trainees.GetByRef(ctx, input.TraineeRef)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, domain.Errorf(domain.CodeContactNotFound, "trainee %s not found", input.TraineeRef)
		}
		return nil, err
	}
	if !strings.EqualFold(trainee.Email, input.Email) {
		return nil, domain.Errorf(domain.CodeContactNotFound, "email does not match trainee %s", input.TraineeRef)
	}

	session, err := s.sessions.GetByID(ctx, input.SessionID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, domain.Errorf(domain.CodeExamNotFound, "session %d not found", input.SessionID)
		}
		return nil, err
	}
	if session.Status != domain.SessionStatusActive {
		return nil, domain.Errorf(domain.CodeExamNotActive, "session %d is %s", session.ID, session.Status)
	}

	if err := validateCategoryFields(session.Category, input); err != nil {
		return nil, err
	}

	overrides := []string{"credit charge bypassed"}

	// A full session does not block this path. The administrator is
	// explicitly allowed past the capacity limit, with an audit trail.
	occupancy, err := s.counter.GetOrSeedOccupancy(ctx, session.ID, session.Occupancy)
	if err != nil {
		log.Printf("occupancy counter unavailable for session %d, using durable count: %v", session.ID, err)
		occupancy = session.Occupancy
	}
	capacityBypassed := occupancy >= session.Capacity
	if capacityBypassed {
		log.Printf("capacity override: session %d at %d/%d, admitting %s anyway",
			session.ID, occupancy, session.Capacity, trainee.Ref)
		overrides = append(overrides, "capacity limit bypassed")
	}

	key := domain.BookingKey(session.Category, trainee.Ref, session.Date)
	if _, err := s.bookings.FindActiveByKey(ctx, key); err == nil {
		return nil, domain.Errorf(domain.CodeDuplicateBooking, "active booking exists for %s", key)
	} else if err != repository.ErrNotFound {
		return nil, err
	}

	booking := &domain.Booking{
		Key:            key,
		TraineeID:      trainee.ID,
		SessionID:      session.ID,
		CreditCategory: domain.CreditAdminOverride,
		Venue:          input.Venue,
		WritingHand:    input.WritingHand,
		Token:          uuid.NewString(),
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	// From here on the booking row exists. A failure of a mandatory step
	// deletes it so a retried request is not blocked by half-committed work.
	durableAfter, err := s.sessions.AddOccupancy(ctx, session.ID, 1)
	if err != nil {
		s.compensate(ctx, booking)
		return nil, fmt.Errorf("apply occupancy delta: %w", err)
	}

	cached, err := s.counter.IncrementOccupancy(ctx, session.ID, durableAfter)
	if err != nil {
		// Durable state is already correct; the counter heals on expiry.
		log.Printf("counter increment failed for session %d: %v", session.ID, err)
		cached = durableAfter
	}

	s.syncer.Dispatch(kafka.OccupancyEvent{
		SessionID:  session.ID,
		Occupancy:  durableAfter,
		Capacity:   session.Capacity,
		RecordedAt: time.Now().UTC(),
	})

	note := &repository.AuditNote{
		BookingID: booking.ID,
		TraineeID: trainee.ID,
		SessionID: session.ID,
		Actor:     input.Actor,
		Note: fmt.Sprintf("admin override booking: %s; occupancy %d/%d",
			strings.Join(overrides, ", "), cached, session.Capacity),
	}
	if err := s.audit.Create(ctx, note); err != nil {
		log.Printf("audit note for booking %s not recorded: %v", key, err)
	}

	return &Result{
		BookingKey:       key,
		RecordID:         booking.ID,
		AppliedOverrides: overrides,
	}, nil
}

func (s *Service) compensate(ctx context.Context, booking *domain.Booking) {
	if err := s.bookings.Delete(ctx, booking.ID); err != nil {
		log.Printf("compensation failed, booking %d (%s) left behind: %v", booking.ID, booking.Key, err)
	}
}

func validateInput(input CreateAdminBookingInput) error {
	if strings.TrimSpace(input.TraineeRef) == "" {
		return domain.Errorf(domain.CodeValidation, "trainee_ref is required")
	}
	if strings.TrimSpace(input.Email) == "" {
		return domain.Errorf(domain.CodeValidation, "email is required")
	}
	if input.SessionID <= 0 {
		return domain.Errorf(domain.CodeValidation, "session_id must be positive")
	}
	if strings.TrimSpace(input.Actor) == "" {
		return domain.Errorf(domain.CodeValidation, "actor is required")
	}
	return nil
}

// validateCategoryFields enforces exactly one category-specific field:
// practical sessions need a venue, theory sessions need a writing hand.
func validateCategoryFields(category domain.ExamCategory, input CreateAdminBookingInput) error {
	switch category {
	case domain.ExamCategoryPractical:
		if strings.TrimSpace(input.Venue) == "" {
			return domain.Errorf(domain.CodeValidation, "venue is required for practical sessions")
		}
		if input.WritingHand != "" {
			return domain.Errorf(domain.CodeValidation, "writing_hand is not applicable to practical sessions")
		}
	case domain.ExamCategoryTheory:
		if input.WritingHand != "left" && input.WritingHand != "right" {
			return domain.Errorf(domain.CodeValidation, "writing_hand must be left or right for theory sessions")
		}
		if input.Venue != "" {
			return domain.Errorf(domain.CodeValidation, "venue is not applicable to theory sessions")
		}
	default:
		return domain.Errorf(domain.CodeValidation, "unknown session category %s", category)
	}
	return nil
}

var _ AdmissionUseCase = (*Service)(nil)
