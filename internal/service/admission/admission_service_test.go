package admission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/exambooking/internal/domain"
	"github.com/Domenick1991/exambooking/internal/kafka"
	"github.com/Domenick1991/exambooking/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockTraineeRepository struct {
	mock.Mock
}

func (m *MockTraineeRepository) GetByRef(ctx context.Context, ref string) (*domain.Trainee, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Trainee), args.Error(1)
}

func (m *MockTraineeRepository) ListByRefs(ctx context.Context, refs []string) (map[string]domain.Trainee, error) {
	args := m.Called(ctx, refs)
	return args.Get(0).(map[string]domain.Trainee), args.Error(1)
}

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) List(ctx context.Context) ([]domain.Session, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Session), args.Error(1)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id int64) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) ListByIDs(ctx context.Context, ids []int64) (map[int64]domain.Session, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(map[int64]domain.Session), args.Error(1)
}

func (m *MockSessionRepository) AddOccupancy(ctx context.Context, id int64, delta int) (int, error) {
	args := m.Called(ctx, id, delta)
	return args.Int(0), args.Error(1)
}

func (m *MockSessionRepository) ListOccupancyDrift(ctx context.Context) ([]repository.OccupancyDrift, error) {
	args := m.Called(ctx)
	return args.Get(0).([]repository.OccupancyDrift), args.Error(1)
}

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	if args.Error(0) == nil {
		booking.ID = 501
	}
	return args.Error(0)
}

func (m *MockBookingRepository) CreateBatch(ctx context.Context, bookings []*domain.Booking) error {
	args := m.Called(ctx, bookings)
	return args.Error(0)
}

func (m *MockBookingRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBookingRepository) FindActiveByKey(ctx context.Context, key string) (*domain.Booking, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) FindActiveByKeys(ctx context.Context, keys []string) (map[string]domain.Booking, error) {
	args := m.Called(ctx, keys)
	return args.Get(0).(map[string]domain.Booking), args.Error(1)
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Create(ctx context.Context, note *repository.AuditNote) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

type MockCounter struct {
	mock.Mock
}

func (m *MockCounter) GetOrSeedOccupancy(ctx context.Context, sessionID int64, durable int) (int, error) {
	args := m.Called(ctx, sessionID, durable)
	return args.Int(0), args.Error(1)
}

func (m *MockCounter) IncrementOccupancy(ctx context.Context, sessionID int64, durableAfter int) (int, error) {
	args := m.Called(ctx, sessionID, durableAfter)
	return args.Int(0), args.Error(1)
}

type MockSyncer struct {
	mock.Mock
}

func (m *MockSyncer) Dispatch(event kafka.OccupancyEvent) {
	m.Called(event)
}

type fixture struct {
	trainees *MockTraineeRepository
	sessions *MockSessionRepository
	bookings *MockBookingRepository
	audit    *MockAuditRepository
	counter  *MockCounter
	syncer   *MockSyncer
	service  *Service
}

func newFixture() *fixture {
	f := &fixture{
		trainees: &MockTraineeRepository{},
		sessions: &MockSessionRepository{},
		bookings: &MockBookingRepository{},
		audit:    &MockAuditRepository{},
		counter:  &MockCounter{},
		syncer:   &MockSyncer{},
	}
	f.service = NewService(f.trainees, f.sessions, f.bookings, f.audit, f.counter, f.syncer)
	return f
}

var sessionDate = time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)

func activeTheorySession() *domain.Session {
	return &domain.Session{
		ID:        7,
		Category:  domain.ExamCategoryTheory,
		Date:      sessionDate,
		Capacity:  10,
		Occupancy: 4,
		Status:    domain.SessionStatusActive,
	}
}

func theoryInput() CreateAdminBookingInput {
	return CreateAdminBookingInput{
		TraineeRef:  "TR-10441",
		Email:       "sam@example.com",
		SessionID:   7,
		WritingHand: "left",
		Actor:       "ops-admin",
	}
}

func trainee() *domain.Trainee {
	return &domain.Trainee{ID: 31, Ref: "TR-10441", FullName: "Sam Ellison", Email: "sam@example.com"}
}

func TestCreateAdminBooking_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.trainees.On("GetByRef", ctx, "TR-10441").Return(trainee(), nil).Once()
	f.sessions.On("GetByID", ctx, int64(7)).Return(activeTheorySession(), nil).Once()
	f.counter.On("GetOrSeedOccupancy", ctx, int64(7), 4).Return(4, nil).Once()
	f.bookings.On("FindActiveByKey", ctx, "THEORY#TR-10441#20 May 2026").Return(nil, repository.ErrNotFound).Once()
	f.bookings.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()
	f.sessions.On("AddOccupancy", ctx, int64(7), 1).Return(5, nil).Once()
	f.counter.On("IncrementOccupancy", ctx, int64(7), 5).Return(5, nil).Once()
	f.syncer.On("Dispatch", mock.AnythingOfType("kafka.OccupancyEvent")).Once()
	f.audit.On("Create", ctx, mock.AnythingOfType("*repository.AuditNote")).Return(nil).Once()

	result, err := f.service.CreateAdminBooking(ctx, theoryInput())

	assert.NoError(t, err)
	assert.Equal(t, "THEORY#TR-10441#20 May 2026", result.BookingKey)
	assert.Equal(t, int64(501), result.RecordID)
	assert.Equal(t, []string{"credit charge bypassed"}, result.AppliedOverrides)

	f.trainees.AssertExpectations(t)
	f.sessions.AssertExpectations(t)
	f.bookings.AssertExpectations(t)
	f.counter.AssertExpectations(t)
	f.syncer.AssertExpectations(t)
	f.audit.AssertExpectations(t)
}

func TestCreateAdminBooking_ValidationErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	testCases := []struct {
		name   string
		mutate func(*CreateAdminBookingInput)
	}{
		{"missing trainee ref", func(in *CreateAdminBookingInput) { in.TraineeRef = " " }},
		{"missing email", func(in *CreateAdminBookingInput) { in.Email = "" }},
		{"bad session id", func(in *CreateAdminBookingInput) { in.SessionID = 0 }},
		{"missing actor", func(in *CreateAdminBookingInput) { in.Actor = "" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			input := theoryInput()
			tc.mutate(&input)
			result, err := f.service.CreateAdminBooking(ctx, input)
			assert.Nil(t, result)
			assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
		})
	}
	f.trainees.AssertNotCalled(t, "GetByRef")
}

func TestCreateAdminBooking_CategoryFieldErrors(t *testing.T) {
	testCases := []struct {
		name    string
		session *domain.Session
		mutate  func(*CreateAdminBookingInput)
	}{
		{"theory requires writing hand", activeTheorySession(), func(in *CreateAdminBookingInput) { in.WritingHand = "" }},
		{"theory rejects venue", activeTheorySession(), func(in *CreateAdminBookingInput) { in.Venue = "Hall B" }},
		{
			"practical requires venue",
			&domain.Session{ID: 7, Category: domain.ExamCategoryPractical, Date: sessionDate, Capacity: 10, Status: domain.SessionStatusActive},
			func(in *CreateAdminBookingInput) { in.WritingHand = "" },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()
			f.trainees.On("GetByRef", ctx, "TR-10441").Return(trainee(), nil).Once()
			f.sessions.On("GetByID", ctx, int64(7)).Return(tc.session, nil).Once()

			input := theoryInput()
			tc.mutate(&input)
			result, err := f.service.CreateAdminBooking(ctx, input)

			assert.Nil(t, result)
			assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
			f.bookings.AssertNotCalled(t, "Create")
		})
	}
}

func TestCreateAdminBooking_ContactNotFound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.trainees.On("GetByRef", ctx, "TR-10441").Return(nil, repository.ErrNotFound).Once()

	result, err := f.service.CreateAdminBooking(ctx, theoryInput())
	assert.Nil(t, result)
	assert.Equal(t, domain.CodeContactNotFound, domain.CodeOf(err))
}

func TestCreateAdminBooking_EmailMismatch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.trainees.On("GetByRef", ctx, "TR-10441").Return(trainee(), nil).Once()

	input := theoryInput()
	input.Email = "someone-else@example.com"
	result, err := f.service.CreateAdminBooking(ctx, input)

	assert.Nil(t, result)
	assert.Equal(t, domain.CodeContactNotFound, domain.CodeOf(err))
	f.sessions.AssertNotCalled(t, "GetByID")
}

func TestCreateAdminBooking_ExamNotFound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.trainees.On("GetByRef", ctx, "TR-10441").Return(trainee(), nil).Once()
	f.sessions.On("GetByID", ctx, int64(7)).Return(nil, repository.ErrNotFound).Once()

	result, err := f.service.CreateAdminBooking(ctx, theoryInput())
	assert.Nil(t, result)
	assert.Equal(t, domain.CodeExamNotFound, domain.CodeOf(err))
}

func TestCreateAdminBooking_ExamNotActive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	session := activeTheorySession()
	session.Status = domain.SessionStatusScheduled
	f.trainees.On("GetByRef", ctx, "TR-10441").Return(trainee(), nil).Once()
	f.sessions.On("GetByID", ctx, int64(7)).Return(session, nil).Once()

	result, err := f.service.CreateAdminBooking(ctx, theoryInput())
	assert.Nil(t, result)
	assert.Equal(t, domain.CodeExamNotActive, domain.CodeOf(err))
}

func TestCreateAdminBooking_DuplicateBooking(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.trainees.On("GetByRef", ctx, "TR-10441").Return(trainee(), nil).Once()
	f.sessions.On("GetByID", ctx, int64(7)).Return(activeTheorySession(), nil).Once()
	f.counter.On("GetOrSeedOccupancy", ctx, int64(7), 4).Return(4, nil).Once()
	f.bookings.On("FindActiveByKey", ctx, "THEORY#TR-10441#20 May 2026").
		Return(&domain.Booking{ID: 99, Key: "THEORY#TR-10441#20 May 2026", Status: domain.BookingStatusActive}, nil).Once()

	result, err := f.service.CreateAdminBooking(ctx, theoryInput())
	assert.Nil(t, result)
	assert.Equal(t, domain.CodeDuplicateBooking, domain.CodeOf(err))
	f.bookings.AssertNotCalled(t, "Create")
}

// A cancelled booking for the same key never matches the active-only
// duplicate check, so rebooking after cancellation goes through.
func TestCreateAdminBooking_RebookingAfterCancellation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.trainees.On("GetByRef", ctx, "TR-10441").Return(trainee(), nil).Once()
	f.sessions.On("GetByID", ctx, int64(7)).Return(activeTheorySession(), nil).Once()
	f.counter.On("GetOrSeedOccupancy", ctx, int64(7), 4).Return(4, nil).Once()
	f.bookings.On("FindActiveByKey", ctx, "THEORY#TR-10441#20 May 2026").Return(nil, repository.ErrNotFound).Once()
	f.bookings.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()
	f.sessions.On("AddOccupancy", ctx, int64(7), 1).Return(5, nil).Once()
	f.counter.On("IncrementOccupancy", ctx, int64(7), 5).Return(5, nil).Once()
	f.syncer.On("Dispatch", mock.AnythingOfType("kafka.OccupancyEvent")).Once()
	f.audit.On("Create", ctx, mock.AnythingOfType("*repository.AuditNote")).Return(nil).Once()

	result, err := f.service.CreateAdminBooking(ctx, theoryInput())
	assert.NoError(t, err)
	assert.NotNil(t, result)
}

func TestCreateAdminBooking_CapacityOverride(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	session := activeTheorySession()
	session.Occupancy = 10 // full

	f.trainees.On("GetByRef", ctx, "TR-10441").Return(trainee(), nil).Once()
	f.sessions.On("GetByID", ctx, int64(7)).Return(session, nil).Once()
	f.counter.On("GetOrSeedOccupancy", ctx, int64(7), 10).Return(10, nil).Once()
	f.bookings.On("FindActiveByKey", ctx, "THEORY#TR-10441#20 May 2026").Return(nil, repository.ErrNotFound).Once()
	f.bookings.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()
	f.sessions.On("AddOccupancy", ctx, int64(7), 1).Return(11, nil).Once()
	f.counter.On("IncrementOccupancy", ctx, int64(7), 11).Return(11, nil).Once()
	f.syncer.On("Dispatch", mock.AnythingOfType("kafka.OccupancyEvent")).Once()

	var note *repository.AuditNote
	f.audit.On("Create", ctx, mock.AnythingOfType("*repository.AuditNote")).
		Run(func(args mock.Arguments) { note = args.Get(1).(*repository.AuditNote) }).
		Return(nil).Once()

	result, err := f.service.CreateAdminBooking(ctx, theoryInput())

	assert.NoError(t, err)
	assert.Contains(t, result.AppliedOverrides, "capacity limit bypassed")
	assert.Contains(t, note.Note, "capacity limit bypassed")
	assert.Contains(t, note.Note, "11/10")
	assert.Equal(t, "ops-admin", note.Actor)
}

func TestCreateAdminBooking_CompensatesOnOccupancyFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.trainees.On("GetByRef", ctx, "TR-10441").Return(trainee(), nil).Once()
	f.sessions.On("GetByID", ctx, int64(7)).Return(activeTheorySession(), nil).Once()
	f.counter.On("GetOrSeedOccupancy", ctx, int64(7), 4).Return(4, nil).Once()
	f.bookings.On("FindActiveByKey", ctx, "THEORY#TR-10441#20 May 2026").Return(nil, repository.ErrNotFound).Once()
	f.bookings.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()
	f.sessions.On("AddOccupancy", ctx, int64(7), 1).Return(0, errors.New("database down")).Once()
	f.bookings.On("Delete", ctx, int64(501)).Return(nil).Once()

	result, err := f.service.CreateAdminBooking(ctx, theoryInput())

	assert.Error(t, err)
	assert.Nil(t, result)
	f.bookings.AssertCalled(t, "Delete", ctx, int64(501))
	f.syncer.AssertNotCalled(t, "Dispatch")
}

// After compensation the booking key is free again, so the identical
// request admits exactly once on retry.
func TestCreateAdminBooking_IdempotentRetryAfterCompensation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.trainees.On("GetByRef", ctx, "TR-10441").Return(trainee(), nil).Twice()
	f.sessions.On("GetByID", ctx, int64(7)).Return(activeTheorySession(), nil).Twice()
	f.counter.On("GetOrSeedOccupancy", ctx, int64(7), 4).Return(4, nil).Twice()
	f.bookings.On("FindActiveByKey", ctx, "THEORY#TR-10441#20 May 2026").Return(nil, repository.ErrNotFound).Twice()
	f.bookings.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Twice()
	f.sessions.On("AddOccupancy", ctx, int64(7), 1).Return(0, errors.New("database down")).Once()
	f.bookings.On("Delete", ctx, int64(501)).Return(nil).Once()
	f.sessions.On("AddOccupancy", ctx, int64(7), 1).Return(5, nil).Once()
	f.counter.On("IncrementOccupancy", ctx, int64(7), 5).Return(5, nil).Once()
	f.syncer.On("Dispatch", mock.AnythingOfType("kafka.OccupancyEvent")).Once()
	f.audit.On("Create", ctx, mock.AnythingOfType("*repository.AuditNote")).Return(nil).Once()

	_, err := f.service.CreateAdminBooking(ctx, theoryInput())
	assert.Error(t, err)

	result, err := f.service.CreateAdminBooking(ctx, theoryInput())
	assert.NoError(t, err)
	assert.Equal(t, "THEORY#TR-10441#20 May 2026", result.BookingKey)
	f.bookings.AssertExpectations(t)
}

func TestCreateAdminBooking_CounterFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.trainees.On("GetByRef", ctx, "TR-10441").Return(trainee(), nil).Once()
	f.sessions.On("GetByID", ctx, int64(7)).Return(activeTheorySession(), nil).Once()
	f.counter.On("GetOrSeedOccupancy", ctx, int64(7), 4).Return(4, nil).Once()
	f.bookings.On("FindActiveByKey", ctx, "THEORY#TR-10441#20 May 2026").Return(nil, repository.ErrNotFound).Once()
	f.bookings.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()
	f.sessions.On("AddOccupancy", ctx, int64(7), 1).Return(5, nil).Once()
	f.counter.On("IncrementOccupancy", ctx, int64(7), 5).Return(0, errors.New("redis down")).Once()
	f.syncer.On("Dispatch", mock.AnythingOfType("kafka.OccupancyEvent")).Once()
	f.audit.On("Create", ctx, mock.AnythingOfType("*repository.AuditNote")).Return(nil).Once()

	result, err := f.service.CreateAdminBooking(ctx, theoryInput())
	assert.NoError(t, err)
	assert.NotNil(t, result)
}
