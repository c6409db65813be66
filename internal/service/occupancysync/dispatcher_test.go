package occupancysync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/exambooking/internal/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func event() kafka.OccupancyEvent {
	return kafka.OccupancyEvent{SessionID: 7, Occupancy: 5, Capacity: 10, RecordedAt: time.Now().UTC()}
}

func TestNotify_SucceedsFirstAttempt(t *testing.T) {
	producer := &MockProducer{}
	d := NewDispatcher(producer, "occupancy", 3, ExponentialBackoff{Base: time.Millisecond})

	producer.On("Publish", mock.Anything, "occupancy", "session:7", mock.Anything).Return(nil).Once()

	err := d.Notify(context.Background(), event())
	assert.NoError(t, err)
	producer.AssertExpectations(t)
}

func TestNotify_RetriesThenSucceeds(t *testing.T) {
	producer := &MockProducer{}
	d := NewDispatcher(producer, "occupancy", 3, ExponentialBackoff{Base: time.Millisecond})

	producer.On("Publish", mock.Anything, "occupancy", "session:7", mock.Anything).Return(errors.New("broker down")).Twice()
	producer.On("Publish", mock.Anything, "occupancy", "session:7", mock.Anything).Return(nil).Once()

	err := d.Notify(context.Background(), event())
	assert.NoError(t, err)
	producer.AssertNumberOfCalls(t, "Publish", 3)
}

func TestNotify_GivesUpAfterMaxAttempts(t *testing.T) {
	producer := &MockProducer{}
	d := NewDispatcher(producer, "occupancy", 3, ExponentialBackoff{Base: time.Millisecond})

	broker := errors.New("broker down")
	producer.On("Publish", mock.Anything, "occupancy", "session:7", mock.Anything).Return(broker)

	err := d.Notify(context.Background(), event())
	assert.ErrorIs(t, err, broker)
	producer.AssertNumberOfCalls(t, "Publish", 3)
}

func TestNotify_StopsOnContextCancel(t *testing.T) {
	producer := &MockProducer{}
	d := NewDispatcher(producer, "occupancy", 5, ExponentialBackoff{Base: time.Hour})

	producer.On("Publish", mock.Anything, "occupancy", "session:7", mock.Anything).Return(errors.New("broker down"))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := d.Notify(ctx, event())
	assert.ErrorIs(t, err, context.Canceled)
	producer.AssertNumberOfCalls(t, "Publish", 1)
}

func TestExponentialBackoff(t *testing.T) {
	b := ExponentialBackoff{Base: 100 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, b.Delay(1))
	assert.Equal(t, 200*time.Millisecond, b.Delay(2))
	assert.Equal(t, 400*time.Millisecond, b.Delay(3))
}
