package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/exambooking/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockSessionUseCase struct {
	mock.Mock
}

func (m *MockSessionUseCase) List(ctx context.Context) ([]domain.Session, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Session), args.Error(1)
}

func (m *MockSessionUseCase) GetByID(ctx context.Context, id int64) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func TestSessionHandler_List(t *testing.T) {
	mockService := &MockSessionUseCase{}
	handler := NewSessionHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/sessions", nil)

	mockService.On("List", c.Request.Context()).Return([]domain.Session{{
		ID:       7,
		Category: domain.ExamCategoryTheory,
		Date:     time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC),
		Capacity: 10,
		Status:   domain.SessionStatusActive,
	}}, nil).Once()

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "THEORY")
}

func TestSessionHandler_Get_InvalidID(t *testing.T) {
	handler := NewSessionHandler(&MockSessionUseCase{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/sessions/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.get(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
