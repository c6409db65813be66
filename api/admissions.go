package api

import (
	"net/http"

	"github.com/Domenick1991/exambooking/internal/service/admission"
	"github.com/gin-gonic/gin"
)

type AdmissionHandler struct {
	service admission.AdmissionUseCase
}

type createAdminBookingRequest struct {
	TraineeRef  string `json:"trainee_ref"`
	Email       string `json:"email"`
	SessionID   int64  `json:"session_id"`
	Venue       string `json:"venue,omitempty"`
	WritingHand string `json:"writing_hand,omitempty"`
}

type createAdminBookingResponse struct {
	BookingKey       string   `json:"booking_key"`
	RecordID         int64    `json:"record_id"`
	AppliedOverrides []string `json:"applied_overrides"`
}

func NewAdmissionHandler(service admission.AdmissionUseCase) *AdmissionHandler {
	return &AdmissionHandler{service: service}
}

func (h *AdmissionHandler) Register(router *gin.RouterGroup) {
	router.POST("/bookings", h.create)
}

func (h *AdmissionHandler) create(c *gin.Context) {
	var req createAdminBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.CreateAdminBooking(c.Request.Context(), admission.CreateAdminBookingInput{
		TraineeRef:  req.TraineeRef,
		Email:       req.Email,
		SessionID:   req.SessionID,
		Venue:       req.Venue,
		WritingHand: req.WritingHand,
		Actor:       actorFrom(c).Name,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, createAdminBookingResponse{
		BookingKey:       result.BookingKey,
		RecordID:         result.RecordID,
		AppliedOverrides: result.AppliedOverrides,
	})
}
