package api

import (
	"net/http"

	"github.com/Domenick1991/exambooking/internal/domain"
	"github.com/gin-gonic/gin"
)

// writeError maps the admission error taxonomy to HTTP statuses. Plain
// errors become a 500 without leaking internals.
func writeError(c *gin.Context, err error) {
	code := domain.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"code": string(code), "error": err.Error()})
}

var statusByCode = map[domain.ErrorCode]int{
	domain.CodeValidation:          http.StatusBadRequest,
	domain.CodeContactNotFound:     http.StatusNotFound,
	domain.CodeExamNotFound:        http.StatusNotFound,
	domain.CodeExamNotActive:       http.StatusConflict,
	domain.CodeExamFull:            http.StatusConflict,
	domain.CodeDuplicateBooking:    http.StatusConflict,
	domain.CodeInsufficientCredits: http.StatusPaymentRequired,
	domain.CodeInvalidTokenType:    http.StatusUnprocessableEntity,
	domain.CodePayloadTooLarge:     http.StatusRequestEntityTooLarge,
}
