package api

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Domenick1991/exambooking/internal/service/bulkimport"
	"github.com/gin-gonic/gin"
)

type ImportHandler struct {
	service bulkimport.BulkUseCase
}

type importRowRequest struct {
	TraineeRef string `json:"trainee_ref"`
	SessionID  string `json:"session_id"`
	CreditType string `json:"credit_type"`
}

type importRequest struct {
	Rows []importRowRequest `json:"rows"`
}

type rowResultResponse struct {
	Line          int    `json:"line"`
	TraineeRef    string `json:"trainee_ref"`
	SessionID     int64  `json:"session_id,omitempty"`
	CreditType    string `json:"credit_type,omitempty"`
	BookingKey    string `json:"booking_key,omitempty"`
	BalanceBefore int    `json:"balance_before"`
	BalanceAfter  int    `json:"balance_after"`
	Code          string `json:"code,omitempty"`
	Error         string `json:"error,omitempty"`
}

type previewResponse struct {
	ValidRows   []rowResultResponse `json:"valid_rows"`
	InvalidRows []rowResultResponse `json:"invalid_rows"`
}

type commitResponse struct {
	CreatedCount int                 `json:"created_count"`
	SkippedRows  []rowResultResponse `json:"skipped_rows"`
}

func NewImportHandler(service bulkimport.BulkUseCase) *ImportHandler {
	return &ImportHandler{service: service}
}

func (h *ImportHandler) Register(router *gin.RouterGroup) {
	router.POST("/imports/preview", h.preview)
	router.POST("/imports", h.commit)
}

func (h *ImportHandler) preview(c *gin.Context) {
	rows, ok := h.decodeRows(c)
	if !ok {
		return
	}
	report, err := h.service.Preview(c.Request.Context(), rows)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, previewResponse{
		ValidRows:   toRowResponses(report.Valid),
		InvalidRows: toRowResponses(report.Invalid),
	})
}

func (h *ImportHandler) commit(c *gin.Context) {
	rows, ok := h.decodeRows(c)
	if !ok {
		return
	}
	result, err := h.service.Commit(c.Request.Context(), rows)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, commitResponse{
		CreatedCount: result.CreatedCount,
		SkippedRows:  toRowResponses(result.Skipped),
	})
}

// decodeRows accepts either a JSON row list or a multipart CSV upload.
// On failure it writes the response itself and returns ok=false.
func (h *ImportHandler) decodeRows(c *gin.Context) ([]bulkimport.Row, bool) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		file, _, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
			return nil, false
		}
		defer file.Close()
		rows, err := parseCSV(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return nil, false
		}
		return rows, true
	}

	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	rows := make([]bulkimport.Row, 0, len(req.Rows))
	for i, r := range req.Rows {
		rows = append(rows, bulkimport.Row{
			Line:       i + 1,
			TraineeRef: r.TraineeRef,
			SessionID:  r.SessionID,
			CreditText: r.CreditType,
		})
	}
	return rows, true
}

// parseCSV extracts the required columns by header name; extra columns are
// ignored. Row numbering is 1-based file order excluding the header.
func parseCSV(r io.Reader) ([]bulkimport.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := map[string]int{}
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"trainee_ref", "session_id", "credit_type"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("csv is missing required column %q", required)
		}
	}

	var rows []bulkimport.Row
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		line++
		rows = append(rows, bulkimport.Row{
			Line:       line,
			TraineeRef: field(record, columns["trainee_ref"]),
			SessionID:  field(record, columns["session_id"]),
			CreditText: field(record, columns["credit_type"]),
		})
	}
	return rows, nil
}

func field(record []string, idx int) string {
	if idx < len(record) {
		return record[idx]
	}
	return ""
}

func toRowResponses(outcomes []bulkimport.RowOutcome) []rowResultResponse {
	out := make([]rowResultResponse, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, rowResultResponse{
			Line:          o.Line,
			TraineeRef:    o.TraineeRef,
			SessionID:     o.SessionID,
			CreditType:    string(o.Category),
			BookingKey:    o.BookingKey,
			BalanceBefore: o.BalanceBefore,
			BalanceAfter:  o.BalanceAfter,
			Code:          string(o.Code),
			Error:         o.Message,
		})
	}
	return out
}
