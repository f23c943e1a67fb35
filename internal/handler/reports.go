package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"oracle/internal/service"
)

type ReportHandler struct {
	Intake *service.ReportIntakeService
}

func (h *ReportHandler) Register(r *gin.Engine) {
	r.POST("/markets/:id/reports", h.submit)
	r.GET("/markets/:id/reports", h.list)
}

type submitReportRequest struct {
	Source         string `json:"source"`
	Value          string `json:"value"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (h *ReportHandler) submit(c *gin.Context) {
	if h.Intake == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	marketID := strings.TrimSpace(c.Param("id"))
	if marketID == "" {
		Error(c, http.StatusBadRequest, "invalid market id", nil)
		return
	}
	var req submitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	req.Source = strings.TrimSpace(req.Source)
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	if req.Source == "" || req.IdempotencyKey == "" {
		Error(c, http.StatusBadRequest, "source and idempotency_key required", nil)
		return
	}
	value, err := decimal.NewFromString(strings.TrimSpace(req.Value))
	if err != nil {
		Error(c, http.StatusBadRequest, "value must be a decimal string", nil)
		return
	}

	report, created, err := h.Intake.SubmitReport(c.Request.Context(), marketID, req.Source, value, req.IdempotencyKey)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if created {
		Created(c, report)
		return
	}
	// Replay: the prior row, unchanged.
	Ok(c, report, map[string]any{"replayed": true})
}

func (h *ReportHandler) list(c *gin.Context) {
	if h.Intake == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	marketID := strings.TrimSpace(c.Param("id"))
	if marketID == "" {
		Error(c, http.StatusBadRequest, "invalid market id", nil)
		return
	}
	reports, err := h.Intake.ListReports(c.Request.Context(), marketID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Ok(c, reports, nil)
}
