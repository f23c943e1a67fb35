package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"oracle/internal/service"
)

type SettlementHandler struct {
	Ledger *service.LedgerService
}

func (h *SettlementHandler) Register(r *gin.Engine) {
	r.POST("/markets/:id/settlement", h.record)
	r.GET("/markets/:id/settlement", h.get)
}

type recordSettlementRequest struct {
	Outcome   string `json:"outcome"`
	DecidedAt string `json:"decided_at"` // RFC3339, optional
}

// record is the manual path; normally the resolver settles markets.
func (h *SettlementHandler) record(c *gin.Context) {
	if h.Ledger == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	marketID := strings.TrimSpace(c.Param("id"))
	if marketID == "" {
		Error(c, http.StatusBadRequest, "invalid market id", nil)
		return
	}
	var req recordSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	outcome, err := decimal.NewFromString(strings.TrimSpace(req.Outcome))
	if err != nil {
		Error(c, http.StatusBadRequest, "outcome must be a decimal string", nil)
		return
	}
	var decidedAt time.Time
	if strings.TrimSpace(req.DecidedAt) != "" {
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(req.DecidedAt))
		if err != nil {
			Error(c, http.StatusBadRequest, "decided_at must be RFC3339", nil)
			return
		}
		decidedAt = ts
	}

	settlement, err := h.Ledger.RecordSettlement(c.Request.Context(), marketID, outcome, decidedAt)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Created(c, settlement)
}

func (h *SettlementHandler) get(c *gin.Context) {
	if h.Ledger == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	marketID := strings.TrimSpace(c.Param("id"))
	if marketID == "" {
		Error(c, http.StatusBadRequest, "invalid market id", nil)
		return
	}
	view, err := h.Ledger.GetSettlementView(c.Request.Context(), marketID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Ok(c, view, nil)
}
