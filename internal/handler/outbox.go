package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"oracle/internal/repository"
	"oracle/internal/service"
)

// OutboxHandler is the operator-facing view over delivery state: inspect
// entries, see why they failed, and requeue FAILED ones.
type OutboxHandler struct {
	Repo  repository.Repository
	Relay *service.OutboxRelayService
}

func (h *OutboxHandler) Register(r *gin.Engine) {
	group := r.Group("/outbox")
	group.GET("", h.list)
	group.GET("/stats", h.stats)
	group.GET("/:id", h.get)
	group.POST("/:id/retry", h.retry)
}

func (h *OutboxHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	var status *string
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		status = &v
	}
	var marketID *string
	if v := strings.TrimSpace(c.Query("market_id")); v != "" {
		marketID = &v
	}
	var kind *string
	if v := strings.TrimSpace(c.Query("kind")); v != "" {
		kind = &v
	}
	params := repository.ListOutboxParams{
		Limit:    limit,
		Offset:   offset,
		Status:   status,
		MarketID: marketID,
		Kind:     kind,
		OrderBy:  "created_at",
		Asc:      boolPtr(false),
	}
	items, err := h.Repo.ListOutboxEntries(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountOutboxEntries(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *OutboxHandler) stats(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	counts, err := h.Repo.CountOutboxByStatus(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, counts, nil)
}

func (h *OutboxHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	entry, err := h.Repo.GetOutboxEntryByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if entry == nil {
		Error(c, http.StatusNotFound, "outbox entry not found", nil)
		return
	}
	Ok(c, entry, nil)
}

func (h *OutboxHandler) retry(c *gin.Context) {
	if h.Relay == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	if err := h.Relay.Requeue(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	Ok(c, gin.H{"requeued": true}, nil)
}
