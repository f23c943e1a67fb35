package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"oracle/internal/repository"
	"oracle/internal/service"
)

type MarketHandler struct {
	Markets *service.MarketService
}

func (h *MarketHandler) Register(r *gin.Engine) {
	group := r.Group("/markets")
	group.POST("", h.create)
	group.GET("", h.list)
	group.GET("/:id", h.get)
}

type createMarketRequest struct {
	Question string `json:"question"`
	ClosesAt string `json:"closes_at"` // RFC3339
}

func (h *MarketHandler) create(c *gin.Context) {
	if h.Markets == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req createMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		Error(c, http.StatusBadRequest, "question required", nil)
		return
	}
	closesAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ClosesAt))
	if err != nil {
		Error(c, http.StatusBadRequest, "closes_at must be RFC3339", nil)
		return
	}

	market, err := h.Markets.CreateMarket(c.Request.Context(), req.Question, closesAt)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Created(c, market)
}

func (h *MarketHandler) list(c *gin.Context) {
	if h.Markets == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	var status *string
	if v := strings.ToUpper(strings.TrimSpace(c.Query("status"))); v != "" {
		status = &v
	}
	params := repository.ListMarketsParams{
		Limit:   limit,
		Offset:  offset,
		Status:  status,
		OrderBy: "created_at",
		Asc:     boolPtr(false),
	}
	items, total, err := h.Markets.ListMarkets(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *MarketHandler) get(c *gin.Context) {
	if h.Markets == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	market, err := h.Markets.GetMarket(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Ok(c, market, nil)
}
