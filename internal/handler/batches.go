package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"oracle/internal/models"
	"oracle/internal/repository"
	"oracle/internal/service"
)

type BatchHandler struct {
	Builder *service.BatchBuilderService
	Repo    repository.Repository
}

func (h *BatchHandler) Register(r *gin.Engine) {
	group := r.Group("/batches")
	group.POST("", h.create)
	group.GET("", h.list)
	group.GET("/:id", h.get)
}

type createBatchRequest struct {
	MarketIDs []string `json:"market_ids"`
}

type batchView struct {
	models.Batch
	MarketIDs []string `json:"market_ids"`
}

func (h *BatchHandler) create(c *gin.Context) {
	if h.Builder == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req createBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	batch, err := h.Builder.CreateBatch(c.Request.Context(), req.MarketIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Created(c, batch)
}

func (h *BatchHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListBatchesParams{
		Limit:   limit,
		Offset:  offset,
		OrderBy: "created_at",
		Asc:     boolPtr(false),
	}
	items, err := h.Repo.ListBatches(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountBatches(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *BatchHandler) get(c *gin.Context) {
	if h.Builder == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	batch, items, err := h.Builder.GetBatch(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	marketIDs := make([]string, 0, len(items))
	for _, item := range items {
		marketIDs = append(marketIDs, item.MarketID)
	}
	Ok(c, batchView{Batch: *batch, MarketIDs: marketIDs}, nil)
}
