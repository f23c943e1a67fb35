package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"oracle/internal/service"
)

// respondServiceError maps the service error taxonomy onto HTTP statuses;
// anything unrecognized is a store failure.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMarketNotFound),
		errors.Is(err, service.ErrSettlementNotFound),
		errors.Is(err, service.ErrBatchNotFound),
		errors.Is(err, service.ErrOutboxEntryNotFound):
		Error(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrDuplicateSettlement),
		errors.Is(err, service.ErrAlreadyBatched):
		Error(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, service.ErrMarketClosed),
		errors.Is(err, service.ErrUnsettledMarket),
		errors.Is(err, service.ErrEmptyBatch),
		errors.Is(err, service.ErrOutboxEntryNotFailed):
		Error(c, http.StatusBadRequest, err.Error(), nil)
	default:
		Error(c, http.StatusBadGateway, err.Error(), nil)
	}
}
