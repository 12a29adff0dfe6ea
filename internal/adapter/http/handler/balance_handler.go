package handler

import (
	"strconv"

	"transfer-settlement-service/internal/adapter/http/dto"
	"transfer-settlement-service/internal/core/ports"
	"transfer-settlement-service/pkg/apperror"
	"transfer-settlement-service/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultEntriesLimit = 50
	maxEntriesLimit     = 500
)

// BalanceHandler serves the settlement read path.
type BalanceHandler struct {
	balanceSvc ports.BalanceService
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(balanceSvc ports.BalanceService) *BalanceHandler {
	return &BalanceHandler{balanceSvc: balanceSvc}
}

// GetBalance handles GET /balance?userId=<id>.
func (h *BalanceHandler) GetBalance(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		response.Error(c, apperror.Validation("userId query parameter is required"))
		return
	}

	balance, err := h.balanceSvc.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{Balance: balance.InexactFloat64()})
}

// ListEntries handles GET /entries?limit=<n>.
func (h *BalanceHandler) ListEntries(c *gin.Context) {
	limit := defaultEntriesLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxEntriesLimit {
			response.Error(c, apperror.Validation("limit must be an integer between 1 and 500"))
			return
		}
		limit = n
	}

	entries, err := h.balanceSvc.ListEntries(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.ToLedgerEntryResponse(e))
	}
	response.OK(c, dto.EntriesResponse{Entries: out})
}
