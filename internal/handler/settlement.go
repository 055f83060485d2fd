package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"quickbid/internal/audit"
	"quickbid/internal/auth"
	"quickbid/internal/service"
)

type SettlementHandler struct {
	Coordinator *service.SettlementCoordinator
	Payouts     *service.PayoutService
	Auth        *auth.Authenticator
}

type payoutCompleteResponse struct {
	PayoutID string `json:"payoutId"`
	Status   string `json:"status"`
}

func (h *SettlementHandler) Register(r *gin.Engine) {
	g := r.Group("/admin", h.Auth.Required(), h.Auth.RequireRole(auth.RoleAdmin, auth.RoleSuperAdmin))
	g.POST("/auctions/:auctionId/settle", h.settle)
	g.POST("/payouts/:payoutId/complete", h.completePayout)
}

// @Summary Settle an ended auction
// @Tags settlement
// @Param auctionId path string true "auction id"
// @Success 200 {object} service.SettleResult
// @Failure 400 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Failure 502 {object} apiResponse
// @Router /admin/auctions/{auctionId}/settle [post]
func (h *SettlementHandler) settle(c *gin.Context) {
	ctx := c.Request.Context()
	id := strings.TrimSpace(c.Param("auctionId"))
	res, err := h.Coordinator.Settle(ctx, id)
	if err != nil {
		audit.LogBestEffort(ctx, "auction_settle_failed", audit.LevelWarn, map[string]any{
			"auction_id": id,
			"user_id":    auth.UserID(c),
			"error":      err.Error(),
		})
		Fail(c, err)
		return
	}
	audit.LogBestEffort(ctx, "auction_settle", audit.LevelInfo, map[string]any{
		"auction_id": id,
		"user_id":    auth.UserID(c),
		"status":     res.Status,
		"payout_id":  res.PayoutID,
	})
	Ok(c, res, nil)
}

// @Summary Mark a payout completed
// @Tags settlement
// @Param payoutId path string true "payout id"
// @Success 200 {object} payoutCompleteResponse
// @Failure 404 {object} apiResponse
// @Router /admin/payouts/{payoutId}/complete [post]
func (h *SettlementHandler) completePayout(c *gin.Context) {
	id := strings.TrimSpace(c.Param("payoutId"))
	status, err := h.Payouts.Complete(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	audit.LogBestEffort(c.Request.Context(), "payout_complete", audit.LevelInfo, map[string]any{
		"payout_id": id,
		"user_id":   auth.UserID(c),
		"status":    status,
	})
	Ok(c, payoutCompleteResponse{PayoutID: id, Status: status}, nil)
}
