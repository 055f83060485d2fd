package handler

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"quickbid/internal/apperr"
	"quickbid/internal/audit"
	"quickbid/internal/auth"
	"quickbid/internal/commission"
)

type CommissionHandler struct {
	Engine *commission.Engine
	Auth   *auth.Authenticator
}

type commissionSettingsRequest struct {
	BuyerCommissionPercent  *decimal.Decimal `json:"buyerCommissionPercent"`
	SellerCommissionPercent *decimal.Decimal `json:"sellerCommissionPercent"`
	PlatformFlatFeeCents    int64            `json:"platformFlatFeeCents"`
	CategoryOverrides       json.RawMessage  `json:"categoryOverrides"`
}

func (h *CommissionHandler) Register(r *gin.Engine) {
	g := r.Group("/admin/commission-settings", h.Auth.Required(), h.Auth.RequireRole(auth.RoleAdmin, auth.RoleSuperAdmin))
	g.GET("", h.get)
	g.PUT("", h.update)
}

// @Summary Active commission settings
// @Tags commission
// @Param refresh query bool false "bypass the cache"
// @Success 200 {object} commission.Settings
// @Router /admin/commission-settings [get]
func (h *CommissionHandler) get(c *gin.Context) {
	force := c.Query("refresh") == "true"
	Ok(c, h.Engine.GetActive(c.Request.Context(), force), nil)
}

// @Summary Replace commission settings
// @Tags commission
// @Param body body commissionSettingsRequest true "settings"
// @Success 200 {object} commission.Settings
// @Failure 400 {object} apiResponse
// @Router /admin/commission-settings [put]
func (h *CommissionHandler) update(c *gin.Context) {
	var req commissionSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, apperr.Validation("INVALID_BODY", "invalid body"))
		return
	}
	if req.BuyerCommissionPercent == nil || req.SellerCommissionPercent == nil {
		Fail(c, apperr.Validation("INVALID_COMMISSION", "buyer and seller percent are required"))
		return
	}
	s, err := h.Engine.UpdateSettings(c.Request.Context(), commission.UpdateInput{
		BuyerCommissionPercent:  *req.BuyerCommissionPercent,
		SellerCommissionPercent: *req.SellerCommissionPercent,
		PlatformFlatFeeCents:    req.PlatformFlatFeeCents,
		CategoryOverrides:       req.CategoryOverrides,
		UpdatedBy:               auth.UserID(c),
	})
	if err != nil {
		Fail(c, err)
		return
	}
	audit.LogBestEffort(c.Request.Context(), "commission_settings_update", audit.LevelInfo, map[string]any{
		"buyer_percent":  s.BuyerCommissionPercent.String(),
		"seller_percent": s.SellerCommissionPercent.String(),
		"flat_fee_cents": s.PlatformFlatFeeCents,
		"user_id":        auth.UserID(c),
	})
	Ok(c, s, nil)
}
