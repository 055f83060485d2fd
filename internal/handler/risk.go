package handler

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"

	"quickbid/internal/apperr"
	"quickbid/internal/audit"
	"quickbid/internal/auth"
	"quickbid/internal/risk"
)

type RiskHandler struct {
	Gate *risk.Gate
	Auth *auth.Authenticator
}

type penaltyRequest struct {
	Type         string          `json:"type"`
	Severity     string          `json:"severity"`
	Points       *int            `json:"points"`
	Reason       *string         `json:"reason"`
	Evidence     json.RawMessage `json:"evidence"`
	CooldownDays *int            `json:"cooldownDays"`
}

type riskSummaryResponse struct {
	SellerID string        `json:"sellerId"`
	Allowed  bool          `json:"allowed"`
	Summary  *risk.Summary `json:"summary"`
}

func (h *RiskHandler) Register(r *gin.Engine) {
	g := r.Group("/risk/sellers", h.Auth.Required())
	g.GET("/:sellerId", h.summary)
	g.POST("/:sellerId/penalties", h.Auth.RequireRole(auth.RoleAdmin, auth.RoleSuperAdmin), h.applyPenalty)
}

// @Summary Seller risk summary
// @Tags risk
// @Param sellerId path string true "seller id"
// @Success 200 {object} riskSummaryResponse
// @Failure 403 {object} apiResponse
// @Router /risk/sellers/{sellerId} [get]
func (h *RiskHandler) summary(c *gin.Context) {
	sellerID := strings.TrimSpace(c.Param("sellerId"))
	cl, _ := auth.ClaimsFrom(c)
	if !cl.IsAdmin() && cl.UserID() != sellerID {
		Fail(c, apperr.Forbidden("only admins or the seller may view this summary"))
		return
	}
	s, err := h.Gate.Summary(c.Request.Context(), sellerID)
	if err != nil {
		Fail(c, apperr.Internal("failed to load risk summary", err))
		return
	}
	restriction, err := h.Gate.Check(c.Request.Context(), sellerID)
	if err != nil {
		Fail(c, apperr.Internal("failed to check restriction", err))
		return
	}
	Ok(c, riskSummaryResponse{SellerID: sellerID, Allowed: restriction.Allowed, Summary: s}, nil)
}

// @Summary Apply a seller penalty
// @Tags risk
// @Param sellerId path string true "seller id"
// @Param body body penaltyRequest true "penalty"
// @Success 200 {object} risk.Summary
// @Failure 400 {object} apiResponse
// @Router /risk/sellers/{sellerId}/penalties [post]
func (h *RiskHandler) applyPenalty(c *gin.Context) {
	var req penaltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, apperr.Validation("INVALID_BODY", "invalid body"))
		return
	}
	sellerID := strings.TrimSpace(c.Param("sellerId"))
	by := auth.UserID(c)
	s, err := h.Gate.ApplyPenalty(c.Request.Context(), risk.PenaltyInput{
		SellerID:     sellerID,
		Type:         req.Type,
		Severity:     req.Severity,
		Points:       req.Points,
		Reason:       req.Reason,
		Evidence:     req.Evidence,
		AppliedBy:    &by,
		CooldownDays: req.CooldownDays,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	audit.LogBestEffort(c.Request.Context(), "seller_penalty", audit.LevelWarn, map[string]any{
		"seller_id": sellerID,
		"type":      req.Type,
		"severity":  req.Severity,
		"status":    s.Status,
		"user_id":   by,
	})
	Ok(c, s, nil)
}
