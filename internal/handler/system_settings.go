package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"quickbid/internal/auth"
	"quickbid/internal/service"
)

type SystemSettingsHandler struct {
	Settings *service.SystemSettingsService
	Auth     *auth.Authenticator
}

type switchRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *SystemSettingsHandler) Register(r *gin.Engine) {
	g := r.Group("/admin/system-settings", h.Auth.Required(), h.Auth.RequireRole(auth.RoleAdmin, auth.RoleSuperAdmin))
	g.GET("/switches", h.list)
	g.PUT("/switches/:key", h.set)
}

// @Summary List feature switches
// @Tags system
// @Success 200 {object} map[string]bool
// @Router /admin/system-settings/switches [get]
func (h *SystemSettingsHandler) list(c *gin.Context) {
	Ok(c, h.Settings.Switches(c.Request.Context()), nil)
}

// @Summary Toggle a feature switch
// @Tags system
// @Param key path string true "switch key"
// @Param body body switchRequest true "switch"
// @Success 200 {object} map[string]bool
// @Router /admin/system-settings/switches/{key} [put]
func (h *SystemSettingsHandler) set(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if _, ok := service.DefaultFeatureSwitches()[key]; !ok {
		Error(c, http.StatusNotFound, "unknown switch", nil)
		return
	}
	var req switchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if err := h.Settings.SetEnabled(c.Request.Context(), key, *req.Enabled, auth.UserID(c)); err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, h.Settings.Switches(c.Request.Context()), nil)
}
