package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"quickbid/internal/auth"
	"quickbid/internal/realtime"
)

// RealtimeHandler serves the auction websocket. Anonymous clients may watch
// auction rooms; personal outbid events need a token.
type RealtimeHandler struct {
	Hub     *realtime.Hub
	Auth    *auth.Authenticator
	Options realtime.ServeOptions
	Logger  *zap.Logger
}

func (h *RealtimeHandler) Register(r *gin.Engine) {
	r.GET("/ws/auctions", h.Auth.Optional(), h.serve)
}

// @Summary Auction event stream (websocket)
// @Tags realtime
// @Router /ws/auctions [get]
func (h *RealtimeHandler) serve(c *gin.Context) {
	if err := h.Hub.Serve(c.Writer, c.Request, auth.UserID(c), h.Options); err != nil && h.Logger != nil {
		h.Logger.Debug("realtime: socket closed", zap.Error(err))
	}
}
