package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"quickbid/internal/apperr"
	"quickbid/internal/auth"
	"quickbid/internal/ratelimit"
	"quickbid/internal/service"
)

const idempotencyHeader = "Idempotency-Key"

type BidsHandler struct {
	Bids    *service.BidService
	Stats   *service.LiveStatsService
	Chain   *service.BidLedgerService
	Auth    *auth.Authenticator
	Limiter ratelimit.Limiter
	Logger  *zap.Logger
}

type placeBidRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

type liveStatsResponse struct {
	AuctionID    string               `json:"auctionId"`
	BiddingStats service.BiddingStats `json:"bidding_stats"`
}

func (h *BidsHandler) Register(r *gin.Engine) {
	g := r.Group("/auctions")
	// Unauthenticated attempts count against the client IP.
	var bid []gin.HandlerFunc
	if h.Limiter != nil {
		bid = append(bid, h.Auth.Optional(), ratelimit.Middleware(h.Limiter, "place_bid", auth.UserID, rejectRateLimited, h.Logger))
	}
	bid = append(bid, h.Auth.Required(), h.placeBid)
	g.POST("/:auctionId/place-bid", bid...)
	g.GET("/:auctionId/live-stats", h.liveStats)
	g.GET("/:auctionId/ledger/verify", h.verifyLedger)
}

func rejectRateLimited(c *gin.Context, _ ratelimit.Decision) {
	Abort(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many bid attempts, slow down")
}

// @Summary Place a bid
// @Tags bids
// @Param auctionId path string true "auction id"
// @Param Idempotency-Key header string false "idempotency key"
// @Param body body placeBidRequest true "bid"
// @Success 200 {object} service.PlaceBidResult
// @Failure 400 {object} apiResponse
// @Failure 401 {object} apiResponse
// @Failure 403 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Failure 429 {object} apiResponse
// @Router /auctions/{auctionId}/place-bid [post]
func (h *BidsHandler) placeBid(c *gin.Context) {
	var req placeBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, apperr.Validation("INVALID_BODY", "invalid body"))
		return
	}
	if req.Amount == nil {
		Fail(c, apperr.Validation("INVALID_AMOUNT", "amount is required"))
		return
	}
	resp, err := h.Bids.PlaceBid(c.Request.Context(), service.PlaceBidInput{
		AuctionID:      strings.TrimSpace(c.Param("auctionId")),
		BidderID:       auth.UserID(c),
		Amount:         *req.Amount,
		IdempotencyKey: strings.TrimSpace(c.GetHeader(idempotencyHeader)),
	})
	if err != nil {
		Fail(c, err)
		return
	}
	if resp.Replayed {
		c.Header("Idempotent-Replayed", "true")
	}
	Raw(c, resp.StatusCode, resp.Body)
}

// @Summary Live bidding statistics
// @Tags bids
// @Param auctionId path string true "auction id"
// @Success 200 {object} liveStatsResponse
// @Router /auctions/{auctionId}/live-stats [get]
func (h *BidsHandler) liveStats(c *gin.Context) {
	id := strings.TrimSpace(c.Param("auctionId"))
	stats, err := h.Stats.ComputeBiddingStats(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, liveStatsResponse{AuctionID: id, BiddingStats: stats}, nil)
}

// @Summary Verify the bid hash chain
// @Tags bids
// @Param auctionId path string true "auction id"
// @Success 200 {object} bidledger.VerifyResult
// @Router /auctions/{auctionId}/ledger/verify [get]
func (h *BidsHandler) verifyLedger(c *gin.Context) {
	res, err := h.Chain.VerifyChain(c.Request.Context(), strings.TrimSpace(c.Param("auctionId")))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, res, nil)
}
