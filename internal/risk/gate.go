package risk

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"quickbid/internal/apperr"
	"quickbid/internal/cache"
	"quickbid/internal/models"
	"quickbid/internal/repository"
)

const (
	DefaultCacheTTL = 30 * time.Second

	blockPointThreshold = 10
	limitPointThreshold = 5
)

var cooldownDaysBySeverity = map[string]int{
	models.SeverityLow:    3,
	models.SeverityMedium: 7,
	models.SeverityHigh:   14,
}

var statusRank = map[string]int{
	models.ControlStatusNormal:  0,
	models.ControlStatusFlagged: 1,
	models.ControlStatusLimited: 2,
	models.ControlStatusBlocked: 3,
}

// Summary is the derived risk view of a user. The store stays authoritative.
type Summary struct {
	SellerID       string     `json:"sellerId"`
	RiskScore      float64    `json:"riskScore"`
	RiskLevel      string     `json:"riskLevel"`
	Status         string     `json:"status"`
	PenaltyPoints  int        `json:"penaltyPoints"`
	CooldownUntil  *time.Time `json:"cooldownUntil,omitempty"`
	CooldownReason *string    `json:"cooldownReason,omitempty"`
	CooldownActive bool       `json:"cooldownActive"`
	ComputedAt     time.Time  `json:"computedAt"`
}

type Restriction struct {
	Allowed        bool
	Status         string
	CooldownActive bool
	CooldownUntil  *time.Time
}

type PenaltyInput struct {
	SellerID     string
	Type         string
	Severity     string
	Points       *int
	Reason       *string
	Evidence     json.RawMessage
	AppliedBy    *string
	CooldownDays *int
}

// Gate answers "may this user bid?" and records penalties.
type Gate struct {
	Repo   repository.RiskRepository
	Cache  cache.Store
	TTL    time.Duration
	Logger *zap.Logger
	Now    func() time.Time
}

type cachedSummary struct {
	Found   bool     `json:"found"`
	Summary *Summary `json:"summary,omitempty"`
}

func cacheKey(userID string) string {
	return "risk:summary:" + userID
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now().UTC()
	}
	return time.Now().UTC()
}

func (g *Gate) ttl() time.Duration {
	if g.TTL > 0 {
		return g.TTL
	}
	return DefaultCacheTTL
}

// Summary returns the cached summary when fresh, otherwise recomputes it. A nil
// summary means the user has no risk or control records and is unrestricted.
func (g *Gate) Summary(ctx context.Context, userID string) (*Summary, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}
	var cached cachedSummary
	ok, err := cache.GetJSON(ctx, g.Cache, cacheKey(userID), &cached)
	if err != nil && g.Logger != nil {
		g.Logger.Debug("risk: cache read failed", zap.String("user_id", userID), zap.Error(err))
	}
	if ok {
		return cached.Summary, nil
	}
	return g.refresh(ctx, userID)
}

func (g *Gate) refresh(ctx context.Context, userID string) (*Summary, error) {
	if g == nil || g.Repo == nil {
		return nil, nil
	}
	score, err := g.Repo.GetSellerRiskScore(ctx, userID)
	if err != nil {
		return nil, err
	}
	controls, err := g.Repo.GetUserControls(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := buildSummary(userID, score, controls, g.now())
	if err := cache.SetJSON(ctx, g.Cache, cacheKey(userID), cachedSummary{Found: summary != nil, Summary: summary}, g.ttl()); err != nil && g.Logger != nil {
		g.Logger.Debug("risk: cache write failed", zap.String("user_id", userID), zap.Error(err))
	}
	return summary, nil
}

func buildSummary(userID string, score *models.SellerRiskScore, controls *models.UserControls, now time.Time) *Summary {
	if score == nil && controls == nil {
		return nil
	}
	out := &Summary{
		SellerID:   userID,
		RiskLevel:  "low",
		Status:     models.ControlStatusNormal,
		ComputedAt: now,
	}
	if score != nil {
		out.RiskScore = score.RiskScore
		if strings.TrimSpace(score.RiskLevel) != "" {
			out.RiskLevel = score.RiskLevel
		}
	}
	if controls != nil {
		if strings.TrimSpace(controls.Status) != "" {
			out.Status = controls.Status
		}
		out.PenaltyPoints = controls.PenaltyPoints
		out.CooldownUntil = controls.CooldownUntil
		out.CooldownReason = controls.CooldownReason
		out.CooldownActive = controls.CooldownUntil != nil && controls.CooldownUntil.After(now)
	}
	return out
}

// Check derives bidding eligibility from the summary.
func (g *Gate) Check(ctx context.Context, userID string) (Restriction, error) {
	summary, err := g.Summary(ctx, userID)
	if err != nil {
		return Restriction{}, err
	}
	if summary == nil {
		return Restriction{Allowed: true, Status: models.ControlStatusNormal}, nil
	}
	blocked := summary.Status == models.ControlStatusBlocked ||
		(summary.Status == models.ControlStatusLimited && summary.CooldownActive)
	return Restriction{
		Allowed:        !blocked,
		Status:         summary.Status,
		CooldownActive: summary.CooldownActive,
		CooldownUntil:  summary.CooldownUntil,
	}, nil
}

// ApplyPenalty records an immutable penalty, escalates the control status and
// extends the cooldown. Statuses only escalate and cooldowns only extend.
func (g *Gate) ApplyPenalty(ctx context.Context, in PenaltyInput) (*Summary, error) {
	in.SellerID = strings.TrimSpace(in.SellerID)
	in.Type = strings.TrimSpace(in.Type)
	in.Severity = strings.ToLower(strings.TrimSpace(in.Severity))
	if in.SellerID == "" || in.Type == "" {
		return nil, apperr.Validation("INVALID_PENALTY", "seller id and penalty type are required")
	}
	baseDays, ok := cooldownDaysBySeverity[in.Severity]
	if !ok {
		return nil, apperr.Validation("INVALID_SEVERITY", "severity must be low, medium or high")
	}
	points := 1
	if in.Points != nil {
		if *in.Points < 0 {
			return nil, apperr.Validation("INVALID_POINTS", "points must not be negative")
		}
		points = *in.Points
	}
	days := baseDays
	if in.CooldownDays != nil {
		if *in.CooldownDays < 0 {
			return nil, apperr.Validation("INVALID_COOLDOWN", "cooldown days must not be negative")
		}
		days = *in.CooldownDays
	}
	now := g.now()

	penalty := &models.SellerPenalty{
		SellerID:    in.SellerID,
		PenaltyType: in.Type,
		Severity:    in.Severity,
		Points:      points,
		Reason:      in.Reason,
		AppliedBy:   in.AppliedBy,
		CreatedAt:   now,
	}
	if len(in.Evidence) > 0 {
		penalty.Evidence = datatypes.JSON(in.Evidence)
	}
	if err := g.Repo.InsertSellerPenalty(ctx, penalty); err != nil {
		return nil, err
	}

	existing, err := g.Repo.GetUserControls(ctx, in.SellerID)
	if err != nil {
		return nil, err
	}
	next := models.UserControls{UserID: in.SellerID, Status: models.ControlStatusNormal}
	if existing != nil {
		next = *existing
		if strings.TrimSpace(next.Status) == "" {
			next.Status = models.ControlStatusNormal
		}
	}
	next.PenaltyPoints += points
	next.Status = escalate(next.Status, in.Severity, next.PenaltyPoints)

	until := now.Add(time.Duration(days) * 24 * time.Hour)
	if next.CooldownUntil == nil || until.After(*next.CooldownUntil) {
		next.CooldownUntil = &until
		reason := in.Type
		if in.Reason != nil && strings.TrimSpace(*in.Reason) != "" {
			reason = strings.TrimSpace(*in.Reason)
		}
		next.CooldownReason = &reason
	}
	if err := g.Repo.UpsertUserControls(ctx, &next); err != nil {
		return nil, err
	}
	if g.Logger != nil {
		g.Logger.Info("risk: penalty applied",
			zap.String("seller_id", in.SellerID),
			zap.String("type", in.Type),
			zap.String("severity", in.Severity),
			zap.Int("points", points),
			zap.Int("total_points", next.PenaltyPoints),
			zap.String("status", next.Status),
		)
	}
	return g.refresh(ctx, in.SellerID)
}

// escalate computes the post-penalty status without ever lowering it.
func escalate(current, severity string, points int) string {
	target := current
	switch {
	case severity == models.SeverityHigh || points >= blockPointThreshold:
		target = models.ControlStatusBlocked
	case severity == models.SeverityMedium || points >= limitPointThreshold:
		target = models.ControlStatusLimited
	}
	if statusRank[target] < statusRank[current] {
		return current
	}
	return target
}
