// Package risk classifies transactions by fraud risk.
//
// The remote scoring service is asked first. Whenever it cannot give a
// recognized tier (unreachable, timed out, malformed reply, unknown value)
// the classifier falls back to local amount thresholds. Classification never
// fails the caller.
package risk

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/transaction-risk-intake/internal/metrics"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/models"
)

// Decision sources.
const (
	SourceRemote   = "remote"
	SourceFallback = "fallback"
)

// DefaultHighRiskAmount is the fallback threshold for the high-risk flag.
var DefaultHighRiskAmount = decimal.NewFromInt(10000)

// Display bands used to derive a tier locally. These are fixed and
// independent of the configurable high-risk threshold.
var (
	bandHigh   = decimal.NewFromInt(10000)
	bandMedium = decimal.NewFromInt(1000)
)

// Assessment is the classifier's verdict.
type Assessment struct {
	Level    models.RiskLevel
	HighRisk bool
	Source   string
}

// TierLookup is the outcome of asking the remote scorer. Known is false
// whenever the scorer could not supply a recognized tier; Err then carries
// the cause when there was one. Raw is the tier string exactly as the
// service sent it.
type TierLookup struct {
	Level models.RiskLevel
	Raw   string
	Known bool
	Err   error
}

// Scorer asks a remote service for a tier.
type Scorer interface {
	Score(ctx context.Context, amount decimal.Decimal, merchant string) TierLookup
}

// Classifier combines a Scorer with the local fallback heuristic.
type Classifier struct {
	scorer         Scorer
	highRiskAmount decimal.Decimal
	logger         *slog.Logger
}

// NewClassifier creates a Classifier. A nil scorer means every
// classification uses the fallback heuristic.
func NewClassifier(scorer Scorer, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		scorer:         scorer,
		highRiskAmount: DefaultHighRiskAmount,
		logger:         logger.With("component", "risk-classifier"),
	}
}

// WithHighRiskAmount overrides the fallback high-risk threshold.
func (c *Classifier) WithHighRiskAmount(amount decimal.Decimal) *Classifier {
	c.highRiskAmount = amount
	return c
}

// Classify returns an Assessment whose Level is never RiskUnknown.
func (c *Classifier) Classify(ctx context.Context, amount decimal.Decimal, merchant string) Assessment {
	lookup := TierLookup{Level: models.RiskUnknown}
	if c.scorer != nil {
		lookup = c.scorer.Score(ctx, amount, merchant)
	}

	if lookup.Known {
		metrics.RiskClassifications.WithLabelValues(SourceRemote).Inc()
		return Assessment{
			Level:    lookup.Level,
			HighRisk: lookup.Level == models.RiskHigh,
			Source:   SourceRemote,
		}
	}

	if lookup.Err != nil {
		c.logger.Warn("risk service unavailable, using local heuristic", "merchant", merchant, "error", lookup.Err)
	} else {
		c.logger.Info("risk service gave no recognized tier, using local heuristic", "merchant", merchant, "risk_level", lookup.Raw)
	}
	metrics.RiskClassifications.WithLabelValues(SourceFallback).Inc()
	return c.fallback(amount)
}

// fallback flags amounts at or above the configured threshold and derives
// the displayed tier from the fixed bands. The two can disagree near the
// threshold when it is configured away from 10000.
func (c *Classifier) fallback(amount decimal.Decimal) Assessment {
	return Assessment{
		Level:    BandFor(amount),
		HighRisk: amount.GreaterThanOrEqual(c.highRiskAmount),
		Source:   SourceFallback,
	}
}

// BandFor maps an amount onto the fixed display bands:
// above 10000 is HIGH, above 1000 is MEDIUM, anything else LOW.
func BandFor(amount decimal.Decimal) models.RiskLevel {
	switch {
	case amount.GreaterThan(bandHigh):
		return models.RiskHigh
	case amount.GreaterThan(bandMedium):
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// ParseLevel recognizes exactly HIGH, MEDIUM and LOW.
func ParseLevel(s string) (models.RiskLevel, bool) {
	switch l := models.RiskLevel(s); l {
	case models.RiskHigh, models.RiskMedium, models.RiskLow:
		return l, true
	default:
		return models.RiskUnknown, false
	}
}
