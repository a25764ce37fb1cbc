package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/transaction-risk-intake/internal/models"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/traces"
)

// DefaultTimeout bounds a single call to the scoring service.
const DefaultTimeout = 5 * time.Second

// maxResponseBytes caps how much of a reply is read.
const maxResponseBytes = 64 << 10

type scoreRequest struct {
	Amount   json.Number `json:"amount"`
	Merchant string      `json:"merchant"`
}

type scoreResponse struct {
	RiskLevel string `json:"risk_level"`
}

// HTTPScorer calls a remote scoring endpoint: POST {amount, merchant},
// reply {risk_level}. One attempt per call, no retries.
type HTTPScorer struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// NewHTTPScorer creates a scorer for url with DefaultTimeout.
func NewHTTPScorer(url string) *HTTPScorer {
	return &HTTPScorer{
		url:     url,
		client:  &http.Client{},
		timeout: DefaultTimeout,
	}
}

// WithTimeout overrides the per-call timeout.
func (s *HTTPScorer) WithTimeout(d time.Duration) *HTTPScorer {
	s.timeout = d
	return s
}

// WithHTTPClient swaps the underlying HTTP client.
func (s *HTTPScorer) WithHTTPClient(c *http.Client) *HTTPScorer {
	s.client = c
	return s
}

// Score never returns an error directly; every failure becomes an unknown tier.
func (s *HTTPScorer) Score(ctx context.Context, amount decimal.Decimal, merchant string) TierLookup {
	ctx, end := traces.Start(ctx, "risk.Score", traces.Transaction(amount, merchant)...)

	level, err := s.call(ctx, amount, merchant)
	end(err)
	if err != nil {
		return TierLookup{Level: models.RiskUnknown, Err: err}
	}

	parsed, ok := ParseLevel(level)
	return TierLookup{Level: parsed, Raw: level, Known: ok}
}

func (s *HTTPScorer) call(ctx context.Context, amount decimal.Decimal, merchant string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := json.Marshal(scoreRequest{Amount: models.AmountNumber(amount), Merchant: merchant})
	if err != nil {
		return "", fmt.Errorf("encode risk request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build risk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call risk service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("risk service returned status %d", resp.StatusCode)
	}

	var out scoreResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode risk response: %w", err)
	}
	return out.RiskLevel, nil
}
