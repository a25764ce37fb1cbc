package events

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/transaction-risk-intake/internal/models"
)

const TopicTransactionCreated = "transaction_created"

// TransactionCreated is published after a record has been stored.
type TransactionCreated struct {
	TransactionID string          `json:"transaction_id"`
	User          string          `json:"user"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Merchant      string          `json:"merchant"`
	RiskLevel     string          `json:"risk_level"`
	HighRisk      bool            `json:"high_risk"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Key partitions events by transaction id.
func (e TransactionCreated) Key() string { return e.TransactionID }

func (e TransactionCreated) MarshalJSON() ([]byte, error) {
	type event TransactionCreated
	return json.Marshal(struct {
		event
		Amount json.Number `json:"amount"`
	}{event(e), models.AmountNumber(e.Amount)})
}
