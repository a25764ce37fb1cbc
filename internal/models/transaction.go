package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// AmountNumber renders an amount as a bare JSON number. shopspring/decimal
// quotes amounts by default; the frontend and the risk service expect numbers.
func AmountNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// RiskLevel is the coarse fraud classification shown on a record.
type RiskLevel string

const (
	RiskLow     RiskLevel = "LOW"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
	RiskUnknown RiskLevel = "UNKNOWN"
)

// TransactionRequest is what a caller submits. Risk fields are computed server-side.
type TransactionRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Merchant string          `json:"merchant"`
}

// TransactionRecord is a classified transaction as persisted by a TransactionStore
type TransactionRecord struct {
	ID        string          `json:"id"`        // uuid v4
	Timestamp int64           `json:"timestamp"` // seconds since epoch
	User      string          `json:"user"`      // flattened caller identity
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Merchant  string          `json:"merchant"`
	RiskLevel RiskLevel       `json:"risk_level"`
	HighRisk  bool            `json:"high_risk"`
}

// MarshalJSON writes amount as a JSON number.
func (r TransactionRecord) MarshalJSON() ([]byte, error) {
	type record TransactionRecord
	return json.Marshal(struct {
		record
		Amount json.Number `json:"amount"`
	}{record(r), AmountNumber(r.Amount)})
}
