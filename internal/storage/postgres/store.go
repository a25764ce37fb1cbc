package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/transaction-risk-intake/internal/interfaces" // interface DurableTable
	"github.com/sheikh-saqib/transaction-risk-intake/internal/models"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/traces"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the embedded schema migrations to db.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

// MigrateCommand runs an arbitrary goose command (up, down, status, ...)
// against the embedded migrations.
func MigrateCommand(ctx context.Context, db *sql.DB, command string, args ...string) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.RunContext(ctx, command, db, "migrations", args...)
}

// PostgresTable is a DurableTable over the transactions table.
type PostgresTable struct {
	db *sql.DB
}

func NewPostgresTable(db *sql.DB) *PostgresTable {
	return &PostgresTable{
		db: db,
	}
}

func (p *PostgresTable) Name() string { return "transactions" }

func (p *PostgresTable) Put(ctx context.Context, rec models.TransactionRecord) (err error) {
	ctx, end := traces.Start(ctx, "postgres.Put", traces.Table(p.Name()))
	defer func() { end(err) }()

	const query = `INSERT INTO transactions (id, created_at, user_identity, amount, currency, merchant, risk_level, high_risk)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = p.db.ExecContext(ctx, query,
		rec.ID, rec.Timestamp, rec.User, rec.Amount.String(), rec.Currency, rec.Merchant, string(rec.RiskLevel), rec.HighRisk)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", rec.ID, err)
	}
	return nil
}

func (p *PostgresTable) Scan(ctx context.Context, limit int) (records []models.TransactionRecord, err error) {
	ctx, end := traces.Start(ctx, "postgres.Scan", traces.Table(p.Name()))
	defer func() { end(err) }()

	const query = `SELECT id, created_at, user_identity, amount, currency, merchant, risk_level, high_risk
	FROM transactions ORDER BY created_at DESC LIMIT $1`

	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec       models.TransactionRecord
			amount    string
			riskLevel string
		)
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.User, &amount, &rec.Currency, &rec.Merchant, &riskLevel, &rec.HighRisk); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount for %s: %w", rec.ID, err)
		}
		rec.RiskLevel = models.RiskLevel(riskLevel)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

var _ interfaces.DurableTable = (*PostgresTable)(nil)
