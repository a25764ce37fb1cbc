package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sheikh-saqib/transaction-risk-intake/internal/identity"
	interfaces "github.com/sheikh-saqib/transaction-risk-intake/internal/interfaces"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/logging"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/metrics"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/models"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/models/events"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/risk"
)

// ErrInvalidRequest wraps validation failures of a submitted transaction.
var ErrInvalidRequest = errors.New("invalid transaction request")

// DefaultPublishTimeout bounds one background event publish.
const DefaultPublishTimeout = 5 * time.Second

// Pipeline orchestrates identity resolution, risk classification and
// persistence for incoming transactions.
type Pipeline struct {
	resolver   *identity.Resolver
	classifier *risk.Classifier
	store      interfaces.TransactionStore // any storage implementation: memory or durable
	publisher  interfaces.EventPublisher   // optional
	topic      string
	pubTimeout time.Duration
	inflight   sync.WaitGroup
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

// NewPipeline wires the three intake components together.
func NewPipeline(resolver *identity.Resolver, classifier *risk.Classifier, store interfaces.TransactionStore, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		resolver:   resolver,
		classifier: classifier,
		store:      store,
		topic:      events.TopicTransactionCreated,
		pubTimeout: DefaultPublishTimeout,
		logger:     logger.With("component", "intake"),
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
}

// WithPublisher enables best-effort transaction_created events on topic.
func (p *Pipeline) WithPublisher(pub interfaces.EventPublisher, topic string) *Pipeline {
	p.publisher = pub
	if topic != "" {
		p.topic = topic
	}
	return p
}

// Validate checks a request before any identity or risk work is done.
func Validate(req models.TransactionRequest) error {
	if !req.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Currency) == "" {
		return fmt.Errorf("%w: currency is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Merchant) == "" {
		return fmt.Errorf("%w: merchant is required", ErrInvalidRequest)
	}
	return nil
}

// CreateTransaction resolves the caller, classifies the transaction, stores
// the resulting record and returns it. Only validation and identity errors
// are returned; risk and storage faults degrade silently.
func (p *Pipeline) CreateTransaction(ctx context.Context, creds identity.Credentials, req models.TransactionRequest) (models.TransactionRecord, error) {
	if err := Validate(req); err != nil {
		return models.TransactionRecord{}, err
	}

	caller, err := p.resolver.Resolve(ctx, creds)
	if err != nil {
		return models.TransactionRecord{}, err
	}

	assessment := p.classifier.Classify(ctx, req.Amount, req.Merchant)

	rec := models.TransactionRecord{
		ID:        p.newID(),
		Timestamp: p.now().Unix(),
		User:      caller.String(),
		Amount:    req.Amount,
		Currency:  req.Currency,
		Merchant:  req.Merchant,
		RiskLevel: assessment.Level,
		HighRisk:  assessment.HighRisk,
	}

	log := logging.L(ctx, p.logger)
	if p.store.Insert(ctx, rec) {
		log.Info("saved transaction to durable store", "id", rec.ID, "risk_level", rec.RiskLevel, "high_risk", rec.HighRisk)
	} else {
		log.Info("stored transaction in local store", "id", rec.ID, "risk_level", rec.RiskLevel, "high_risk", rec.HighRisk)
	}
	metrics.RecordTransaction(string(rec.RiskLevel), rec.HighRisk)

	p.publish(ctx, rec)
	return rec, nil
}

// publish hands the event to a background goroutine so the request never
// waits on the broker. Wait drains the outstanding sends.
func (p *Pipeline) publish(ctx context.Context, rec models.TransactionRecord) {
	if p.publisher == nil {
		return
	}
	ev := events.TransactionCreated{
		TransactionID: rec.ID,
		User:          rec.User,
		Amount:        rec.Amount,
		Currency:      rec.Currency,
		Merchant:      rec.Merchant,
		RiskLevel:     string(rec.RiskLevel),
		HighRisk:      rec.HighRisk,
		OccurredAt:    time.Unix(rec.Timestamp, 0).UTC(),
	}

	// Detached from the request so a finished response does not cancel the send.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.pubTimeout)
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		defer cancel()
		if err := p.publisher.Publish(pubCtx, p.topic, ev); err != nil {
			metrics.EventPublishFailures.Inc()
			logging.L(pubCtx, p.logger).Warn("failed to publish transaction event", "id", rec.ID, "error", err)
		}
	}()
}

// Wait blocks until every event publish started so far has finished.
func (p *Pipeline) Wait() {
	p.inflight.Wait()
}

// ListTransactions returns up to limit recent records. A non-empty filter
// keeps only records belonging to that identity.
func (p *Pipeline) ListTransactions(ctx context.Context, limit int, filter string) []models.TransactionRecord {
	items := p.store.Scan(ctx, limit)
	if filter == "" {
		return items
	}

	filterEmail, filterHasEmail := identity.EmailOf(filter)
	filtered := make([]models.TransactionRecord, 0, len(items))
	for _, it := range items {
		if matchesIdentity(it.User, filter, filterEmail, filterHasEmail) {
			filtered = append(filtered, it)
		}
	}
	return filtered
}

// matchesIdentity compares exactly first, then by embedded email when both
// sides decode as structured identities.
func matchesIdentity(stored, filter, filterEmail string, filterHasEmail bool) bool {
	if stored == "" {
		return false
	}
	if stored == filter {
		return true
	}
	if !filterHasEmail {
		return false
	}
	storedEmail, ok := identity.EmailOf(stored)
	return ok && storedEmail == filterEmail
}

// ClearTransactions empties the store, subject to its safety policy.
func (p *Pipeline) ClearTransactions(ctx context.Context) error {
	return p.store.Clear(ctx)
}

// Durable reports whether records are backed by a durable table.
func (p *Pipeline) Durable() bool {
	return p.store.Durable()
}

// VerifyToken exposes full token verification for debugging.
func (p *Pipeline) VerifyToken(ctx context.Context, token string) (identity.Claims, error) {
	return p.resolver.Verify(ctx, token)
}
