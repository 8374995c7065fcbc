// Package expense implements the expense lifecycle: submission, owner edits,
// review by managers, and payment tracking by accounting.
//
// Approval moves pending → approved | rejected exactly once. After approval
// only the payment axis moves: pending_payment → paid, or
// pending_payment → pending_attention → paid. Every state guard is applied
// atomically by the Store, so concurrent reviewers cannot both succeed.
package expense

import (
	"context"
	"time"

	"gitlab.com/yelinaung/expense-approvals/internal/logger"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "gitlab.com/yelinaung/expense-approvals/internal/expense"

// Store persists expenses. UpdatePending, DeletePending and Review succeed
// only while the stored expense is pending; SetPaymentStatus only while it
// is approved with payment status pc.From. Otherwise they return an
// apperr.InvalidState error, or apperr.NotFound if the expense is gone.
type Store interface {
	Create(ctx context.Context, e *models.Expense) error
	GetByID(ctx context.Context, id int64) (*models.Expense, error)
	List(ctx context.Context, f models.ExpenseFilter) ([]models.Expense, error)
	UpdatePending(ctx context.Context, e *models.Expense) error
	DeletePending(ctx context.Context, id int64) error
	Review(ctx context.Context, rv models.ExpenseReview) (*models.Expense, error)
	SetPaymentStatus(ctx context.Context, pc models.PaymentChange) (*models.Expense, error)
}

// Hierarchy resolves a subcategory to its category and department.
type Hierarchy interface {
	ResolveAncestry(ctx context.Context, subcategoryID int64) (*models.Ancestry, error)
}

// SupplierLookup finds suppliers.
type SupplierLookup interface {
	GetByID(ctx context.Context, id int64) (*models.Supplier, error)
}

// CreditCardLookup finds credit cards.
type CreditCardLookup interface {
	GetByID(ctx context.Context, id int64) (*models.CreditCard, error)
}

// Extractor reads an amount and a date from a document. A nil result or an
// error both mean "nothing usable"; submission proceeds with manual values.
type Extractor interface {
	ExtractDocument(ctx context.Context, data []byte, mimeType string, kind models.DocumentKind) (*models.DocumentData, error)
}

// BlobStore stores uploaded documents and returns an opaque filename.
type BlobStore interface {
	Save(ctx context.Context, kind models.DocumentKind, originalName string, data []byte) (string, error)
	Remove(ctx context.Context, name string) error
}

// Service implements expense lifecycle operations.
type Service struct {
	store     Store
	hierarchy Hierarchy
	suppliers SupplierLookup
	cards     CreditCardLookup
	extractor Extractor
	blobs     BlobStore
	now       func() time.Time

	tracer      trace.Tracer
	transitions metric.Int64Counter
}

// Option configures optional collaborators.
type Option func(*Service)

// WithExtractor enables document pre-fill.
func WithExtractor(x Extractor) Option {
	return func(s *Service) { s.extractor = x }
}

// WithBlobStore enables document uploads.
func WithBlobStore(b BlobStore) Option {
	return func(s *Service) { s.blobs = b }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service.
func NewService(store Store, hierarchy Hierarchy, suppliers SupplierLookup, cards CreditCardLookup, opts ...Option) *Service {
	s := &Service{
		store:     store,
		hierarchy: hierarchy,
		suppliers: suppliers,
		cards:     cards,
		now:       time.Now,
		tracer:    otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}

	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"expense.transitions",
		metric.WithDescription("Expense lifecycle transitions by from/to state"),
	)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to create transition counter")
		counter, _ = noop.NewMeterProvider().Meter(instrumentationName).Int64Counter("expense.transitions")
	}
	s.transitions = counter

	return s
}
