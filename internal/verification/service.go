package verification

import (
	"campusstay/internal/metrics"
	"campusstay/internal/utils"
	"campusstay/pkg/types"
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// RecordRepository persists one verification record per user.
type RecordRepository interface {
	Verification(ctx context.Context, userID string) (*types.VerificationRecord, error)
	Verifications(ctx context.Context, filter types.VerificationFilter) ([]*types.VerificationRecord, error)
	CreateVerification(ctx context.Context, record *types.VerificationRecord) error
	UpdateVerification(ctx context.Context, record *types.VerificationRecord, expectedVersion int64) error
}

// UserDirectory resolves subject profiles and stores the derived
// verification flags.
type UserDirectory interface {
	UsersByIDs(ctx context.Context, userIDs []string) ([]*types.User, error)
	MarkSheerIDVerified(ctx context.Context, userID string, at time.Time) error
	MarkStudentVerified(ctx context.Context, userID string, at time.Time) error
}

// DocumentStorage holds evidence payloads.
type DocumentStorage interface {
	PutDocument(ctx context.Context, key, contentType string, content []byte) error
	OpenDocument(ctx context.Context, key string) (*types.DocumentContent, error)
	DeleteDocument(ctx context.Context, key string) error
}

// InstantVerifier checks student status with a third-party provider.
type InstantVerifier interface {
	Verify(ctx context.Context, req types.InstantVerificationRequest) error
}

type Service struct {
	records   RecordRepository
	users     UserDirectory
	documents DocumentStorage
	instant   InstantVerifier
	metrics   *metrics.Metrics
	logger    *logrus.Logger
	validate  *validator.Validate

	now   func() time.Time
	newID func() string
}

type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides the generator used for storage key prefixes.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New builds the verification service. instant may be nil, in which case
// instant verification always fails as unavailable.
func New(records RecordRepository, users UserDirectory, documents DocumentStorage, instant InstantVerifier, logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		records:   records,
		users:     users,
		documents: documents,
		instant:   instant,
		logger:    logger,
		validate:  newValidator(),
		now:       time.Now,
		newID:     func() string { return utils.NanoIDSize(12) },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func requireAdmin(actor *types.User) error {
	if actor == nil || !actor.IsAdmin {
		return types.ErrNotAuthorized
	}
	return nil
}
