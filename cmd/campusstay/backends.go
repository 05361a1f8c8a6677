package main

import (
	"context"
	"fmt"
	"time"

	"campusstay/internal/db"
	"campusstay/internal/metrics"
	"campusstay/internal/provider"
	"campusstay/internal/storage"
	"campusstay/internal/store"
	"campusstay/internal/verification"
	"campusstay/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

type userRepository interface {
	User(ctx context.Context, userID string) (*types.User, error)
	UsersByIDs(ctx context.Context, userIDs []string) ([]*types.User, error)
	UpsertIdentity(ctx context.Context, userID, email, givenName, familyName string) error
	MarkSheerIDVerified(ctx context.Context, userID string, at time.Time) error
	MarkStudentVerified(ctx context.Context, userID string, at time.Time) error
	SetAdmin(ctx context.Context, userID string, isAdmin bool) error
}

type recordRepository interface {
	verification.RecordRepository
	CountByStatus(ctx context.Context) (map[types.VerificationStatus]int, error)
}

type backends struct {
	pool      *pgxpool.Pool
	users     userRepository
	records   recordRepository
	documents verification.DocumentStorage
}

func (b *backends) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
}

// openBackends picks the record store and document storage named in config.
// awsConfig is only read when documents live in S3.
func openBackends(ctx context.Context, config *types.Config, awsConfig aws.Config, logger *logrus.Logger) (*backends, error) {
	b := new(backends)

	switch config.StoreDriver {
	case types.StoreDriverPostgres:
		pool, err := db.Connect(ctx, config)
		if err != nil {
			return nil, err
		}
		b.pool = pool
		b.users = store.NewUserRepository(pool)
		b.records = store.NewVerificationRepository(pool)
	case types.StoreDriverMemory:
		logger.Warn("using in-memory record store, data is lost on restart")
		b.users = store.NewMemoryUserRepository()
		b.records = store.NewMemoryVerificationRepository()
	default:
		return nil, fmt.Errorf("unknown store driver %q", config.StoreDriver)
	}

	switch config.DocumentStorage {
	case types.DocumentStorageS3:
		b.documents = storage.NewS3Storage(s3.NewFromConfig(awsConfig), config.S3BucketName)
	case types.DocumentStorageMemory:
		logger.Warn("using in-memory document storage, uploads are lost on restart")
		b.documents = storage.NewMemoryStorage()
	default:
		b.Close()
		return nil, fmt.Errorf("unknown document storage %q", config.DocumentStorage)
	}

	return b, nil
}

func (b *backends) verificationService(config *types.Config, logger *logrus.Logger, m *metrics.Metrics) *verification.Service {
	var instant verification.InstantVerifier
	client := provider.NewClient(config.SheerIDBaseURL, config.SheerIDToken, time.Duration(config.SheerIDTimeoutSec)*time.Second)
	if client.Available() {
		instant = client
	} else {
		logger.Warn("SHEERID_BASE_URL not set, instant verification is disabled")
	}

	return verification.New(b.records, b.users, b.documents, instant, logger, verification.WithMetrics(m))
}

// awsConfigFor loads AWS credentials only when a component needs them.
func awsConfigFor(ctx context.Context, config *types.Config) (aws.Config, error) {
	if config.DocumentStorage != types.DocumentStorageS3 {
		return aws.Config{}, nil
	}
	return loadAWSConfig(ctx)
}
