package verification

import (
	"campusstay/internal/provider"
	"campusstay/pkg/types"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	outcomeAccepted       = "accepted"
	outcomeInvalid        = "invalid"
	outcomeAlreadyDecided = "already_reviewed"
	outcomeFailed         = "failed"
)

// SubmitManual validates the subject's details and evidence, stores both
// documents and writes a pending record. A pending record is overwritten; a
// reviewed record is left alone and ErrAlreadyReviewed is returned.
func (s *Service) SubmitManual(ctx context.Context, actor *types.User, input types.ManualVerificationInput) (*types.VerificationRecord, error) {
	if actor == nil || actor.ID == "" {
		return nil, types.ErrNotAuthorized
	}

	details := input.StudentDetails
	if err := s.validateDetails(&details); err != nil {
		s.metrics.IncSubmission(outcomeInvalid)
		return nil, err
	}

	docs, err := checkDocuments(&input)
	if err != nil {
		s.metrics.IncSubmission(outcomeInvalid)
		return nil, err
	}

	existing, err := s.records.Verification(ctx, actor.ID)
	if err != nil && !errors.Is(err, types.ErrVerificationNotFound) {
		s.metrics.IncSubmission(outcomeFailed)
		return nil, fmt.Errorf("failed to load existing verification: %w", err)
	}
	if existing != nil && existing.Status.Terminal() {
		s.metrics.IncSubmission(outcomeAlreadyDecided)
		return nil, types.ErrAlreadyReviewed
	}
	if existing != nil {
		if _, err := existing.State(); err != nil {
			s.metrics.IncSubmission(outcomeFailed)
			return nil, err
		}
	}

	now := s.now()

	stored, err := s.storeDocuments(ctx, actor.ID, docs, now)
	if err != nil {
		s.metrics.IncSubmission(outcomeFailed)
		return nil, err
	}

	var record *types.VerificationRecord
	var superseded []string
	if existing == nil {
		record = types.NewPendingVerification(actor.ID, details, stored, now)
		err = s.records.CreateVerification(ctx, record)
	} else {
		expectedVersion := existing.Version
		superseded = existing.Documents.StorageKeys()
		record = existing
		if err = record.Resubmit(details, stored, now); err == nil {
			err = s.records.UpdateVerification(ctx, record, expectedVersion)
		}
	}
	if err != nil {
		s.discardDocuments(ctx, actor.ID, stored.StorageKeys())
		s.metrics.IncSubmission(outcomeFailed)
		if errors.Is(err, types.ErrAlreadyReviewed) || errors.Is(err, types.ErrVersionConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save verification: %w", err)
	}

	s.discardDocuments(ctx, actor.ID, superseded)
	s.metrics.IncSubmission(outcomeAccepted)

	s.logger.WithField("user_id", actor.ID).
		WithField("university", details.UniversityName).
		Info("verification submitted for review")

	return record, nil
}

func (s *Service) storeDocuments(ctx context.Context, userID string, docs []checkedDocument, now time.Time) (types.EvidenceDocuments, error) {
	stored := make(types.EvidenceDocuments, 0, len(docs))
	for _, doc := range docs {
		key := fmt.Sprintf("verifications/%s/%s-%s%s", userID, s.newID(), doc.kind, doc.extension)

		err := s.documents.PutDocument(ctx, key, doc.mimeType, doc.content)
		if err != nil {
			s.discardDocuments(ctx, userID, stored.StorageKeys())
			return nil, fmt.Errorf("failed to store %s: %w", strings.ToLower(doc.kind.Label()), err)
		}

		stored = append(stored, types.EvidenceDocument{
			Kind:       doc.kind,
			FileName:   doc.fileName,
			MimeType:   doc.mimeType,
			SizeBytes:  int64(len(doc.content)),
			StorageKey: key,
			UploadedAt: now,
		})
	}

	return stored, nil
}

// discardDocuments deletes blobs that no record references. Failures leave
// orphaned objects behind and are only logged.
func (s *Service) discardDocuments(ctx context.Context, userID string, keys []string) {
	for _, key := range keys {
		if err := s.documents.DeleteDocument(ctx, key); err != nil {
			s.logger.WithError(err).
				WithField("user_id", userID).
				WithField("storage_key", key).
				Error("failed to delete verification document")
		}
	}
}

// VerifyInstantly asks the provider whether the actor is a student at
// universityName. Success marks the user as verified through the instant
// path. The manual record is never touched.
func (s *Service) VerifyInstantly(ctx context.Context, actor *types.User, universityName string) error {
	if actor == nil || actor.ID == "" {
		return types.ErrNotAuthorized
	}

	universityName = strings.TrimSpace(universityName)
	if universityName == "" {
		return types.ErrUniversityRequired
	}

	if s.instant == nil {
		s.metrics.IncInstant("unavailable")
		return fmt.Errorf("%w: %w", types.ErrInstantVerificationFailed, types.ErrProviderUnavailable)
	}

	start := time.Now()
	err := s.instant.Verify(ctx, types.InstantVerificationRequest{
		FirstName:    actor.FirstName(),
		LastName:     actor.LastName(),
		Email:        actor.EmailAddress(),
		Organization: universityName,
	})
	if err != nil {
		category := provider.Category(err)
		s.metrics.ObserveInstant("failed_"+string(category), start)
		s.logger.WithError(err).
			WithField("user_id", actor.ID).
			WithField("category", category).
			WithField("university", universityName).
			Warn("instant verification failed")
		return fmt.Errorf("%w: %w", types.ErrInstantVerificationFailed, err)
	}
	s.metrics.ObserveInstant("verified", start)

	err = s.users.MarkSheerIDVerified(ctx, actor.ID, s.now())
	if err != nil {
		return fmt.Errorf("failed to record instant verification: %w", err)
	}

	return nil
}

// Verification returns the subject's own record.
func (s *Service) Verification(ctx context.Context, userID string) (*types.VerificationRecord, error) {
	return s.records.Verification(ctx, userID)
}
