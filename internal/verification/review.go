package verification

import (
	"campusstay/pkg/types"
	"context"
	"errors"
	"fmt"
	"strings"
)

// List returns the records matching filter in insertion order, each with the
// subject's profile summary.
func (s *Service) List(ctx context.Context, actor *types.User, filter types.VerificationFilter) ([]types.VerificationListItem, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	records, err := s.records.Verifications(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}

	subjects, err := s.subjects(ctx, records)
	if err != nil {
		return nil, err
	}

	items := make([]types.VerificationListItem, 0, len(records))
	pending := 0
	for _, record := range records {
		if record.Status == types.VerificationStatusPending {
			pending++
		}
		items = append(items, types.VerificationListItem{
			Record:  record,
			Subject: subjects[record.UserID],
		})
	}

	if filter == types.VerificationFilterAll || filter == types.VerificationFilterPending {
		s.metrics.SetPending(pending)
	}

	return items, nil
}

// Approve moves a pending record to verified and sets the subject's
// student flag. Empty notes are recorded as the default approval note.
func (s *Service) Approve(ctx context.Context, actor *types.User, userID, notes string) (*types.VerificationListItem, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	record, err := s.decide(ctx, userID, func(r *types.VerificationRecord) error {
		return r.Approve(actor.ID, notes, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncReview("approved")

	err = s.users.MarkStudentVerified(ctx, userID, s.now())
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to set student verified flag after approval")
	}

	s.logger.WithField("user_id", userID).WithField("reviewer_id", actor.ID).Info("verification approved")

	return s.listItem(ctx, record), nil
}

// Reject moves a pending record to rejected. notes is required and checked
// before the record is read.
func (s *Service) Reject(ctx context.Context, actor *types.User, userID, notes string) (*types.VerificationListItem, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	if strings.TrimSpace(notes) == "" {
		return nil, types.ErrRejectionReasonRequired
	}

	record, err := s.decide(ctx, userID, func(r *types.VerificationRecord) error {
		return r.Reject(actor.ID, notes, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncReview("rejected")

	s.logger.WithField("user_id", userID).WithField("reviewer_id", actor.ID).Info("verification rejected")

	return s.listItem(ctx, record), nil
}

// decide loads the record, applies the transition and writes it back if the
// version is unchanged.
func (s *Service) decide(ctx context.Context, userID string, transition func(*types.VerificationRecord) error) (*types.VerificationRecord, error) {
	record, err := s.records.Verification(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrVerificationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load verification: %w", err)
	}

	if _, err := record.State(); err != nil {
		return nil, err
	}

	expectedVersion := record.Version
	if err := transition(record); err != nil {
		return nil, err
	}

	err = s.records.UpdateVerification(ctx, record, expectedVersion)
	if err != nil {
		if errors.Is(err, types.ErrVersionConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save review decision: %w", err)
	}

	return record, nil
}

// Document opens the stored evidence of the given kind for inspection.
func (s *Service) Document(ctx context.Context, actor *types.User, userID string, kind types.DocumentKind) (*types.DocumentContent, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	record, err := s.records.Verification(ctx, userID)
	if err != nil {
		return nil, err
	}

	doc := record.Documents.ByKind(kind)
	if doc == nil || doc.StorageKey == "" {
		return nil, types.ErrDocumentNotFound
	}

	content, err := s.documents.OpenDocument(ctx, doc.StorageKey)
	if err != nil {
		return nil, err
	}

	if doc.FileName != "" {
		content.FileName = doc.FileName
	}
	if doc.MimeType != "" {
		content.ContentType = doc.MimeType
	}

	return content, nil
}

// listItem runs after the decision is committed, so a failed profile lookup
// only degrades the subject to its user ID.
func (s *Service) listItem(ctx context.Context, record *types.VerificationRecord) *types.VerificationListItem {
	item := &types.VerificationListItem{
		Record:  record,
		Subject: types.UserSummary{ID: record.UserID, Name: record.UserID},
	}

	subjects, err := s.subjects(ctx, []*types.VerificationRecord{record})
	if err != nil {
		s.logger.WithError(err).WithField("user_id", record.UserID).Warn("failed to load subject profile for review notice")
		return item
	}

	item.Subject = subjects[record.UserID]
	return item
}

// subjects resolves profile summaries for records. A subject without a
// profile row is shown by user ID.
func (s *Service) subjects(ctx context.Context, records []*types.VerificationRecord) (map[string]types.UserSummary, error) {
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.UserID)
	}

	users, err := s.users.UsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load verification subjects: %w", err)
	}

	summaries := make(map[string]types.UserSummary, len(ids))
	for _, id := range ids {
		summaries[id] = types.UserSummary{ID: id, Name: id}
	}
	for _, user := range users {
		summaries[user.ID] = user.Summary()
	}

	return summaries, nil
}
