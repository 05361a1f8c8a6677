package server

import (
	"campusstay/internal/utils"
	"campusstay/pkg/types"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/alexedwards/flow"
)

const reviewQueuePath = "/admin/verifications"

func (s *Service) handleGetReviewQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, err := s.userFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("user not found in context")
		s.internalServerError(w)
		return
	}

	filter, err := types.ParseVerificationFilter(r.URL.Query().Get("status"))
	if err != nil {
		s.redirectWithFlash(w, r, reviewQueuePath, "error", "Unknown status filter.")
		return
	}

	items, err := s.verifications.List(ctx, actor, filter)
	if err != nil {
		s.logger.WithError(err).WithField("filter", filter).Error("failed to list verifications")
		s.internalServerError(w)
		return
	}

	rows := make([]types.ReviewQueueRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, reviewQueueRow(item))
	}

	data := &types.ReviewQueuePageData{
		BasePageData: flashPageData("Student Verifications", r),
		Filter:       filter,
		Tabs:         reviewQueueTabs(filter),
		Rows:         rows,
		Empty:        len(rows) == 0,
	}

	if err := s.renderTemplate(w, r, "page.admin.verifications", data); err != nil {
		s.logger.WithError(err).Error("failed to render review queue")
		s.internalServerError(w)
		return
	}
}

func reviewQueueRow(item types.VerificationListItem) types.ReviewQueueRow {
	record := item.Record

	docs := make([]types.ReviewQueueDocument, 0, len(record.Documents))
	for _, doc := range record.Documents {
		docs = append(docs, types.ReviewQueueDocument{
			Kind:     doc.Kind,
			Label:    doc.Kind.Label(),
			FileName: doc.FileName,
			Href:     fmt.Sprintf("%s/%s/documents/%s", reviewQueuePath, url.PathEscape(record.UserID), doc.Kind),
		})
	}

	return types.ReviewQueueRow{
		UserID:          record.UserID,
		SubjectName:     item.Subject.Name,
		SubjectEmail:    item.Subject.Email,
		UniversityName:  record.UniversityName,
		StudentIDNumber: record.StudentIDNumber,
		GraduationYear:  record.GraduationYear,
		Major:           record.Major,
		Status:          record.Status,
		StatusLabel:     record.Status.Label(),
		SubmittedAt:     utils.FormatTime(&record.SubmittedAt, displayTimeLayout),
		ReviewedAt:      utils.FormatTime(record.ReviewedAt, displayTimeLayout),
		ReviewNotes:     record.Notes(),
		Documents:       docs,
		IsPending:       record.Status == types.VerificationStatusPending,
	}
}

func reviewQueueTabs(active types.VerificationFilter) []types.ReviewQueueFilterTab {
	labels := map[types.VerificationFilter]string{
		types.VerificationFilterAll:      "All",
		types.VerificationFilterPending:  "Pending",
		types.VerificationFilterVerified: "Verified",
		types.VerificationFilterRejected: "Rejected",
	}

	tabs := make([]types.ReviewQueueFilterTab, 0, len(types.VerificationFilters))
	for _, f := range types.VerificationFilters {
		tabs = append(tabs, types.ReviewQueueFilterTab{
			Label:  labels[f],
			Value:  f,
			Href:   reviewQueuePath + "?status=" + string(f),
			Active: f == active,
		})
	}
	return tabs
}

// reviewQueueReturnPath keeps the reviewer on the tab the action was taken from.
func reviewQueueReturnPath(r *http.Request) string {
	filter, err := types.ParseVerificationFilter(r.FormValue("status"))
	if err != nil || filter == types.VerificationFilterAll {
		return reviewQueuePath
	}
	return reviewQueuePath + "?status=" + string(filter)
}

func (s *Service) handlePostApproveVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	returnPath := reviewQueueReturnPath(r)

	actor, err := s.userFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("user not found in context")
		s.internalServerError(w)
		return
	}

	userID := strings.TrimSpace(flow.Param(ctx, "userID"))
	notes := r.FormValue("notes")

	item, err := s.verifications.Approve(ctx, actor, userID, notes)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to approve verification")
		s.redirectWithFlash(w, r, returnPath, "error", reviewErrorMessage(err, "Failed to approve verification"))
		return
	}

	s.redirectWithFlash(w, r, returnPath, "notice", fmt.Sprintf("Verified %s as a student", item.Subject.Name))
}

func (s *Service) handlePostRejectVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	returnPath := reviewQueueReturnPath(r)

	actor, err := s.userFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("user not found in context")
		s.internalServerError(w)
		return
	}

	userID := strings.TrimSpace(flow.Param(ctx, "userID"))
	notes := r.FormValue("notes")

	item, err := s.verifications.Reject(ctx, actor, userID, notes)
	if err != nil {
		if !errors.Is(err, types.ErrRejectionReasonRequired) {
			s.logger.WithError(err).WithField("user_id", userID).Error("failed to reject verification")
		}
		s.redirectWithFlash(w, r, returnPath, "error", reviewErrorMessage(err, "Failed to reject verification"))
		return
	}

	s.redirectWithFlash(w, r, returnPath, "notice", fmt.Sprintf("Rejected verification for %s", item.Subject.Name))
}

func reviewErrorMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, types.ErrRejectionReasonRequired):
		return "Please provide a reason for rejection"
	case errors.Is(err, types.ErrVerificationNotFound):
		return "Verification not found"
	case errors.Is(err, types.ErrNotPending):
		return "This verification has already been reviewed"
	case errors.Is(err, types.ErrVersionConflict):
		return fallback + ". It was changed by someone else, please reload and try again."
	default:
		return fallback
	}
}

func (s *Service) handleGetVerificationDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, err := s.userFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("user not found in context")
		s.internalServerError(w)
		return
	}

	userID := flow.Param(ctx, "userID")
	kind, ok := types.ParseDocumentKind(flow.Param(ctx, "kind"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	doc, err := s.verifications.Document(ctx, actor, userID, kind)
	if err != nil {
		if errors.Is(err, types.ErrVerificationNotFound) || errors.Is(err, types.ErrDocumentNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.WithError(err).WithField("user_id", userID).WithField("kind", kind).Error("failed to open verification document")
		s.internalServerError(w)
		return
	}

	if err := s.streamDocument(w, doc); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to stream verification document")
	}
}
