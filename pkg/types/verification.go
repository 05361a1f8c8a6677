package types

import (
	"fmt"
	"strings"
	"time"
)

type VerificationStatus string

// There is no "none" status. A user without a record has never submitted.
const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusVerified VerificationStatus = "verified"
	VerificationStatusRejected VerificationStatus = "rejected"
)

func (s VerificationStatus) Terminal() bool {
	return s == VerificationStatusVerified || s == VerificationStatusRejected
}

func (s VerificationStatus) Label() string {
	switch s {
	case VerificationStatusPending:
		return "Pending Review"
	case VerificationStatusVerified:
		return "Verified"
	case VerificationStatusRejected:
		return "Rejected"
	default:
		return "Not Submitted"
	}
}

// DefaultApprovalNotes is recorded when a reviewer approves without a note.
const DefaultApprovalNotes = "Approved by admin"

type StudentDetails struct {
	UniversityName  string `db:"university_name" form:"university_name" validate:"required,max=200"`
	StudentIDNumber string `db:"student_id_number" form:"student_id_number" validate:"required,max=64"`
	GraduationYear  string `db:"graduation_year" form:"graduation_year" validate:"required,max=16"`
	Major           string `db:"major" form:"major" validate:"required,max=200"`
}

func (d *StudentDetails) Trim() {
	d.UniversityName = strings.TrimSpace(d.UniversityName)
	d.StudentIDNumber = strings.TrimSpace(d.StudentIDNumber)
	d.GraduationYear = strings.TrimSpace(d.GraduationYear)
	d.Major = strings.TrimSpace(d.Major)
}

// VerificationRecord is the persisted row for a user's manual verification.
// Version is bumped on every write and checked on update.
type VerificationRecord struct {
	UserID string             `db:"user_id"`
	Status VerificationStatus `db:"status"`

	StudentDetails

	Documents   EvidenceDocuments `db:"documents"` // jsonb array
	SubmittedAt time.Time         `db:"submitted_at"`
	ReviewedAt  *time.Time        `db:"reviewed_at"`
	ReviewedBy  *string           `db:"reviewed_by"`
	ReviewNotes *string           `db:"review_notes"`
	Version     int64             `db:"version"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
}

// NewPendingVerification builds the record written on the none -> pending transition.
func NewPendingVerification(userID string, details StudentDetails, documents EvidenceDocuments, now time.Time) *VerificationRecord {
	return &VerificationRecord{
		UserID:         userID,
		Status:         VerificationStatusPending,
		StudentDetails: details,
		Documents:      documents,
		SubmittedAt:    now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Resubmit replaces the details and documents of a pending record.
func (r *VerificationRecord) Resubmit(details StudentDetails, documents EvidenceDocuments, now time.Time) error {
	if r.Status != VerificationStatusPending {
		return ErrAlreadyReviewed
	}

	r.StudentDetails = details
	r.Documents = documents
	r.SubmittedAt = now
	r.UpdatedAt = now
	return nil
}

// Approve moves a pending record to verified. Empty notes fall back to
// DefaultApprovalNotes.
func (r *VerificationRecord) Approve(reviewerID, notes string, now time.Time) error {
	if r.Status != VerificationStatusPending {
		return ErrNotPending
	}

	notes = strings.TrimSpace(notes)
	if notes == "" {
		notes = DefaultApprovalNotes
	}

	r.markReviewed(VerificationStatusVerified, reviewerID, notes, now)
	return nil
}

// Reject moves a pending record to rejected. A reason is mandatory.
func (r *VerificationRecord) Reject(reviewerID, notes string, now time.Time) error {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return ErrRejectionReasonRequired
	}

	if r.Status != VerificationStatusPending {
		return ErrNotPending
	}

	r.markReviewed(VerificationStatusRejected, reviewerID, notes, now)
	return nil
}

func (r *VerificationRecord) markReviewed(status VerificationStatus, reviewerID, notes string, now time.Time) {
	reviewedAt := now
	r.Status = status
	r.ReviewedAt = &reviewedAt
	r.ReviewNotes = &notes
	if reviewerID != "" {
		r.ReviewedBy = &reviewerID
	}
	r.UpdatedAt = now
}

func (r *VerificationRecord) Notes() string {
	if r == nil || r.ReviewNotes == nil {
		return ""
	}
	return *r.ReviewNotes
}

// Clone returns a deep copy so callers can't mutate stored state.
func (r *VerificationRecord) Clone() *VerificationRecord {
	if r == nil {
		return nil
	}

	out := *r
	out.Documents = append(EvidenceDocuments(nil), r.Documents...)
	if r.ReviewedAt != nil {
		t := *r.ReviewedAt
		out.ReviewedAt = &t
	}
	if r.ReviewedBy != nil {
		s := *r.ReviewedBy
		out.ReviewedBy = &s
	}
	if r.ReviewNotes != nil {
		s := *r.ReviewNotes
		out.ReviewNotes = &s
	}
	return &out
}

// VerificationState is the typed view of a record. Each variant carries only
// the fields that are legal in that state.
type VerificationState interface {
	Status() VerificationStatus
	isVerificationState()
}

type PendingVerification struct {
	Details     StudentDetails
	Documents   EvidenceDocuments
	SubmittedAt time.Time
}

type VerifiedVerification struct {
	PendingVerification
	ReviewedAt time.Time
	ReviewedBy string
	Notes      string
}

type RejectedVerification struct {
	PendingVerification
	ReviewedAt time.Time
	ReviewedBy string
	Notes      string
}

func (PendingVerification) Status() VerificationStatus  { return VerificationStatusPending }
func (VerifiedVerification) Status() VerificationStatus { return VerificationStatusVerified }
func (RejectedVerification) Status() VerificationStatus { return VerificationStatusRejected }

func (PendingVerification) isVerificationState()  {}
func (VerifiedVerification) isVerificationState() {}
func (RejectedVerification) isVerificationState() {}

// State validates the row against its status and returns the matching variant.
func (r *VerificationRecord) State() (VerificationState, error) {
	pending := PendingVerification{
		Details:     r.StudentDetails,
		Documents:   r.Documents,
		SubmittedAt: r.SubmittedAt,
	}
	if r.SubmittedAt.IsZero() || !r.Documents.Complete() {
		return nil, fmt.Errorf("%w: user %s has incomplete submission", ErrCorruptVerification, r.UserID)
	}

	switch r.Status {
	case VerificationStatusPending:
		if r.ReviewedAt != nil {
			return nil, fmt.Errorf("%w: pending record for user %s has a review time", ErrCorruptVerification, r.UserID)
		}
		return pending, nil
	case VerificationStatusVerified:
		if r.ReviewedAt == nil {
			return nil, fmt.Errorf("%w: verified record for user %s has no review time", ErrCorruptVerification, r.UserID)
		}
		return VerifiedVerification{
			PendingVerification: pending,
			ReviewedAt:          *r.ReviewedAt,
			ReviewedBy:          derefString(r.ReviewedBy),
			Notes:               r.Notes(),
		}, nil
	case VerificationStatusRejected:
		if r.ReviewedAt == nil || strings.TrimSpace(r.Notes()) == "" {
			return nil, fmt.Errorf("%w: rejected record for user %s lacks review time or reason", ErrCorruptVerification, r.UserID)
		}
		return RejectedVerification{
			PendingVerification: pending,
			ReviewedAt:          *r.ReviewedAt,
			ReviewedBy:          derefString(r.ReviewedBy),
			Notes:               r.Notes(),
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown status %q for user %s", ErrCorruptVerification, r.Status, r.UserID)
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// VerificationFilter selects records for the review queue.
type VerificationFilter string

const (
	VerificationFilterAll      VerificationFilter = "all"
	VerificationFilterPending  VerificationFilter = VerificationFilter(VerificationStatusPending)
	VerificationFilterVerified VerificationFilter = VerificationFilter(VerificationStatusVerified)
	VerificationFilterRejected VerificationFilter = VerificationFilter(VerificationStatusRejected)
)

var VerificationFilters = []VerificationFilter{
	VerificationFilterAll,
	VerificationFilterPending,
	VerificationFilterVerified,
	VerificationFilterRejected,
}

// ParseVerificationFilter accepts the four filter names; empty means all.
func ParseVerificationFilter(v string) (VerificationFilter, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return VerificationFilterAll, nil
	}

	for _, f := range VerificationFilters {
		if VerificationFilter(v) == f {
			return f, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidFilter, v)
}

func (f VerificationFilter) Matches(status VerificationStatus) bool {
	return f == VerificationFilterAll || VerificationStatus(f) == status
}

// VerificationListItem is a record enriched with the subject's profile.
type VerificationListItem struct {
	Record  *VerificationRecord
	Subject UserSummary
}

// ManualVerificationInput is what the subject submits on the manual path.
type ManualVerificationInput struct {
	StudentDetails
	StudentIDDocument *DocumentUpload
	EnrollmentLetter  *DocumentUpload
}

func (in *ManualVerificationInput) Upload(kind DocumentKind) *DocumentUpload {
	switch kind {
	case DocumentKindStudentID:
		return in.StudentIDDocument
	case DocumentKindEnrollmentLetter:
		return in.EnrollmentLetter
	}
	return nil
}

// InstantVerificationRequest is sent to the third-party verification provider.
type InstantVerificationRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Organization string `json:"organization"`
}
