package server

import (
	"campusstay/pkg/types"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

const (
	msgMissingFields     = "Please fill in all required fields"
	msgMissingDocuments  = "Please upload both your student ID and enrollment letter"
	msgInvalidDocument   = "Documents must be JPEG, PNG, WebP or PDF files up to 10 MB"
	msgSubmitFailed      = "Failed to submit verification"
	msgSubmitted         = "Verification submitted! We'll review your documents shortly."
	msgAlreadyReviewed   = "Your verification has already been reviewed."
	msgInstantVerified   = "You're verified as a student!"
	msgInstantFailed     = "Instant verification is unavailable right now. Please verify manually by uploading your documents."
	msgUniversityMissing = "Please enter your university name to verify instantly."
)

// multipart bodies carry two documents plus a few short fields
const maxVerificationBodyBytes = 2*types.MaxDocumentSizeBytes + 1<<20

func (s *Service) handleGetVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := s.userFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("user not found in context")
		s.internalServerError(w)
		return
	}

	data := newVerificationFormData(r, user)

	record, err := s.verifications.Verification(ctx, user.ID)
	switch {
	case err == nil:
		data.Details = record.StudentDetails
		data.ExistingStatus = record.Status
		data.HasPendingRecord = record.Status == types.VerificationStatusPending
		data.CanSubmit = !record.Status.Terminal()
		data.InstantUniversity = record.UniversityName
	case errors.Is(err, types.ErrVerificationNotFound):
	default:
		s.logger.WithError(err).WithField("user_id", user.ID).Error("failed to load verification for form")
		s.internalServerError(w)
		return
	}

	if err := s.renderTemplate(w, r, "page.verification", data); err != nil {
		s.logger.WithError(err).Error("failed to render verification page")
		s.internalServerError(w)
		return
	}
}

func newVerificationFormData(r *http.Request, user *types.User) *types.VerificationFormPageData {
	accepted := make([]string, 0, len(types.AllowedDocumentMimeTypes))
	for mimeType := range types.AllowedDocumentMimeTypes {
		accepted = append(accepted, mimeType)
	}
	sort.Strings(accepted)

	docs := make([]types.DocumentRequirement, 0, len(types.RequiredDocumentKinds))
	for _, kind := range types.RequiredDocumentKinds {
		docs = append(docs, types.DocumentRequirement{Kind: kind, Label: kind.Label(), Field: string(kind)})
	}

	return &types.VerificationFormPageData{
		BasePageData:      flashPageData("Student Verification", r),
		FieldErrors:       map[string]string{},
		Documents:         docs,
		AcceptedTypes:     strings.Join(accepted, ","),
		MaxDocumentSizeMB: types.MaxDocumentSizeBytes >> 20,
		CanSubmit:         true,
		StudentVerified:   user.StudentVerified,
	}
}

func (s *Service) handlePostVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := s.userFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("user not found in context")
		s.internalServerError(w)
		return
	}

	data := newVerificationFormData(r, user)
	data.Notice = ""
	data.Error = ""

	r.Body = http.MaxBytesReader(w, r.Body, maxVerificationBodyBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			data.Error = msgInvalidDocument
			s.renderVerificationForm(w, r, http.StatusRequestEntityTooLarge, data)
			return
		}
		if errors.Is(err, http.ErrNotMultipart) {
			data.Error = msgMissingDocuments
			s.renderVerificationForm(w, r, http.StatusUnprocessableEntity, data)
			return
		}
		s.logger.WithError(err).WithField("user_id", user.ID).Error("failed to parse verification form")
		data.Error = msgSubmitFailed
		s.renderVerificationForm(w, r, http.StatusBadRequest, data)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	var input types.ManualVerificationInput
	if err := decoder.Decode(&input.StudentDetails, r.PostForm); err != nil {
		s.logger.WithError(err).Error("failed to decode verification form")
		s.internalServerError(w)
		return
	}
	data.Details = input.StudentDetails
	data.InstantUniversity = strings.TrimSpace(input.UniversityName)

	for _, kind := range types.RequiredDocumentKinds {
		upload, err := readUpload(r, string(kind))
		if err != nil {
			s.logger.WithError(err).WithField("field", kind).Error("failed to read uploaded document")
			data.Error = msgSubmitFailed
			s.renderVerificationForm(w, r, http.StatusBadRequest, data)
			return
		}

		switch kind {
		case types.DocumentKindStudentID:
			input.StudentIDDocument = upload
		case types.DocumentKindEnrollmentLetter:
			input.EnrollmentLetter = upload
		}
	}

	_, err = s.verifications.SubmitManual(ctx, user, input)
	if err != nil {
		data.FieldErrors = types.FieldErrors(err)
		switch {
		case errors.Is(err, types.ErrMissingFields):
			data.Error = msgMissingFields
		case errors.Is(err, types.ErrMissingDocuments):
			data.Error = msgMissingDocuments
		case errors.Is(err, types.ErrInvalidDocument):
			data.Error = msgInvalidDocument
		case errors.Is(err, types.ErrAlreadyReviewed):
			s.redirectWithFlash(w, r, "/profile", "error", msgAlreadyReviewed)
			return
		default:
			s.logger.WithError(err).WithField("user_id", user.ID).Error("failed to submit verification")
			s.redirectWithFlash(w, r, "/verification", "error", msgSubmitFailed)
			return
		}

		s.renderVerificationForm(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	s.redirectWithFlash(w, r, "/profile", "notice", msgSubmitted)
}

// readUpload returns nil when the field was left empty.
func readUpload(r *http.Request, field string) (*types.DocumentUpload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("open upload %s: %w", field, err)
	}
	defer file.Close()

	// One byte past the limit is enough to report the file as too large.
	content, err := io.ReadAll(io.LimitReader(file, types.MaxDocumentSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", field, err)
	}

	return &types.DocumentUpload{FileName: header.Filename, Content: content}, nil
}

func (s *Service) renderVerificationForm(w http.ResponseWriter, r *http.Request, status int, data *types.VerificationFormPageData) {
	if data.FieldErrors == nil {
		data.FieldErrors = map[string]string{}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.renderTemplate(w, r, "page.verification", data); err != nil {
		s.logger.WithError(err).Error("failed to render verification page")
	}
}

func (s *Service) handlePostInstantVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := s.userFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("user not found in context")
		s.internalServerError(w)
		return
	}

	universityName := r.FormValue("university_name")

	err = s.verifications.VerifyInstantly(ctx, user, universityName)
	if err != nil {
		if errors.Is(err, types.ErrUniversityRequired) {
			s.redirectWithFlash(w, r, "/verification", "error", msgUniversityMissing)
			return
		}

		s.logger.WithError(err).WithField("user_id", user.ID).Warn("instant verification did not succeed")
		s.redirectWithFlash(w, r, "/verification", "error", msgInstantFailed)
		return
	}

	s.redirectWithFlash(w, r, "/profile", "notice", msgInstantVerified)
}
