package server

import (
	"campusstay/internal/utils"
	"campusstay/pkg/types"
	"errors"
	"net/http"
)

const displayTimeLayout = "Jan 2, 2006 3:04 PM"

func (s *Service) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := s.userFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("user not found in context")
		s.internalServerError(w)
		return
	}

	data := &types.ProfilePageData{
		BasePageData:    flashPageData("My Profile", r),
		UserID:          user.ID,
		UserEmail:       user.EmailAddress(),
		WelcomeName:     user.DisplayName(),
		IsAdmin:         user.IsAdmin,
		StudentVerified: user.StudentVerified,
		SheerIDVerified: user.SheerIDVerified,
		StatusLabel:     types.VerificationStatus("").Label(),
		CanSubmit:       true,
	}

	record, err := s.verifications.Verification(ctx, user.ID)
	if err != nil && !errors.Is(err, types.ErrVerificationNotFound) {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("failed to fetch verification for profile")
		s.internalServerError(w)
		return
	}

	if record != nil {
		data.HasVerification = true
		data.Verification = record
		data.Status = record.Status
		data.StatusLabel = record.Status.Label()
		data.SubmittedAt = utils.FormatTime(&record.SubmittedAt, displayTimeLayout)
		data.ReviewedAt = utils.FormatTime(record.ReviewedAt, displayTimeLayout)
		data.ReviewNotes = record.Notes()
		data.CanSubmit = !record.Status.Terminal()

		// The user flag is written after the review commits and can lag it.
		if record.Status == types.VerificationStatusVerified {
			data.StudentVerified = true
		}
	}

	err = s.renderTemplate(w, r, "page.profile", data)
	if err != nil {
		s.logger.WithError(err).Error("failed to render profile page")
		s.internalServerError(w)
		return
	}
}
