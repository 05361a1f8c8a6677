package seed

import (
	"campusstay/pkg/types"
	"context"
	"errors"
	"fmt"
)

// Submitter is the manual submission entry point of the verification service.
type Submitter interface {
	SubmitManual(ctx context.Context, actor *types.User, input types.ManualVerificationInput) (*types.VerificationRecord, error)
}

var fakeEnrollments = []types.StudentDetails{
	{UniversityName: "Stanford University", StudentIDNumber: "06512345", GraduationYear: "2027", Major: "Computer Science"},
	{UniversityName: "Massachusetts Institute of Technology", StudentIDNumber: "920011223", GraduationYear: "2026", Major: "Mechanical Engineering"},
	{UniversityName: "University of California, Berkeley", StudentIDNumber: "3034567890", GraduationYear: "2028", Major: "Economics"},
	{UniversityName: "University of Michigan", StudentIDNumber: "UM48213377", GraduationYear: "2026", Major: "Nursing"},
	{UniversityName: "The University of Texas at Austin", StudentIDNumber: "EID-gar5521", GraduationYear: "2029", Major: "Architecture"},
}

// Smallest payloads that still sniff as the allowed document types.
var (
	fakeIDCard = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	fakeLetter = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
)

// SeedPendingVerifications submits a pending verification for every demo
// student that has none yet. Students whose record was already reviewed
// are skipped.
func SeedPendingVerifications(ctx context.Context, users UserStore, submitter Submitter) error {
	seeded, skipped := 0, 0
	for i, userID := range fakeStudentIDs() {
		user, err := users.User(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to fetch fake user %s: %w", userID, err)
		}

		input := types.ManualVerificationInput{
			StudentDetails:    fakeEnrollments[i%len(fakeEnrollments)],
			StudentIDDocument: &types.DocumentUpload{FileName: "student-id.png", Content: fakeIDCard},
			EnrollmentLetter:  &types.DocumentUpload{FileName: "enrollment-letter.pdf", Content: fakeLetter},
		}

		_, err = submitter.SubmitManual(ctx, user, input)
		if err != nil {
			if errors.Is(err, types.ErrAlreadyReviewed) {
				skipped++
				continue
			}
			return fmt.Errorf("failed to submit verification for fake user %s: %w", userID, err)
		}
		seeded++
	}

	fmt.Printf("Fake verifications seeded: %d submitted, %d already reviewed\n", seeded, skipped)
	return nil
}
