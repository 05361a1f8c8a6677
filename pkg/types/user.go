package types

import (
	"strings"
	"time"
)

type User struct {
	ID                string     `db:"id"`
	Email             *string    `db:"email"`
	GivenName         *string    `db:"given_name"`
	FamilyName        *string    `db:"family_name"`
	IsAdmin           bool       `db:"is_admin"`
	StudentVerified   bool       `db:"student_verified"`
	SheerIDVerified   bool       `db:"sheerid_verified"`
	SheerIDVerifiedAt *time.Time `db:"sheerid_verified_at"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

// DisplayName falls back from full name to the local part of the email
// address, and finally to the user ID.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}

	parts := make([]string, 0, 2)
	if u.GivenName != nil && strings.TrimSpace(*u.GivenName) != "" {
		parts = append(parts, strings.TrimSpace(*u.GivenName))
	}
	if u.FamilyName != nil && strings.TrimSpace(*u.FamilyName) != "" {
		parts = append(parts, strings.TrimSpace(*u.FamilyName))
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}

	if email := u.EmailAddress(); email != "" {
		if at := strings.Index(email, "@"); at > 0 {
			return email[:at]
		}
		return email
	}

	return u.ID
}

func (u *User) EmailAddress() string {
	if u == nil || u.Email == nil {
		return ""
	}
	return strings.TrimSpace(*u.Email)
}

func (u *User) FirstName() string {
	if u == nil || u.GivenName == nil {
		return ""
	}
	return strings.TrimSpace(*u.GivenName)
}

func (u *User) LastName() string {
	if u == nil || u.FamilyName == nil {
		return ""
	}
	return strings.TrimSpace(*u.FamilyName)
}

// UserSummary is the profile slice a reviewer sees next to a verification.
type UserSummary struct {
	ID    string
	Name  string
	Email string
}

func (u *User) Summary() UserSummary {
	if u == nil {
		return UserSummary{}
	}
	return UserSummary{
		ID:    u.ID,
		Name:  u.DisplayName(),
		Email: u.EmailAddress(),
	}
}
