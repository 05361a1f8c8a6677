package seed

import (
	"campusstay/pkg/types"
	"context"
	"fmt"
)

// UserStore is the part of the user repositories the seeders need.
type UserStore interface {
	UpsertIdentity(ctx context.Context, userID, email, givenName, familyName string) error
	SetAdmin(ctx context.Context, userID string, isAdmin bool) error
	User(ctx context.Context, userID string) (*types.User, error)
}

type fakeUserSeed struct {
	ID         string
	Email      string
	GivenName  string
	FamilyName string
	Admin      bool
}

var fakeUsers = []fakeUserSeed{
	{ID: "00000000-0000-0000-0000-00000000a001", Email: "reviewer+seed@campusstay.test", GivenName: "Riley", FamilyName: "Reviewer", Admin: true},
	{ID: "11111111-1111-1111-1111-111111111111", Email: "ava.williams+seed1@stanford.edu", GivenName: "Ava", FamilyName: "Williams"},
	{ID: "22222222-2222-2222-2222-222222222222", Email: "liam.johnson+seed2@mit.edu", GivenName: "Liam", FamilyName: "Johnson"},
	{ID: "33333333-3333-3333-3333-333333333333", Email: "noah.brown+seed3@berkeley.edu", GivenName: "Noah", FamilyName: "Brown"},
	{ID: "44444444-4444-4444-4444-444444444444", Email: "mia.davis+seed4@umich.edu", GivenName: "Mia", FamilyName: "Davis"},
	{ID: "55555555-5555-5555-5555-555555555555", Email: "elijah.garcia+seed5@utexas.edu", GivenName: "Elijah", FamilyName: "Garcia"},
}

// SeedFakeUsers upserts the demo reviewer and students. Running it twice
// leaves the same rows behind.
func SeedFakeUsers(ctx context.Context, users UserStore) error {
	seeded := 0
	for _, fakeUser := range fakeUsers {
		err := users.UpsertIdentity(ctx, fakeUser.ID, fakeUser.Email, fakeUser.GivenName, fakeUser.FamilyName)
		if err != nil {
			return fmt.Errorf("failed to upsert fake user %s: %w", fakeUser.ID, err)
		}

		if err := users.SetAdmin(ctx, fakeUser.ID, fakeUser.Admin); err != nil {
			return fmt.Errorf("failed to set admin flag for fake user %s: %w", fakeUser.ID, err)
		}
		seeded++
	}

	fmt.Printf("Fake users seeded: %d upserted\n", seeded)
	return nil
}

func fakeStudentIDs() []string {
	ids := make([]string, 0, len(fakeUsers))
	for _, user := range fakeUsers {
		if !user.Admin {
			ids = append(ids, user.ID)
		}
	}
	return ids
}
