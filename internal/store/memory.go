package store

import (
	"campusstay/pkg/types"
	"context"
	"sync"
	"time"
)

// MemoryVerificationRepository is the in-process record store used for local
// development (STORE_DRIVER=memory) and tests. It keeps insertion order and
// applies the same version checks as the Postgres repository.
type MemoryVerificationRepository struct {
	mu      sync.RWMutex
	order   []string
	records map[string]*types.VerificationRecord
}

func NewMemoryVerificationRepository() *MemoryVerificationRepository {
	return &MemoryVerificationRepository{records: make(map[string]*types.VerificationRecord)}
}

func (r *MemoryVerificationRepository) Verification(_ context.Context, userID string) (*types.VerificationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[userID]
	if !ok {
		return nil, types.ErrVerificationNotFound
	}
	return record.Clone(), nil
}

func (r *MemoryVerificationRepository) Verifications(_ context.Context, filter types.VerificationFilter) ([]*types.VerificationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.VerificationRecord, 0, len(r.order))
	for _, userID := range r.order {
		record := r.records[userID]
		if filter.Matches(record.Status) {
			out = append(out, record.Clone())
		}
	}
	return out, nil
}

func (r *MemoryVerificationRepository) CreateVerification(_ context.Context, record *types.VerificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[record.UserID]; exists {
		return types.ErrVersionConflict
	}

	now := time.Now()
	record.Version = 1
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	r.records[record.UserID] = record.Clone()
	r.order = append(r.order, record.UserID)
	return nil
}

func (r *MemoryVerificationRepository) UpdateVerification(_ context.Context, record *types.VerificationRecord, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[record.UserID]
	if !ok || stored.Version != expectedVersion {
		return types.ErrVersionConflict
	}

	record.Version = expectedVersion + 1
	record.CreatedAt = stored.CreatedAt
	record.UpdatedAt = time.Now()

	r.records[record.UserID] = record.Clone()
	return nil
}

func (r *MemoryVerificationRepository) CountByStatus(_ context.Context) (map[types.VerificationStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[types.VerificationStatus]int)
	for _, record := range r.records {
		counts[record.Status]++
	}
	return counts, nil
}

// MemoryUserRepository mirrors UserRepository for STORE_DRIVER=memory.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*types.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*types.User)}
}

func (r *MemoryUserRepository) User(_ context.Context, userID string) (*types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if !ok {
		return nil, types.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *MemoryUserRepository) UsersByIDs(_ context.Context, userIDs []string) ([]*types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.User, 0, len(userIDs))
	for _, id := range userIDs {
		if user, ok := r.users[id]; ok {
			copied := *user
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *MemoryUserRepository) Create(_ context.Context, user *types.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *MemoryUserRepository) UpsertIdentity(_ context.Context, userID, email, givenName, familyName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	user, ok := r.users[userID]
	if !ok {
		user = &types.User{ID: userID, CreatedAt: now}
		r.users[userID] = user
	}

	if email != "" {
		user.Email = &email
	}
	if givenName != "" {
		user.GivenName = &givenName
	}
	if familyName != "" {
		user.FamilyName = &familyName
	}
	user.UpdatedAt = now
	return nil
}

func (r *MemoryUserRepository) MarkSheerIDVerified(_ context.Context, userID string, at time.Time) error {
	return r.update(userID, func(u *types.User) {
		u.SheerIDVerified = true
		u.SheerIDVerifiedAt = &at
		u.StudentVerified = true
		u.UpdatedAt = at
	})
}

func (r *MemoryUserRepository) MarkStudentVerified(_ context.Context, userID string, at time.Time) error {
	return r.update(userID, func(u *types.User) {
		u.StudentVerified = true
		u.UpdatedAt = at
	})
}

func (r *MemoryUserRepository) SetAdmin(_ context.Context, userID string, isAdmin bool) error {
	return r.update(userID, func(u *types.User) {
		u.IsAdmin = isAdmin
		u.UpdatedAt = time.Now()
	})
}

func (r *MemoryUserRepository) update(userID string, fn func(u *types.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return types.ErrUserNotFound
	}
	fn(user)
	return nil
}
