package verification

import (
	"campusstay/internal/metrics"
	"campusstay/internal/provider"
	"campusstay/internal/storage"
	"campusstay/internal/store"
	"campusstay/pkg/types"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	pdfBytes  = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
)

type fixture struct {
	svc       *Service
	records   *store.MemoryVerificationRepository
	users     *store.MemoryUserRepository
	documents *storage.MemoryStorage
	instant   *stubVerifier
	metrics   *metrics.Metrics
	logs      *logtest.Hook
	now       time.Time

	subject *types.User
	admin   *types.User
}

type stubVerifier struct {
	err   error
	calls []types.InstantVerificationRequest
}

func (s *stubVerifier) Verify(_ context.Context, req types.InstantVerificationRequest) error {
	s.calls = append(s.calls, req)
	return s.err
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &fixture{
		records:   store.NewMemoryVerificationRepository(),
		users:     store.NewMemoryUserRepository(),
		documents: storage.NewMemoryStorage(),
		instant:   &stubVerifier{},
		metrics:   metrics.New(prometheus.NewRegistry()),
		logs:      hook,
		now:       time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	}

	seq := 0
	f.svc = New(f.records, f.users, f.documents, f.instant, logger,
		WithClock(func() time.Time { return f.now }),
		WithIDGenerator(func() string { seq++; return fmt.Sprintf("id%d", seq) }),
		WithMetrics(f.metrics),
	)

	ctx := context.Background()
	require.NoError(t, f.users.UpsertIdentity(ctx, "subject-1", "ava@stanford.edu", "Ava", "Williams"))
	require.NoError(t, f.users.UpsertIdentity(ctx, "admin-1", "admin@campusstay.test", "Riley", "Admin"))
	require.NoError(t, f.users.SetAdmin(ctx, "admin-1", true))

	var err error
	f.subject, err = f.users.User(ctx, "subject-1")
	require.NoError(t, err)
	f.admin, err = f.users.User(ctx, "admin-1")
	require.NoError(t, err)

	return f
}

func validInput() types.ManualVerificationInput {
	return types.ManualVerificationInput{
		StudentDetails: types.StudentDetails{
			UniversityName:  "Stanford University",
			StudentIDNumber: "20230001",
			GraduationYear:  "2026",
			Major:           "CS",
		},
		StudentIDDocument: &types.DocumentUpload{FileName: "id.png", Content: pngBytes},
		EnrollmentLetter:  &types.DocumentUpload{FileName: "letter.jpg", Content: jpegBytes},
	}
}

func (f *fixture) submit(t *testing.T) *types.VerificationRecord {
	t.Helper()
	record, err := f.svc.SubmitManual(context.Background(), f.subject, validInput())
	require.NoError(t, err)
	return record
}

func TestSubmitManual_CreatesPendingRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	input := validInput()
	input.UniversityName = "  Stanford University  "
	input.EnrollmentLetter = &types.DocumentUpload{FileName: `C:\scans\letter.pdf`, Content: pdfBytes}

	record, err := f.svc.SubmitManual(ctx, f.subject, input)
	require.NoError(t, err)

	assert.Equal(t, types.VerificationStatusPending, record.Status)
	assert.Equal(t, f.now, record.SubmittedAt)
	assert.Equal(t, "Stanford University", record.UniversityName)
	assert.Nil(t, record.ReviewedAt)
	assert.Equal(t, int64(1), record.Version)

	studentID := record.Documents.ByKind(types.DocumentKindStudentID)
	require.NotNil(t, studentID)
	assert.Equal(t, "image/png", studentID.MimeType)
	assert.Equal(t, "verifications/subject-1/id1-student_id.png", studentID.StorageKey)
	assert.Equal(t, "id.png", studentID.FileName)

	letter := record.Documents.ByKind(types.DocumentKindEnrollmentLetter)
	require.NotNil(t, letter)
	assert.Equal(t, "application/pdf", letter.MimeType)
	assert.Equal(t, "letter.pdf", letter.FileName)
	assert.Equal(t, int64(len(pdfBytes)), letter.SizeBytes)

	stored, err := f.svc.Verification(ctx, "subject-1")
	require.NoError(t, err)
	state, err := stored.State()
	require.NoError(t, err)
	assert.IsType(t, types.PendingVerification{}, state)

	assert.ElementsMatch(t, record.Documents.StorageKeys(), f.documents.Keys())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Submissions.WithLabelValues(outcomeAccepted)))
}

func TestSubmitManual_ValidationLeavesStateUntouched(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(in *types.ManualVerificationInput)
		sentinel error
		field    string
	}{
		{
			name:     "blank university",
			mutate:   func(in *types.ManualVerificationInput) { in.UniversityName = "   " },
			sentinel: types.ErrMissingFields,
			field:    "university_name",
		},
		{
			name:     "missing major",
			mutate:   func(in *types.ManualVerificationInput) { in.Major = "" },
			sentinel: types.ErrMissingFields,
			field:    "major",
		},
		{
			name:     "missing student id document",
			mutate:   func(in *types.ManualVerificationInput) { in.StudentIDDocument = nil },
			sentinel: types.ErrMissingDocuments,
			field:    "student_id",
		},
		{
			name:     "empty enrollment letter",
			mutate:   func(in *types.ManualVerificationInput) { in.EnrollmentLetter = &types.DocumentUpload{FileName: "x.pdf"} },
			sentinel: types.ErrMissingDocuments,
			field:    "enrollment_letter",
		},
		{
			name: "unsupported type",
			mutate: func(in *types.ManualVerificationInput) {
				in.StudentIDDocument = &types.DocumentUpload{FileName: "id.png", Content: []byte("just some text pretending to be a png")}
			},
			sentinel: types.ErrInvalidDocument,
			field:    "student_id",
		},
		{
			name: "oversized document",
			mutate: func(in *types.ManualVerificationInput) {
				big := make([]byte, types.MaxDocumentSizeBytes+1)
				copy(big, pdfBytes)
				in.EnrollmentLetter = &types.DocumentUpload{FileName: "big.pdf", Content: big}
			},
			sentinel: types.ErrInvalidDocument,
			field:    "enrollment_letter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			input := validInput()
			tt.mutate(&input)

			record, err := f.svc.SubmitManual(ctx, f.subject, input)
			require.Error(t, err)
			assert.Nil(t, record)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Contains(t, types.FieldErrors(err), tt.field)

			_, err = f.records.Verification(ctx, "subject-1")
			assert.ErrorIs(t, err, types.ErrVerificationNotFound)
			assert.Empty(t, f.documents.Keys())
		})
	}
}

func TestSubmitManual_ValidationDoesNotModifyPendingRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	original := f.submit(t)

	input := validInput()
	input.EnrollmentLetter = nil
	f.now = f.now.Add(time.Hour)

	_, err := f.svc.SubmitManual(ctx, f.subject, input)
	require.ErrorIs(t, err, types.ErrMissingDocuments)

	stored, err := f.records.Verification(ctx, "subject-1")
	require.NoError(t, err)
	assert.Equal(t, original.Version, stored.Version)
	assert.Equal(t, original.SubmittedAt, stored.SubmittedAt)
}

func TestSubmitManual_ResubmitOverwritesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.submit(t)
	oldKeys := first.Documents.StorageKeys()

	f.now = f.now.Add(2 * time.Hour)
	input := validInput()
	input.Major = "Mathematics"

	second, err := f.svc.SubmitManual(ctx, f.subject, input)
	require.NoError(t, err)
	assert.Equal(t, types.VerificationStatusPending, second.Status)
	assert.Equal(t, "Mathematics", second.Major)
	assert.Equal(t, f.now, second.SubmittedAt)
	assert.Equal(t, int64(2), second.Version)

	keys := f.documents.Keys()
	assert.ElementsMatch(t, second.Documents.StorageKeys(), keys)
	for _, old := range oldKeys {
		assert.NotContains(t, keys, old)
	}

	all, err := f.records.Verifications(ctx, types.VerificationFilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSubmitManual_AfterReviewIsRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submit(t)

	_, err := f.svc.Reject(ctx, f.admin, "subject-1", "blurry student ID")
	require.NoError(t, err)
	keysBefore := f.documents.Keys()

	_, err = f.svc.SubmitManual(ctx, f.subject, validInput())
	assert.ErrorIs(t, err, types.ErrAlreadyReviewed)

	stored, err := f.records.Verification(ctx, "subject-1")
	require.NoError(t, err)
	assert.Equal(t, types.VerificationStatusRejected, stored.Status)
	assert.ElementsMatch(t, keysBefore, f.documents.Keys())
}

type failingRecords struct {
	*store.MemoryVerificationRepository
	err error
}

func (r *failingRecords) CreateVerification(context.Context, *types.VerificationRecord) error {
	return r.err
}

func (r *failingRecords) UpdateVerification(context.Context, *types.VerificationRecord, int64) error {
	return r.err
}

func TestSubmitManual_StoreFailureCleansUpDocuments(t *testing.T) {
	f := newFixture(t)
	records := &failingRecords{MemoryVerificationRepository: f.records, err: errors.New("connection reset")}
	svc := New(records, f.users, f.documents, f.instant, logrus.New(), WithMetrics(f.metrics))

	_, err := svc.SubmitManual(context.Background(), f.subject, validInput())
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to save verification")
	assert.Empty(t, f.documents.Keys())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Submissions.WithLabelValues(outcomeFailed)))
}

type failingStorage struct {
	*storage.MemoryStorage
	failOn int
	puts   int
}

func (s *failingStorage) PutDocument(ctx context.Context, key, contentType string, content []byte) error {
	s.puts++
	if s.puts == s.failOn {
		return errors.New("bucket unavailable")
	}
	return s.MemoryStorage.PutDocument(ctx, key, contentType, content)
}

func TestSubmitManual_UploadFailureRemovesEarlierUploads(t *testing.T) {
	f := newFixture(t)
	docs := &failingStorage{MemoryStorage: f.documents, failOn: 2}
	svc := New(f.records, f.users, docs, f.instant, logrus.New())

	_, err := svc.SubmitManual(context.Background(), f.subject, validInput())
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to store enrollment letter")
	assert.Empty(t, f.documents.Keys())

	_, err = f.records.Verification(context.Background(), "subject-1")
	assert.ErrorIs(t, err, types.ErrVerificationNotFound)
}

func TestSubmitManual_RequiresActor(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SubmitManual(context.Background(), nil, validInput())
	assert.ErrorIs(t, err, types.ErrNotAuthorized)
}

func TestVerifyInstantly_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.VerifyInstantly(ctx, f.subject, " Stanford University "))

	require.Len(t, f.instant.calls, 1)
	assert.Equal(t, types.InstantVerificationRequest{
		FirstName:    "Ava",
		LastName:     "Williams",
		Email:        "ava@stanford.edu",
		Organization: "Stanford University",
	}, f.instant.calls[0])

	user, err := f.users.User(ctx, "subject-1")
	require.NoError(t, err)
	assert.True(t, user.SheerIDVerified)
	assert.True(t, user.StudentVerified)
	require.NotNil(t, user.SheerIDVerifiedAt)
	assert.Equal(t, f.now, *user.SheerIDVerifiedAt)

	_, err = f.records.Verification(ctx, "subject-1")
	assert.ErrorIs(t, err, types.ErrVerificationNotFound)
}

func TestVerifyInstantly_ProviderFailureLeavesManualRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	original := f.submit(t)

	f.instant.err = errors.New("provider returned 503")
	err := f.svc.VerifyInstantly(ctx, f.subject, "Stanford University")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInstantVerificationFailed)
	assert.ErrorIs(t, err, f.instant.err)

	stored, err := f.records.Verification(ctx, "subject-1")
	require.NoError(t, err)
	assert.Equal(t, types.VerificationStatusPending, stored.Status)
	assert.Equal(t, original.Version, stored.Version)

	user, err := f.users.User(ctx, "subject-1")
	require.NoError(t, err)
	assert.False(t, user.SheerIDVerified)
	assert.False(t, user.StudentVerified)
	assert.Len(t, f.instant.calls, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.InstantVerifications.WithLabelValues("failed_internal")))
}

func TestVerifyInstantly_FailureIsCategorized(t *testing.T) {
	f := newFixture(t)

	f.instant.err = &provider.Error{Category: provider.ErrorTimeout, Message: "deadline exceeded"}
	err := f.svc.VerifyInstantly(context.Background(), f.subject, "Stanford University")
	assert.ErrorIs(t, err, types.ErrInstantVerificationFailed)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.InstantVerifications.WithLabelValues("failed_timeout")))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.InstantVerifications.WithLabelValues("failed_internal")))

	entry := f.logs.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "instant verification failed", entry.Message)
	assert.Equal(t, provider.ErrorTimeout, entry.Data["category"])
	assert.Equal(t, "subject-1", entry.Data["user_id"])
}

func TestVerifyInstantly_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.VerifyInstantly(ctx, f.subject, "  "), types.ErrUniversityRequired)
	assert.Empty(t, f.instant.calls)

	svc := New(f.records, f.users, f.documents, nil, logrus.New(), WithMetrics(f.metrics))
	err := svc.VerifyInstantly(ctx, f.subject, "MIT")
	assert.ErrorIs(t, err, types.ErrInstantVerificationFailed)
	assert.ErrorIs(t, err, types.ErrProviderUnavailable)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.InstantVerifications.WithLabelValues("unavailable")))
	var duration dto.Metric
	require.NoError(t, f.metrics.InstantDuration.Write(&duration))
	assert.Zero(t, duration.GetHistogram().GetSampleCount())
}

func TestInstantAndManualSignalsStayIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submit(t)

	_, err := f.svc.Reject(ctx, f.admin, "subject-1", "enrollment letter expired")
	require.NoError(t, err)
	require.NoError(t, f.svc.VerifyInstantly(ctx, f.subject, "Stanford University"))

	stored, err := f.records.Verification(ctx, "subject-1")
	require.NoError(t, err)
	assert.Equal(t, types.VerificationStatusRejected, stored.Status)

	user, err := f.users.User(ctx, "subject-1")
	require.NoError(t, err)
	assert.True(t, user.SheerIDVerified)
}

func TestList_FiltersByStatusInInsertionOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	subjects := []string{"s-c", "s-a", "s-b", "s-d"}
	for _, id := range subjects {
		require.NoError(t, f.users.UpsertIdentity(ctx, id, id+"@uni.edu", "", ""))
		user, err := f.users.User(ctx, id)
		require.NoError(t, err)
		_, err = f.svc.SubmitManual(ctx, user, validInput())
		require.NoError(t, err)
	}

	_, err := f.svc.Approve(ctx, f.admin, "s-a", "")
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, f.admin, "s-d", "not enrolled")
	require.NoError(t, err)

	listIDs := func(filter types.VerificationFilter) []string {
		items, err := f.svc.List(ctx, f.admin, filter)
		require.NoError(t, err)
		ids := make([]string, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.Record.UserID)
			assert.Equal(t, item.Record.UserID+"@uni.edu", item.Subject.Email)
			assert.True(t, filter.Matches(item.Record.Status))
		}
		return ids
	}

	assert.Equal(t, []string{"s-c", "s-a", "s-b", "s-d"}, listIDs(types.VerificationFilterAll))
	assert.Equal(t, []string{"s-c", "s-b"}, listIDs(types.VerificationFilterPending))
	assert.Equal(t, []string{"s-a"}, listIDs(types.VerificationFilterVerified))
	assert.Equal(t, []string{"s-d"}, listIDs(types.VerificationFilterRejected))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.PendingQueue))
}

func TestList_SubjectWithoutProfileFallsBackToID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ghost := &types.User{ID: "ghost"}
	_, err := f.svc.SubmitManual(ctx, ghost, validInput())
	require.NoError(t, err)

	items, err := f.svc.List(ctx, f.admin, types.VerificationFilterPending)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, types.UserSummary{ID: "ghost", Name: "ghost"}, items[0].Subject)
}

func TestReviewQueue_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submit(t)

	_, err := f.svc.List(ctx, f.subject, types.VerificationFilterAll)
	assert.ErrorIs(t, err, types.ErrNotAuthorized)
	_, err = f.svc.Approve(ctx, f.subject, "subject-1", "")
	assert.ErrorIs(t, err, types.ErrNotAuthorized)
	_, err = f.svc.Reject(ctx, nil, "subject-1", "no")
	assert.ErrorIs(t, err, types.ErrNotAuthorized)
	_, err = f.svc.Document(ctx, f.subject, "subject-1", types.DocumentKindStudentID)
	assert.ErrorIs(t, err, types.ErrNotAuthorized)

	stored, err := f.records.Verification(ctx, "subject-1")
	require.NoError(t, err)
	assert.Equal(t, types.VerificationStatusPending, stored.Status)
}

func TestApprove_DefaultNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submit(t)
	f.now = f.now.Add(24 * time.Hour)

	item, err := f.svc.Approve(ctx, f.admin, "subject-1", "   ")
	require.NoError(t, err)
	assert.Equal(t, "Ava Williams", item.Subject.Name)
	assert.Equal(t, types.VerificationStatusVerified, item.Record.Status)
	assert.Equal(t, "Approved by admin", item.Record.Notes())
	require.NotNil(t, item.Record.ReviewedAt)
	assert.Equal(t, f.now, *item.Record.ReviewedAt)
	require.NotNil(t, item.Record.ReviewedBy)
	assert.Equal(t, "admin-1", *item.Record.ReviewedBy)

	user, err := f.users.User(ctx, "subject-1")
	require.NoError(t, err)
	assert.True(t, user.StudentVerified)
	assert.False(t, user.SheerIDVerified)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Reviews.WithLabelValues("approved")))
}

func TestReject_RequiresReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submit(t)

	_, err := f.svc.Reject(ctx, f.admin, "subject-1", "")
	assert.ErrorIs(t, err, types.ErrRejectionReasonRequired)
	_, err = f.svc.Reject(ctx, f.admin, "subject-1", " \t ")
	assert.ErrorIs(t, err, types.ErrRejectionReasonRequired)

	stored, err := f.records.Verification(ctx, "subject-1")
	require.NoError(t, err)
	assert.Equal(t, types.VerificationStatusPending, stored.Status)
	assert.Nil(t, stored.ReviewedAt)

	item, err := f.svc.Reject(ctx, f.admin, "subject-1", "too many abandoned document fields")
	require.NoError(t, err)
	assert.Equal(t, types.VerificationStatusRejected, item.Record.Status)
	assert.Equal(t, "too many abandoned document fields", item.Record.Notes())
	require.NotNil(t, item.Record.ReviewedAt)

	user, err := f.users.User(ctx, "subject-1")
	require.NoError(t, err)
	assert.False(t, user.StudentVerified)
}

func TestReviewedRecordsAreTerminal(t *testing.T) {
	for _, first := range []string{"approve", "reject"} {
		t.Run(first, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.submit(t)

			var err error
			if first == "approve" {
				_, err = f.svc.Approve(ctx, f.admin, "subject-1", "LGTM")
			} else {
				_, err = f.svc.Reject(ctx, f.admin, "subject-1", "mismatched name")
			}
			require.NoError(t, err)

			before, err := f.records.Verification(ctx, "subject-1")
			require.NoError(t, err)

			f.now = f.now.Add(time.Hour)
			_, err = f.svc.Approve(ctx, f.admin, "subject-1", "again")
			assert.ErrorIs(t, err, types.ErrNotPending)
			_, err = f.svc.Reject(ctx, f.admin, "subject-1", "again")
			assert.ErrorIs(t, err, types.ErrNotPending)

			after, err := f.records.Verification(ctx, "subject-1")
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestApprove_UnknownSubject(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Approve(context.Background(), f.admin, "nobody", "")
	assert.ErrorIs(t, err, types.ErrVerificationNotFound)
}

type racingRecords struct {
	*store.MemoryVerificationRepository
	beforeUpdate func()
}

func (r *racingRecords) UpdateVerification(ctx context.Context, record *types.VerificationRecord, expected int64) error {
	if r.beforeUpdate != nil {
		hook := r.beforeUpdate
		r.beforeUpdate = nil
		hook()
	}
	return r.MemoryVerificationRepository.UpdateVerification(ctx, record, expected)
}

func TestApprove_ConcurrentModificationIsDetected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submit(t)

	records := &racingRecords{MemoryVerificationRepository: f.records}
	svc := New(records, f.users, f.documents, f.instant, logrus.New())

	records.beforeUpdate = func() {
		_, err := f.svc.Reject(ctx, f.admin, "subject-1", "rejected by another reviewer")
		require.NoError(t, err)
	}

	_, err := svc.Approve(ctx, f.admin, "subject-1", "")
	assert.ErrorIs(t, err, types.ErrVersionConflict)

	stored, err := f.records.Verification(ctx, "subject-1")
	require.NoError(t, err)
	assert.Equal(t, types.VerificationStatusRejected, stored.Status)
}

func TestDocument_StreamsStoredEvidence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submit(t)

	content, err := f.svc.Document(ctx, f.admin, "subject-1", types.DocumentKindEnrollmentLetter)
	require.NoError(t, err)
	defer content.Body.Close()

	body, err := io.ReadAll(content.Body)
	require.NoError(t, err)
	assert.Equal(t, jpegBytes, body)
	assert.Equal(t, "image/jpeg", content.ContentType)
	assert.Equal(t, "letter.jpg", content.FileName)

	_, err = f.svc.Document(ctx, f.admin, "nobody", types.DocumentKindStudentID)
	assert.ErrorIs(t, err, types.ErrVerificationNotFound)

	stored, err := f.records.Verification(ctx, "subject-1")
	require.NoError(t, err)
	assert.Equal(t, types.VerificationStatusPending, stored.Status)
}

// Subject submits, reviewer finds them in the pending queue, approves with a
// note, and the subject moves to the verified queue.
func TestSubmitReviewApproveFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	input := validInput()
	input.EnrollmentLetter = &types.DocumentUpload{FileName: "letter.png", Content: pngBytes}
	_, err := f.svc.SubmitManual(ctx, f.subject, input)
	require.NoError(t, err)

	pending, err := f.svc.List(ctx, f.admin, types.VerificationFilterPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "subject-1", pending[0].Record.UserID)
	assert.Equal(t, "Ava Williams", pending[0].Subject.Name)

	_, err = f.svc.Approve(ctx, f.admin, "subject-1", "LGTM")
	require.NoError(t, err)

	verified, err := f.svc.List(ctx, f.admin, types.VerificationFilterVerified)
	require.NoError(t, err)
	require.Len(t, verified, 1)
	assert.Equal(t, "LGTM", verified[0].Record.Notes())

	pending, err = f.svc.List(ctx, f.admin, types.VerificationFilterPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCleanupFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	docs := &deleteFailingStorage{MemoryStorage: f.documents}
	records := &failingRecords{MemoryVerificationRepository: f.records, err: errors.New("db down")}

	logger, hook := logtest.NewNullLogger()
	svc := New(records, f.users, docs, f.instant, logger)

	_, err := svc.SubmitManual(context.Background(), f.subject, validInput())
	require.Error(t, err)

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, logrus.ErrorLevel, entries[0].Level)
	assert.Equal(t, "failed to delete verification document", entries[0].Message)
	assert.Equal(t, "subject-1", entries[0].Data["user_id"])
}

type deleteFailingStorage struct {
	*storage.MemoryStorage
}

func (s *deleteFailingStorage) DeleteDocument(context.Context, string) error {
	return errors.New("access denied")
}

type unreachableDirectory struct {
	*store.MemoryUserRepository
}

func (d *unreachableDirectory) UsersByIDs(context.Context, []string) ([]*types.User, error) {
	return nil, errors.New("connection refused")
}

func TestReviewDecisionSurvivesProfileLookupFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submit(t)

	logger, hook := logtest.NewNullLogger()
	svc := New(f.records, &unreachableDirectory{MemoryUserRepository: f.users}, f.documents, f.instant, logger)

	item, err := svc.Approve(ctx, f.admin, "subject-1", "")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, types.VerificationStatusVerified, item.Record.Status)
	assert.Equal(t, "subject-1", item.Subject.Name)

	stored, err := f.records.Verification(ctx, "subject-1")
	require.NoError(t, err)
	assert.Equal(t, types.VerificationStatusVerified, stored.Status)

	user, err := f.users.User(ctx, "subject-1")
	require.NoError(t, err)
	assert.True(t, user.StudentVerified)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "subject-1", entry.Data["user_id"])
}

func TestRejectDecisionSurvivesProfileLookupFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submit(t)

	svc := New(f.records, &unreachableDirectory{MemoryUserRepository: f.users}, f.documents, f.instant, logrus.New())

	item, err := svc.Reject(ctx, f.admin, "subject-1", "letter is unreadable")
	require.NoError(t, err)
	assert.Equal(t, types.VerificationStatusRejected, item.Record.Status)
	assert.Equal(t, "subject-1", item.Subject.ID)
}

func seedIncompleteRecord(t *testing.T, f *fixture) *types.VerificationRecord {
	t.Helper()
	record := types.NewPendingVerification("subject-1", validInput().StudentDetails, nil, f.now)
	require.NoError(t, f.records.CreateVerification(context.Background(), record))
	return record
}

func TestReview_IncompleteRecordIsRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	original := seedIncompleteRecord(t, f)

	_, err := f.svc.Approve(ctx, f.admin, "subject-1", "")
	assert.ErrorIs(t, err, types.ErrCorruptVerification)

	_, err = f.svc.Reject(ctx, f.admin, "subject-1", "missing documents")
	assert.ErrorIs(t, err, types.ErrCorruptVerification)

	stored, err := f.records.Verification(ctx, "subject-1")
	require.NoError(t, err)
	assert.Equal(t, types.VerificationStatusPending, stored.Status)
	assert.Nil(t, stored.ReviewedAt)
	assert.Equal(t, original.Version, stored.Version)

	user, err := f.users.User(ctx, "subject-1")
	require.NoError(t, err)
	assert.False(t, user.StudentVerified)
}

func TestSubmitManual_IncompleteRecordIsRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	original := seedIncompleteRecord(t, f)

	_, err := f.svc.SubmitManual(ctx, f.subject, validInput())
	assert.ErrorIs(t, err, types.ErrCorruptVerification)
	assert.Empty(t, f.documents.Keys())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Submissions.WithLabelValues(outcomeFailed)))

	stored, err := f.records.Verification(ctx, "subject-1")
	require.NoError(t, err)
	assert.Empty(t, stored.Documents)
	assert.Equal(t, original.Version, stored.Version)
}
