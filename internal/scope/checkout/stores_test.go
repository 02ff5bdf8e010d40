package checkout

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"obsp-workers/internal/common/database"
	apperrors "obsp-workers/internal/common/errors"
	"obsp-workers/internal/common/logger"
	"obsp-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T) (*Ledger, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLedger(database.NewPostgresFromDB(db), logger.NewTestLogger(t)), mock
}

func TestLedger_RecordAttempt(t *testing.T) {
	ledger, mock := newLedger(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	attempt := Attempt{
		ID: "0b7d8a3e-0000-4000-8000-000000000001", PackageID: "pkg-1", LevelKey: "gold",
		Outcome: OutcomePurchased, TotalAmount: 30000, Available: 50000,
		DraftID: "draft-7", Risk: true, ErrorCode: "SUBMISSION_FAILED",
		Warnings: []string{WarningNotSaved}, CreatedAt: created,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO checkout_attempts")).
		WithArgs(attempt.ID, "pkg-1", "gold", "purchased", int64(30000), int64(50000),
			int64(0), "draft-7", "", true, "SUBMISSION_FAILED", pq.Array([]string{WarningNotSaved}), created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, ledger.RecordAttempt(context.Background(), attempt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_RecordAttemptFailure(t *testing.T) {
	ledger, mock := newLedger(t)

	mock.ExpectExec("INSERT INTO checkout_attempts").WillReturnError(errors.New("connection lost"))

	err := ledger.RecordAttempt(context.Background(), Attempt{ID: "a", Outcome: OutcomeBlocked})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDatabaseInsertFailed))
}

func TestLedger_OpenRisksAndResolve(t *testing.T) {
	ledger, mock := newLedger(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "package_id", "level_key", "outcome", "total_amount",
		"available_balance", "draft_id", "error_code", "warnings", "created_at"}).
		AddRow("a-1", "pkg-1", "gold", "purchased", int64(30000), int64(50000), "", "SUBMISSION_FAILED",
			`{"configuration not saved, contact support"}`, created)

	mock.ExpectQuery("SELECT (.+) FROM checkout_attempts").WithArgs(10).WillReturnRows(rows)

	risks, err := ledger.OpenRisks(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, risks, 1)
	assert.Equal(t, "a-1", risks[0].ID)
	assert.True(t, risks[0].Risk)
	assert.Equal(t, OutcomePurchased, risks[0].Outcome)
	assert.Equal(t, []string{WarningNotSaved}, risks[0].Warnings)

	mock.ExpectExec("UPDATE checkout_attempts SET risk_resolved_at").
		WithArgs("a-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := ledger.ResolveRisk(context.Background(), "a-1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_Migrate(t *testing.T) {
	ledger, mock := newLedger(t)
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS checkout_attempts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS checkout_attempts_open_risk_idx").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, ledger.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_MigrateRollsBack(t *testing.T) {
	ledger, mock := newLedger(t)
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS checkout_attempts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err := ledger.Migrate(context.Background())
	assert.ErrorContains(t, err, "open risk index")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEligibilityCache_Miniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	cache := NewEligibilityCache(rdb, 5*time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "pkg-1", "gold")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Put(ctx, "pkg-1", "gold", models.EligibilityResult{Eligible: true, Reason: models.ReasonNone}))
	require.NoError(t, cache.Put(ctx, "pkg-1", "gold", models.EligibilityResult{Eligible: false, Reason: models.ReasonAlreadyPurchasedSameLevel}))

	got, ok, err := cache.Get(ctx, "pkg-1", "gold")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.ReasonAlreadyPurchasedSameLevel, got.Reason, "last write wins")
	assert.Equal(t, 5*time.Minute, mr.TTL("obsp:eligibility:pkg-1:gold"))

	require.NoError(t, cache.Invalidate(ctx, "pkg-1", "gold"))
	_, ok, _ = cache.Get(ctx, "pkg-1", "gold")
	assert.False(t, ok)
}

func TestEligibilityCache_RedisErrors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewEligibilityCache(database.NewRedisFromClient(client), time.Minute)

	mock.ExpectGet("obsp:eligibility:pkg-1:gold").SetErr(errors.New("READONLY"))
	_, ok, err := cache.Get(context.Background(), "pkg-1", "gold")
	assert.Error(t, err)
	assert.False(t, ok)

	mock.ExpectDel("obsp:eligibility:pkg-1:gold").SetVal(1)
	assert.NoError(t, cache.Invalidate(context.Background(), "pkg-1", "gold"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

type fakeTopic struct {
	subject string
	attrs   map[string]string
	err     error
}

func (f *fakeTopic) Publish(ctx context.Context, subject, message string, attrs map[string]string) (string, error) {
	f.subject, f.attrs = subject, attrs
	return "msg-1", f.err
}

type fakeMailer struct {
	to   []string
	body string
	err  error
}

func (f *fakeMailer) SendText(ctx context.Context, to []string, subject, body string) (string, error) {
	f.to, f.body = to, body
	return "mail-1", f.err
}

func TestSupportAlerter_SoftCompletion(t *testing.T) {
	topic := &fakeTopic{}
	mailer := &fakeMailer{}
	alerter := NewSupportAlerter(topic, mailer, []string{"support@example.com"}, logger.NewTestLogger(t))

	attempt := Attempt{ID: "a-1", PackageID: "pkg-1", LevelKey: "gold", TotalAmount: 30000, CreatedAt: time.Now()}
	require.NoError(t, alerter.SoftCompletion(context.Background(), attempt))

	assert.Contains(t, topic.subject, "pkg-1/gold")
	assert.Equal(t, "a-1", topic.attrs["attemptId"])
	assert.Equal(t, []string{"support@example.com"}, mailer.to)
	assert.Contains(t, mailer.body, "30000")
}

func TestSupportAlerter_CollectsChannelFailures(t *testing.T) {
	alerter := NewSupportAlerter(
		&fakeTopic{err: errors.New("sns down")},
		&fakeMailer{err: errors.New("ses down")},
		[]string{"support@example.com"},
		logger.NewTestLogger(t),
	)

	err := alerter.SoftCompletion(context.Background(), Attempt{ID: "a-1"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAlertSendFailed))
	assert.Contains(t, err.Error(), "sns")

	assert.NoError(t, NewSupportAlerter(nil, nil, nil, logger.NewNoOpLogger()).SoftCompletion(context.Background(), Attempt{}))
}
