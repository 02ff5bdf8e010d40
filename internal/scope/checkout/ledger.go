package checkout

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"obsp-workers/internal/common/database"
	apperrors "obsp-workers/internal/common/errors"
	"obsp-workers/internal/common/logger"

	"github.com/lib/pq"
)

const createAttemptsTable = `
CREATE TABLE IF NOT EXISTS checkout_attempts (
    id                UUID PRIMARY KEY,
    package_id        TEXT        NOT NULL,
    level_key         TEXT        NOT NULL,
    outcome           TEXT        NOT NULL,
    total_amount      BIGINT      NOT NULL,
    available_balance BIGINT      NOT NULL,
    shortfall         BIGINT      NOT NULL DEFAULT 0,
    draft_id          TEXT,
    response_id       TEXT,
    risk              BOOLEAN     NOT NULL DEFAULT FALSE,
    risk_resolved_at  TIMESTAMPTZ,
    error_code        TEXT,
    warnings          TEXT[]      NOT NULL DEFAULT '{}',
    created_at        TIMESTAMPTZ NOT NULL
)`

const createOpenRiskIndex = `
CREATE INDEX IF NOT EXISTS checkout_attempts_open_risk_idx
    ON checkout_attempts (created_at)
    WHERE risk = TRUE AND risk_resolved_at IS NULL`

const insertAttempt = `
INSERT INTO checkout_attempts (
    id, package_id, level_key, outcome, total_amount, available_balance,
    shortfall, draft_id, response_id, risk, error_code, warnings, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10, NULLIF($11, ''), $12, $13)`

const selectOpenRisks = `
SELECT id, package_id, level_key, outcome, total_amount, available_balance,
       COALESCE(draft_id, ''), COALESCE(error_code, ''), warnings, created_at
FROM checkout_attempts
WHERE risk = TRUE AND risk_resolved_at IS NULL
ORDER BY created_at
LIMIT $1`

const resolveRisk = `
UPDATE checkout_attempts SET risk_resolved_at = $2
WHERE id = $1 AND risk = TRUE AND risk_resolved_at IS NULL`

// Ledger stores checkout attempts in Postgres. Soft completions stay listed
// as open risks until support resolves them.
type Ledger struct {
	db     *database.PostgresClient
	logger logger.Logger
}

func NewLedger(db *database.PostgresClient, log logger.Logger) *Ledger {
	return &Ledger{db: db, logger: log}
}

// Migrate creates the attempts table and its open-risk index if needed.
func (l *Ledger) Migrate(ctx context.Context) error {
	return l.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, createAttemptsTable); err != nil {
			return fmt.Errorf("create checkout_attempts: %w", err)
		}
		if _, err := tx.ExecContext(ctx, createOpenRiskIndex); err != nil {
			return fmt.Errorf("create open risk index: %w", err)
		}
		return nil
	})
}

func (l *Ledger) RecordAttempt(ctx context.Context, a Attempt) error {
	warnings := a.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	_, err := l.db.Exec(ctx, insertAttempt,
		a.ID, a.PackageID, a.LevelKey, string(a.Outcome), a.TotalAmount, a.Available,
		a.Shortfall, a.DraftID, a.ResponseID, a.Risk, a.ErrorCode, pq.Array(warnings), a.CreatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}

	if a.Risk {
		l.logger.Warn("soft-completed purchase recorded as open risk", map[string]interface{}{
			"attemptId": a.ID,
			"packageId": a.PackageID,
			"levelKey":  a.LevelKey,
		})
	}
	return nil
}

// OpenRisks lists unresolved soft completions, oldest first.
func (l *Ledger) OpenRisks(ctx context.Context, limit int) ([]Attempt, error) {
	rows, err := l.db.DB.QueryContext(ctx, selectOpenRisks, limit)
	if err != nil {
		return nil, fmt.Errorf("query open risks: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		var outcome string
		if err := rows.Scan(&a.ID, &a.PackageID, &a.LevelKey, &outcome, &a.TotalAmount, &a.Available,
			&a.DraftID, &a.ErrorCode, pq.Array(&a.Warnings), &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan open risk: %w", err)
		}
		a.Outcome = Outcome(outcome)
		a.Risk = true
		out = append(out, a)
	}
	return out, rows.Err()
}

// ResolveRisk marks a soft completion as handled. It reports whether a row changed.
func (l *Ledger) ResolveRisk(ctx context.Context, attemptID string) (bool, error) {
	res, err := l.db.Exec(ctx, resolveRisk, attemptID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("resolve risk %s: %w", attemptID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
