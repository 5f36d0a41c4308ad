// Package snapshots keeps the last observed token status on disk so a fresh
// session can show something before the first check completes.
package snapshots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
)

// ErrNoSnapshot is returned by Load before anything was saved.
var ErrNoSnapshot = errors.New("no status snapshot")

type Repository interface {
	Save(ctx context.Context, st models.TokenStatus) error
	Load(ctx context.Context) (models.TokenStatus, error)
	Clear(ctx context.Context) error
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// Save replaces the single stored snapshot.
func (r *SQLiteRepository) Save(ctx context.Context, st models.TokenStatus) error {
	kind := models.KindNoToken
	if st.State != nil {
		kind = st.State.Kind()
	}

	var (
		lastErr   string
		lastErrAt sql.NullTime
	)
	if st.LastError != nil {
		lastErr = st.LastError.Message
		lastErrAt = nullTime(&st.LastError.OccurredAt)
	}

	query := `INSERT INTO status_snapshots
		(id, state, token, expires_at, hours_remaining, needs_refresh, last_error, last_error_at, checked_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			token = excluded.token,
			expires_at = excluded.expires_at,
			hours_remaining = excluded.hours_remaining,
			needs_refresh = excluded.needs_refresh,
			last_error = excluded.last_error,
			last_error_at = excluded.last_error_at,
			checked_at = excluded.checked_at`
	_, err := r.db.ExecContext(ctx, query,
		string(kind), st.Token, nullTime(st.ExpiresAt), st.HoursRemaining, st.NeedsRefresh,
		lastErr, lastErrAt, st.CheckedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save status snapshot: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Load(ctx context.Context) (models.TokenStatus, error) {
	var (
		st        models.TokenStatus
		kind      string
		expiresAt sql.NullTime
		lastErr   string
		lastErrAt sql.NullTime
	)
	query := `SELECT state, token, expires_at, hours_remaining, needs_refresh, last_error, last_error_at, checked_at
		FROM status_snapshots WHERE id = 1`
	err := r.db.QueryRowContext(ctx, query).Scan(
		&kind, &st.Token, &expiresAt, &st.HoursRemaining, &st.NeedsRefresh, &lastErr, &lastErrAt, &st.CheckedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TokenStatus{}, ErrNoSnapshot
	}
	if err != nil {
		return models.TokenStatus{}, fmt.Errorf("failed to load status snapshot: %w", err)
	}

	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		st.ExpiresAt = &t
	}
	st.State = models.StateOf(models.StateKind(kind), st.ExpiresAt)
	st.CheckedAt = st.CheckedAt.UTC()
	if lastErr != "" {
		st.LastError = &models.LastError{Message: lastErr}
		if lastErrAt.Valid {
			st.LastError.OccurredAt = lastErrAt.Time.UTC()
		}
	}
	return st, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM status_snapshots`); err != nil {
		return fmt.Errorf("failed to clear status snapshot: %w", err)
	}
	return nil
}
