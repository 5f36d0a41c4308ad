package attempts

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
)

// SQLiteRepository implements Repository over a DBTX.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Append(ctx context.Context, a models.Attempt) error {
	if a.ID == "" {
		return errors.New("attempt id is required")
	}
	query := `INSERT INTO attempts (id, action, outcome, message, request_id, operator, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, string(a.Action), string(a.Outcome), a.Message, a.RequestID, a.Operator, a.At.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert attempt: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]models.Attempt, error) {
	if limit <= 0 {
		return nil, nil
	}
	query := `SELECT id, action, outcome, message, request_id, operator, at
		FROM attempts ORDER BY at DESC, rowid DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select attempts: %w", err)
	}
	defer rows.Close()

	var result []models.Attempt
	for rows.Next() {
		var (
			a               models.Attempt
			action, outcome string
		)
		if err := rows.Scan(&a.ID, &action, &outcome, &a.Message, &a.RequestID, &a.Operator, &a.At); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		a.Action = models.Action(action)
		a.Outcome = models.Outcome(outcome)
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attempts: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	query := `DELETE FROM attempts WHERE rowid NOT IN (
		SELECT rowid FROM attempts ORDER BY at DESC, rowid DESC LIMIT ?)`
	res, err := r.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune attempts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
