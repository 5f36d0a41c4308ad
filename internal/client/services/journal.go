package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/client"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/repositories/attempts"
	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/google/uuid"
)

// DefaultJournalSize is how many attempts are kept on disk.
const DefaultJournalSize = 500

// JournalService records what the operator tried and how it ended.
type JournalService interface {
	Record(ctx context.Context, action models.Action, err error, requestID string) (models.Attempt, error)
	Recent(ctx context.Context, limit int) ([]models.Attempt, error)
}

type journalService struct {
	db       *sql.DB
	operator func() string
	keep     int
	now      func() time.Time
}

// NewJournalService builds a journal. operator is read on every Record so a
// re-login is reflected immediately; it may be nil.
func NewJournalService(db *sql.DB, operator func() string) JournalService {
	if operator == nil {
		operator = func() string { return "" }
	}
	return &journalService{db: db, operator: operator, keep: DefaultJournalSize, now: time.Now}
}

// Record stores one attempt with the outcome derived from err.
func (j *journalService) Record(ctx context.Context, action models.Action, err error, requestID string) (models.Attempt, error) {
	a := models.Attempt{
		ID:        uuid.NewString(),
		Action:    action,
		Outcome:   OutcomeOf(err),
		RequestID: requestID,
		Operator:  j.operator(),
		At:        j.now(),
	}
	if err != nil {
		a.Message = err.Error()
	}

	repo := attempts.NewSQLiteRepository(j.db)
	if err := repo.Append(ctx, a); err != nil {
		return a, err
	}
	if _, err := repo.Prune(ctx, j.keep); err != nil {
		return a, err
	}
	return a, nil
}

func (j *journalService) Recent(ctx context.Context, limit int) ([]models.Attempt, error) {
	return attempts.NewSQLiteRepository(j.db).Recent(ctx, limit)
}

// OutcomeOf classifies an operation error for the journal.
func OutcomeOf(err error) models.Outcome {
	switch {
	case err == nil:
		return models.OutcomeSuccess
	case errors.Is(err, context.Canceled):
		return models.OutcomeCancelled
	case errors.Is(err, common.ErrInvalidInput):
		return models.OutcomeInvalidInput
	case errors.Is(err, client.ErrUnauthorized):
		return models.OutcomeUnauthorized
	case errors.Is(err, client.ErrUnavailable):
		return models.OutcomeUnavailable
	default:
		return models.OutcomeRejected
	}
}
