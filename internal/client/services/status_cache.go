package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/repositories/snapshots"
)

// StatusCache keeps the last good status across restarts.
type StatusCache interface {
	Save(ctx context.Context, st models.TokenStatus) error
	// Load returns the stored snapshot and false when there is none.
	Load(ctx context.Context) (models.TokenStatus, bool, error)
	Clear(ctx context.Context) error
}

type statusCache struct {
	repo snapshots.Repository
}

func NewStatusCache(db *sql.DB) StatusCache {
	return &statusCache{repo: snapshots.NewSQLiteRepository(db)}
}

func (c *statusCache) Save(ctx context.Context, st models.TokenStatus) error {
	return c.repo.Save(ctx, st)
}

func (c *statusCache) Load(ctx context.Context) (models.TokenStatus, bool, error) {
	st, err := c.repo.Load(ctx)
	if errors.Is(err, snapshots.ErrNoSnapshot) {
		return models.TokenStatus{}, false, nil
	}
	if err != nil {
		return models.TokenStatus{}, false, err
	}
	return st, true, nil
}

func (c *statusCache) Clear(ctx context.Context) error {
	return c.repo.Clear(ctx)
}
