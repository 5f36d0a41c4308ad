package attempts

import (
	"context"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/models"
)

// Repository is the local journal of operator attempts.
type Repository interface {
	// Append stores a. ID and At must already be set.
	Append(ctx context.Context, a models.Attempt) error

	// Recent returns up to limit attempts, newest first.
	Recent(ctx context.Context, limit int) ([]models.Attempt, error)

	// Prune keeps the newest keep attempts and returns how many were removed.
	Prune(ctx context.Context, keep int) (int64, error)
}
