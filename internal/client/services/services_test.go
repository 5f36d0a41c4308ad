package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/client"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/models"
)

// ---- helpers ----

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "tk.db"))
	if err != nil {
		t.Fatalf("init database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// ---- fake client ----

type fakeClient struct {
	PingErr  error
	CloseErr error

	PingCalls  int
	CloseCalls int
}

func (f *fakeClient) TokenStatus(context.Context) (models.TokenStatus, error) {
	return models.TokenStatus{State: models.NoToken{}}, nil
}

func (f *fakeClient) RequestOTP(context.Context) (client.OTPChallenge, error) {
	return client.OTPChallenge{}, nil
}

func (f *fakeClient) RefreshToken(context.Context, string) (*time.Time, error) { return nil, nil }

func (f *fakeClient) TokenHistory(context.Context) ([]models.HistoryEntry, error) { return nil, nil }

func (f *fakeClient) Ping(context.Context) error {
	f.PingCalls++
	return f.PingErr
}

func (f *fakeClient) Close() error {
	f.CloseCalls++
	return f.CloseErr
}
