package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func TestDeriveState(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt *time.Time
		want      TokenState
	}{
		{name: "nil expiry", expiresAt: nil, want: NoToken{}},
		{name: "zero expiry", expiresAt: ptr(time.Time{}), want: NoToken{}},
		{name: "future", expiresAt: ptr(now.Add(3 * time.Hour)), want: Active{ExpiresAt: now.Add(3 * time.Hour)}},
		{name: "boundary", expiresAt: ptr(now), want: Expired{ExpiresAt: now}},
		{name: "past", expiresAt: ptr(now.Add(-time.Minute)), want: Expired{ExpiresAt: now.Add(-time.Minute)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveState(tt.expiresAt, now))
		})
	}
}

func TestNeedsRefresh(t *testing.T) {
	threshold := 2 * time.Hour

	assert.False(t, NeedsRefresh(NoToken{}, now, threshold))
	assert.True(t, NeedsRefresh(Expired{ExpiresAt: now.Add(-time.Hour)}, now, threshold))
	assert.True(t, NeedsRefresh(Active{ExpiresAt: now.Add(time.Hour)}, now, threshold))
	assert.False(t, NeedsRefresh(Active{ExpiresAt: now.Add(2 * time.Hour)}, now, threshold))
	assert.False(t, NeedsRefresh(Active{ExpiresAt: now.Add(11 * time.Hour)}, now, threshold))

	// threshold is configurable
	assert.True(t, NeedsRefresh(Active{ExpiresAt: now.Add(5 * time.Hour)}, now, 6*time.Hour))
}

func TestKinds(t *testing.T) {
	assert.Equal(t, KindNoToken, NoToken{}.Kind())
	assert.Equal(t, KindActive, Active{}.Kind())
	assert.Equal(t, KindExpired, Expired{}.Kind())
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, 90*time.Minute, Remaining(Active{ExpiresAt: now.Add(90 * time.Minute)}, now))
	assert.Zero(t, Remaining(Expired{ExpiresAt: now.Add(-time.Hour)}, now))
	assert.Zero(t, Remaining(NoToken{}, now))
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "", MaskToken(""))
	assert.Equal(t, "••••••••", MaskToken("short"))
	assert.Equal(t, "abcd••••••••wxyz", MaskToken("abcdefghijklmnopwxyz"))
	assert.Equal(t, "ñañá••••••••éüöß", MaskToken("ñañábcdefghijkéüöß"))
	assert.Equal(t, "••••••••", MaskToken("ééééééééééé"), "counted in runes, not bytes")
}

func TestSameToken(t *testing.T) {
	a := TokenStatus{Token: "tok", ExpiresAt: ptr(now)}
	b := TokenStatus{Token: "tok", ExpiresAt: ptr(now), CheckedAt: now.Add(time.Minute), HoursRemaining: 3}
	c := TokenStatus{Token: "tok", ExpiresAt: ptr(now.Add(time.Hour))}

	assert.True(t, a.SameToken(b))
	assert.False(t, a.SameToken(c))
	assert.True(t, TokenStatus{}.SameToken(TokenStatus{}))
	assert.False(t, a.SameToken(TokenStatus{Token: "tok"}))
}

func TestActiveEntries(t *testing.T) {
	entries := []HistoryEntry{
		{RefreshCount: 1},
		{RefreshCount: 2, IsActive: true},
		{RefreshCount: 3},
	}
	got := ActiveEntries(entries)
	assert.Len(t, got, 1)
	assert.Equal(t, 2, got[0].RefreshCount)
	assert.Empty(t, ActiveEntries(nil))
}

func TestStateOf(t *testing.T) {
	exp := now.Add(time.Hour)
	assert.Equal(t, Active{ExpiresAt: exp}, StateOf(KindActive, &exp))
	assert.Equal(t, Expired{ExpiresAt: exp}, StateOf(KindExpired, &exp))
	assert.Equal(t, Expired{}, StateOf(KindExpired, nil))
	assert.Equal(t, NoToken{}, StateOf("bogus", &exp))
}
