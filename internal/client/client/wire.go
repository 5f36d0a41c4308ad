package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/models"
)

// envelope covers the admin API's {success, data|message|error} pattern.
// Endpoints that answer with a bare object or array simply leave it empty.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

func (e envelope) ok() bool {
	return e.Success == nil || *e.Success
}

// text picks the most specific human message: error, then message.
func (e envelope) text() string {
	if s := rawText(e.Error); s != "" {
		return s
	}
	return e.Message
}

// rawText extracts a message from a JSON string or an object carrying a
// message field.
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		if obj.Message != "" {
			return obj.Message
		}
		return obj.Error
	}
	return string(raw)
}

// parseEnvelope decodes body leniently: non-JSON bodies become the message.
func parseEnvelope(body []byte) envelope {
	var env envelope
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		env.Message = strings.TrimSpace(string(trimmed))
		return env
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		env.Message = strings.TrimSpace(string(trimmed))
	}
	return env
}

// payload returns data when the body was wrapped, the body itself otherwise.
func payload(body []byte, env envelope) []byte {
	data := bytes.TrimSpace(env.Data)
	if len(data) > 0 && !bytes.Equal(data, []byte("null")) {
		return data
	}
	return body
}

// wireTime accepts RFC 3339 strings, empty strings and null.
type wireTime struct {
	t *time.Time
}

func (w *wireTime) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		w.t = nil
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return fmt.Errorf("parse time %q: %w", *s, err)
	}
	w.t = &t
	return nil
}

func (w wireTime) ptr() *time.Time { return w.t }

func (w wireTime) value() time.Time {
	if w.t == nil {
		return time.Time{}
	}
	return *w.t
}

type statusDTO struct {
	Status         string   `json:"status"`
	ExpiresAt      wireTime `json:"expiresAt"`
	HoursRemaining *float64 `json:"hoursRemaining"`
	NeedsRefresh   bool     `json:"needsRefresh"`
	Token          string   `json:"token"`
	LastError      *struct {
		Message    string   `json:"message"`
		OccurredAt wireTime `json:"occurredAt"`
	} `json:"lastError"`
}

func (d statusDTO) toModel(now time.Time) models.TokenStatus {
	st := models.TokenStatus{
		Token:        d.Token,
		ExpiresAt:    d.ExpiresAt.ptr(),
		NeedsRefresh: d.NeedsRefresh,
		CheckedAt:    now,
	}

	if st.ExpiresAt != nil {
		st.State = models.DeriveState(st.ExpiresAt, now)
	} else {
		switch models.StateKind(strings.ToLower(d.Status)) {
		case models.KindExpired:
			st.State = models.Expired{}
		case models.KindActive:
			st.State = models.Active{}
		default:
			st.State = models.NoToken{}
		}
	}

	switch {
	case d.HoursRemaining != nil:
		st.HoursRemaining = *d.HoursRemaining
	case st.ExpiresAt != nil:
		st.HoursRemaining = models.Remaining(st.State, now).Hours()
	}

	if d.LastError != nil && d.LastError.Message != "" {
		st.LastError = &models.LastError{Message: d.LastError.Message, OccurredAt: d.LastError.OccurredAt.value()}
	}
	return st
}

type refreshRequest struct {
	OTPCode string `json:"otpCode"`
}

type refreshDTO struct {
	ExpiresAt wireTime `json:"expiresAt"`
}

// operatorRef is lastRefreshedBy: a plain string or a user object.
type operatorRef string

func (o *operatorRef) UnmarshalJSON(b []byte) error {
	var s string
	if json.Unmarshal(b, &s) == nil {
		*o = operatorRef(s)
		return nil
	}
	var obj struct {
		Name     string `json:"name"`
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Username string `json:"username"`
		ID       string `json:"_id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	for _, v := range []string{obj.Name, obj.FullName, obj.Email, obj.Username, obj.ID} {
		if v != "" {
			*o = operatorRef(v)
			return nil
		}
	}
	*o = ""
	return nil
}

type historyDTO struct {
	CreatedAt       wireTime    `json:"createdAt"`
	ExpiresAt       wireTime    `json:"expiresAt"`
	IsActive        bool        `json:"isActive"`
	LastRefreshedBy operatorRef `json:"lastRefreshedBy"`
	RefreshCount    int         `json:"refreshCount"`
}

func (d historyDTO) toModel() models.HistoryEntry {
	return models.HistoryEntry{
		CreatedAt:       d.CreatedAt.value(),
		ExpiresAt:       d.ExpiresAt.value(),
		IsActive:        d.IsActive,
		LastRefreshedBy: string(d.LastRefreshedBy),
		RefreshCount:    d.RefreshCount,
	}
}

// decodeHistory accepts a bare array, {data:[...]} or {data:{history:[...]}}.
func decodeHistory(body []byte) ([]historyDTO, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var list []historyDTO
		err := json.Unmarshal(body, &list)
		return list, err
	}

	env := parseEnvelope(body)
	data := bytes.TrimSpace(env.Data)
	if len(data) > 0 && data[0] == '[' {
		var list []historyDTO
		err := json.Unmarshal(data, &list)
		return list, err
	}

	var nested struct {
		History []historyDTO `json:"history"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &nested); err != nil {
			return nil, err
		}
		return nested.History, nil
	}
	if err := json.Unmarshal(body, &nested); err != nil {
		return nil, err
	}
	return nested.History, nil
}
