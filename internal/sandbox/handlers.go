package sandbox

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// Routes, mounted under /api like the real admin API.
const (
	routeStatus     = "/admin/telecel/token/status"
	routeRequestOTP = "/admin/telecel/token/request-otp"
	routeRefresh    = "/admin/telecel/token/refresh"
	routeHistory    = "/admin/telecel/token/history"
	routeHealth     = "/health"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type statusResponse struct {
	Token          string         `json:"token,omitempty"`
	ExpiresAt      *time.Time     `json:"expiresAt"`
	HoursRemaining float64        `json:"hoursRemaining"`
	Status         string         `json:"status"`
	NeedsRefresh   bool           `json:"needsRefresh"`
	LastError      *lastErrorJSON `json:"lastError,omitempty"`
}

type lastErrorJSON struct {
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurredAt"`
}

type refreshRequest struct {
	OTPCode string `json:"otpCode" validate:"required,len=6,number"`
}

type refreshResponse struct {
	ExpiresAt time.Time `json:"expiresAt"`
}

type operatorJSON struct {
	Name string `json:"name"`
}

type historyJSON struct {
	CreatedAt       time.Time    `json:"createdAt"`
	ExpiresAt       time.Time    `json:"expiresAt"`
	IsActive        bool         `json:"isActive"`
	LastRefreshedBy operatorJSON `json:"lastRefreshedBy"`
	RefreshCount    int          `json:"refreshCount"`
}

// needsRefreshWithin mirrors the admin API's own refresh-soon flag.
const needsRefreshWithin = 2 * time.Hour

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)

	r.Route("/api", func(r chi.Router) {
		r.Get(routeHealth, s.health)

		r.Group(func(r chi.Router) {
			r.Use(s.requireOperator)
			r.Get(routeStatus, s.tokenStatus)
			r.Post(routeRequestOTP, s.requestOTP)
			r.Post(routeRefresh, s.refreshToken)
			r.Get(routeHistory, s.tokenHistory)
		})
	})
	return r
}

// requestID echoes the caller's correlation id and logs the exchange.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(common.RequestIDHeaderName)
		if id != "" {
			w.Header().Set(common.RequestIDHeaderName, id)
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.Debug(r.Context(), "sandbox request",
			"method", r.Method, "path", r.URL.Path, "request_id", id,
			"status", ww.Status(), "duration", time.Since(started))
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "ok"})
}

func (s *Server) tokenStatus(w http.ResponseWriter, _ *http.Request) {
	v := s.state.status()

	resp := statusResponse{Token: v.Token, HoursRemaining: v.Remaining.Hours(), Status: v.Status}
	if v.Token != "" {
		exp := v.ExpiresAt
		resp.ExpiresAt = &exp
		resp.NeedsRefresh = v.Status != "active" || v.Remaining < needsRefreshWithin
	}
	if v.LastError != nil {
		resp.LastError = &lastErrorJSON{Message: v.LastError.Message, OccurredAt: v.LastError.OccurredAt}
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: resp})
}

func (s *Server) requestOTP(w http.ResponseWriter, r *http.Request) {
	s.state.requestOTP()
	s.logger.Info(r.Context(), "otp issued", "operator", operatorFrom(r.Context()).Name)
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "OTP sent to the registered phone"})
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "OTP code must be 6 digits")
		return
	}

	op := operatorFrom(r.Context())
	expiresAt, err := s.state.refresh(req.OTPCode, op.Name)
	if err != nil {
		s.logger.Info(r.Context(), "refresh rejected", "operator", op.Name, "err", err)
		writeError(w, http.StatusUnauthorized, rejectionMessages[err])
		return
	}

	s.logger.Info(r.Context(), "token refreshed", "operator", op.Name, "expires_at", expiresAt)
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "Token refreshed",
		Data:    refreshResponse{ExpiresAt: expiresAt},
	})
}

func (s *Server) tokenHistory(w http.ResponseWriter, _ *http.Request) {
	entries := s.state.historyNewestFirst()
	out := make([]historyJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyJSON{
			CreatedAt:       e.CreatedAt,
			ExpiresAt:       e.ExpiresAt,
			IsActive:        e.IsActive,
			LastRefreshedBy: operatorJSON{Name: e.LastRefreshedBy},
			RefreshCount:    e.RefreshCount,
		})
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: out})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Message: msg})
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}
