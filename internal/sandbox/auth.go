package sandbox

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the operator token claims the sandbox issues and accepts.
type Claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Operator is the authenticated caller of a request.
type Operator struct {
	ID   string
	Name string
}

// GenerateToken mints an operator token for subject, signed with secretKey.
func GenerateToken(subject, name string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Name: name,
	})

	return token.SignedString(secretKey)
}

// OperatorFromToken verifies tokenString and returns its operator.
func OperatorFromToken(tokenString string, secretKey []byte) (Operator, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Operator{}, err
	}

	if !token.Valid {
		return Operator{}, common.ErrInvalidToken
	}

	op := Operator{ID: claims.Subject, Name: claims.Name}
	if op.Name == "" {
		op.Name = claims.Email
	}
	if op.Name == "" {
		op.Name = op.ID
	}
	return op, nil
}

type operatorKey struct{}

func operatorFrom(ctx context.Context) Operator {
	op, _ := ctx.Value(operatorKey{}).(Operator)
	return op
}

// requireOperator rejects requests without a valid bearer token.
func (s *Server) requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		raw, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "Authentication required, please login")
			return
		}

		op, err := OperatorFromToken(raw, []byte(s.cfg.SecretKey))
		if err != nil {
			msg := "Invalid session, please login"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Session expired, please login"
			}
			s.logger.Info(r.Context(), "rejected operator token", "err", err)
			writeError(w, http.StatusUnauthorized, msg)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), operatorKey{}, op)))
	})
}
