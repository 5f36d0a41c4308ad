package credentials

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is what the client can learn about the operator from their own
// bearer token without verifying its signature. Opaque (non-JWT) tokens
// produce an empty Identity.
type Identity struct {
	Subject   string
	Name      string
	ExpiresAt *time.Time
}

type operatorClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Name     string `json:"name"`
	Username string `json:"username"`
	UserID   string `json:"userId"`
}

// Inspect decodes the operator token's claims. The signature is not checked:
// the server remains the authority, this is for display and for spotting an
// obviously expired session before a round trip.
func Inspect(token string) (Identity, bool) {
	claims := &operatorClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, false
	}

	id := Identity{Subject: claims.Subject}
	if id.Subject == "" {
		id.Subject = claims.UserID
	}
	for _, n := range []string{claims.Email, claims.Name, claims.Username} {
		if n != "" {
			id.Name = n
			break
		}
	}
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time
		id.ExpiresAt = &t
	}
	return id, true
}

// Display is the operator label shown in the CLI prompt.
func (i Identity) Display() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Subject
}

// Expired reports whether the token carried an expiry that has passed.
func (i Identity) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}
