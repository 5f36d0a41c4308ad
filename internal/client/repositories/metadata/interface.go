package metadata

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for a key that was never stored.
var ErrNotFound = errors.New("metadata key not found")

// Key names one value of the sealed session.
type Key string

const (
	KeySalt        Key = "salt"
	KeyVerifier    Key = "verifier"
	KeySealedToken Key = "sealed_token"
	KeyTokenNonce  Key = "token_nonce"
	KeyOperator    Key = "operator"
)

// SessionKeys lists every key written by a login, in write order.
var SessionKeys = []Key{KeySalt, KeyVerifier, KeySealedToken, KeyTokenNonce, KeyOperator}

type Repository interface {
	Get(ctx context.Context, key Key) ([]byte, error)
	Set(ctx context.Context, key Key, value []byte) error
	Has(ctx context.Context, key Key) (bool, error)
	Delete(ctx context.Context, keys ...Key) error
	Clear(ctx context.Context) error
}
