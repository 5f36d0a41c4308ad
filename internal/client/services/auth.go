// Package services contains application services for the tokenkeeper CLI.
// This file defines the auth vault: the operator's admin API bearer token
// sealed at rest under a local passphrase.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/client"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/credentials"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/cryptox"
	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
)

// ErrNoSavedSession is returned by Unlock when nothing was sealed yet.
var ErrNoSavedSession = errors.New("no saved session")

// AuthService defines session operations for the CLI.
//
// Contract:
//   - Login: seal the bearer token under passphrase and persist it.
//   - Unlock: verify passphrase offline and return the bearer token.
//   - HasSavedSession: report whether Unlock can succeed at all.
//   - Logout: wipe the sealed session.
//   - Ping / Close: proxy to the API client.
type AuthService interface {
	Login(ctx context.Context, bearer string, passphrase []byte) (credentials.Identity, error)
	Unlock(ctx context.Context, passphrase []byte) (string, error)
	HasSavedSession(ctx context.Context) (bool, error)
	SavedOperator(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
}

// NewAuthService constructs an AuthService bound to the given API client and DB.
func NewAuthService(c client.Client, db *sql.DB) AuthService {
	return &authService{client: c, db: db}
}

func (a *authService) getMetadataRepo() metadata.Repository {
	return metadata.NewSQLiteRepository(a.db)
}

// Login seals bearer under a key derived from passphrase and stores salt,
// verifier, ciphertext and nonce in one transaction. The token is not
// checked against the server here; the first status call does that.
func (a *authService) Login(ctx context.Context, bearer string, passphrase []byte) (credentials.Identity, error) {
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return credentials.Identity{}, credentials.ErrNoCredentials
	}
	if len(passphrase) == 0 {
		return credentials.Identity{}, errors.New("passphrase is required")
	}

	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	key := cryptox.DeriveKey(passphrase, salt)
	defer common.WipeByteArray(key)

	sealed, nonce, err := cryptox.Seal([]byte(bearer), key)
	if err != nil {
		return credentials.Identity{}, fmt.Errorf("seal token: %w", err)
	}

	identity, _ := credentials.Inspect(bearer)

	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		values := map[metadata.Key][]byte{
			metadata.KeySalt:        salt,
			metadata.KeyVerifier:    cryptox.MakeVerifier(key),
			metadata.KeySealedToken: sealed,
			metadata.KeyTokenNonce:  nonce,
			metadata.KeyOperator:    []byte(identity.Display()),
		}
		for _, k := range metadata.SessionKeys {
			if err := repo.Set(ctx, k, values[k]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return credentials.Identity{}, fmt.Errorf("save session: %w", err)
	}
	return identity, nil
}

// Unlock derives the key from passphrase, checks it against the stored
// verifier and opens the sealed token.
func (a *authService) Unlock(ctx context.Context, passphrase []byte) (string, error) {
	repo := a.getMetadataRepo()

	vals := make(map[metadata.Key][]byte, 4)
	for _, k := range []metadata.Key{metadata.KeySalt, metadata.KeyVerifier, metadata.KeySealedToken, metadata.KeyTokenNonce} {
		v, err := repo.Get(ctx, k)
		if errors.Is(err, metadata.ErrNotFound) {
			return "", ErrNoSavedSession
		}
		if err != nil {
			return "", err
		}
		vals[k] = v
	}

	key := cryptox.DeriveKey(passphrase, vals[metadata.KeySalt])
	defer common.WipeByteArray(key)

	if subtle.ConstantTimeCompare(vals[metadata.KeyVerifier], cryptox.MakeVerifier(key)) == 0 {
		return "", common.ErrWrongPassphrase
	}

	plain, err := cryptox.Open(vals[metadata.KeySealedToken], vals[metadata.KeyTokenNonce], key)
	if err != nil {
		return "", fmt.Errorf("open sealed token: %w", err)
	}
	defer common.WipeByteArray(plain)
	return string(plain), nil
}

func (a *authService) HasSavedSession(ctx context.Context) (bool, error) {
	return a.getMetadataRepo().Has(ctx, metadata.KeySealedToken)
}

// SavedOperator returns the operator label recorded at login, or "".
func (a *authService) SavedOperator(ctx context.Context) (string, error) {
	v, err := a.getMetadataRepo().Get(ctx, metadata.KeyOperator)
	if errors.Is(err, metadata.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (a *authService) Logout(ctx context.Context) error {
	return a.getMetadataRepo().Clear(ctx)
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
