// Package devauth is a session client for local development and demos. It
// issues HS256 tokens for a configured set of accounts.
//
// Revocation state is kept in memory only. Every token also carries the id of
// the process that issued it, so a restart invalidates all earlier tokens
// rather than reviving the ones revoked before it.
package devauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"instauto_backend/internal/config"
	"instauto_backend/internal/platform/crypto"
	"instauto_backend/internal/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const issuer = "instauto-dev"

// ErrUnknownAccount is returned by Issue for emails not in DEV_AUTH_ACCOUNTS.
var ErrUnknownAccount = errors.New("devauth: unknown account")

// ErrIssuedBeforeRestart rejects tokens signed by an earlier process.
var ErrIssuedBeforeRestart = errors.New("dev token was issued before the last restart")

// Claims carried by a dev token. Gen is the sign-out generation of the
// subject at issue time; Boot identifies the issuing process.
type Claims struct {
	Email string `json:"email"`
	Gen   uint64 `json:"gen"`
	Boot  string `json:"boot"`
	jwt.RegisteredClaims
}

// Issuer issues and verifies dev tokens.
type Issuer struct {
	secret   []byte
	ttl      time.Duration
	accounts map[string]string // email -> uid
	boot     string
	logger   *zap.Logger

	// generations maps uid to its sign-out generation. An entry lives as
	// long as the newest token carrying it, so expiry never revives a
	// revoked token.
	mu          sync.Mutex
	generations *cache.Cache
}

var _ session.Client = (*Issuer)(nil)

// NewIssuer builds an issuer from DEV_AUTH_* settings.
func NewIssuer(cfg *config.Config, logger *zap.Logger) (*Issuer, error) {
	accounts, err := ParseAccounts(cfg.DevAuthAccounts)
	if err != nil {
		return nil, err
	}
	ttl := cfg.DevAuthTokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	boot, err := crypto.NewTokenID()
	if err != nil {
		return nil, fmt.Errorf("could not generate issuer boot id: %w", err)
	}
	logger.Warn("Using local development session provider", zap.Int("accounts", len(accounts)))
	return &Issuer{
		secret:      []byte(cfg.DevAuthSecret),
		ttl:         ttl,
		accounts:    accounts,
		boot:        boot,
		logger:      logger.Named("DevAuth"),
		generations: cache.New(ttl, ttl),
	}, nil
}

// ParseAccounts parses "email=uid,email=uid".
func ParseAccounts(raw string) (map[string]string, error) {
	accounts := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		email, uid, ok := strings.Cut(entry, "=")
		email = strings.ToLower(strings.TrimSpace(email))
		uid = strings.TrimSpace(uid)
		if !ok || email == "" || uid == "" {
			return nil, fmt.Errorf("invalid DEV_AUTH_ACCOUNTS entry %q, want email=uid", entry)
		}
		accounts[email] = uid
	}
	return accounts, nil
}

func (i *Issuer) generation(uid string) uint64 {
	if v, found := i.generations.Get(uid); found {
		return v.(uint64)
	}
	return 0
}

// Issue signs a token for the account registered under email.
func (i *Issuer) Issue(email string) (string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	uid, ok := i.accounts[email]
	if !ok {
		return "", time.Time{}, ErrUnknownAccount
	}

	jti, err := crypto.NewTokenID()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("could not generate token id: %w", err)
	}

	i.mu.Lock()
	gen := i.generation(uid)
	i.generations.Set(uid, gen, i.ttl)
	i.mu.Unlock()

	now := time.Now()
	expiresAt := now.Add(i.ttl)
	claims := &Claims{
		Email: email,
		Gen:   gen,
		Boot:  i.boot,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   uid,
			ID:        jti,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		i.logger.Error("Failed to sign dev token", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("could not sign dev token: %w", err)
	}
	i.logger.Debug("Issued dev token", zap.String("uid", uid), zap.Uint64("gen", gen))
	return signed, expiresAt, nil
}

// GetSession verifies the token carried by ctx.
func (i *Issuer) GetSession(ctx context.Context) (*session.Session, error) {
	raw, ok := session.TokenFromContext(ctx)
	if !ok {
		return nil, session.ErrNoSession
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid dev token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("invalid dev token: missing subject")
	}
	if claims.Boot != i.boot {
		return nil, ErrIssuedBeforeRestart
	}

	i.mu.Lock()
	current := i.generation(claims.Subject)
	i.mu.Unlock()
	if claims.Gen != current {
		return nil, errors.New("dev token has been revoked")
	}

	sess := &session.Session{
		Token: raw,
		UID:   claims.Subject,
		Email: claims.Email,
	}
	if claims.IssuedAt != nil {
		sess.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

// SignOut revokes every token issued to uid so far.
func (i *Issuer) SignOut(ctx context.Context, uid string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	next := i.generation(uid) + 1
	i.generations.Set(uid, next, i.ttl)
	i.logger.Info("Revoked dev tokens", zap.String("uid", uid), zap.Uint64("gen", next))
	return nil
}
