// Package bootstrap turns the ambient session of a request into a
// ResolvedIdentity, retrying the profile lookup a bounded number of times.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"instauto_backend/internal/platform/retry"
	"instauto_backend/internal/session"
	"instauto_backend/internal/shared"

	"go.uber.org/zap"
)

var (
	// ErrUnauthenticated means there is no valid session. Recoverable by login.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrProfileNotFound means the session is valid but no profile could be
	// loaded after every attempt. Fatal for the current session.
	ErrProfileNotFound = errors.New("profile not found")

	errMissingProfile = errors.New("profile store returned no record")
)

// Status is the outcome of a resolution.
type Status int

const (
	StatusUnauthenticated Status = iota
	StatusProfileNotFound
	StatusResolved
	// StatusCanceled is reported when the caller went away mid-resolution.
	// It is not an outcome and must never be applied to any state.
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusProfileNotFound:
		return "profile_not_found"
	case StatusResolved:
		return "resolved"
	case StatusCanceled:
		return "canceled"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Result of Resolve. Resolved is non-nil only for StatusResolved.
type Result struct {
	Status   Status
	Resolved *shared.ResolvedIdentity
	Err      error
}

// ProfileFetcher loads the profile keyed by an identity id. A nil profile
// with a nil error is treated as "not there yet".
type ProfileFetcher interface {
	GetProfile(ctx context.Context, id string) (*shared.Profile, error)
}

// Resolver is implemented by Bootstrapper; consumers depend on this.
type Resolver interface {
	Resolve(ctx context.Context) Result
}

// DefaultPolicy is three attempts with one second between them.
func DefaultPolicy() retry.Policy {
	return retry.Fixed(3, time.Second)
}

// Bootstrapper orchestrates the session client and the profile fetcher.
type Bootstrapper struct {
	sessions session.Client
	profiles ProfileFetcher
	policy   retry.Policy
	logger   *zap.Logger
}

func New(sessions session.Client, profiles ProfileFetcher, policy retry.Policy, logger *zap.Logger) *Bootstrapper {
	return &Bootstrapper{
		sessions: sessions,
		profiles: profiles,
		policy:   policy,
		logger:   logger.Named("Bootstrap"),
	}
}

// Resolve reads the session carried by ctx and loads its profile.
//
// A missing or failing session yields StatusUnauthenticated without touching
// the profile store. Profile lookups are retried per the policy, strictly one
// after another; exhaustion yields StatusProfileNotFound.
func (b *Bootstrapper) Resolve(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return canceled(ctx)
	}

	sess, err := b.sessions.GetSession(ctx)
	if err == nil && sess == nil {
		err = session.ErrNoSession
	}
	if err != nil {
		if ctx.Err() != nil {
			return canceled(ctx)
		}
		b.logger.Debug("No usable session", zap.Error(err))
		return Result{Status: StatusUnauthenticated, Err: fmt.Errorf("%w: %w", ErrUnauthenticated, err)}
	}

	identity := sess.Identity()
	log := b.logger.With(zap.String("uid", identity.ID))
	log.Debug("Session found, fetching profile")

	profile, err := retry.Do(ctx, b.policy, func(ctx context.Context, attempt int) (*shared.Profile, error) {
		p, err := b.profiles.GetProfile(ctx, identity.ID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, errMissingProfile
		}
		return p, nil
	}, func(attempt int, err error, wait time.Duration) {
		log.Warn("Profile fetch failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	if err != nil {
		if ctx.Err() != nil {
			return canceled(ctx)
		}
		log.Error("Profile not found after retries", zap.Int("attempts", b.policy.MaxAttempts), zap.Error(err))
		return Result{Status: StatusProfileNotFound, Err: fmt.Errorf("%w: uid %s: %w", ErrProfileNotFound, identity.ID, err)}
	}

	log.Debug("Identity resolved", zap.String("role", string(profile.Role)))
	return Result{
		Status:   StatusResolved,
		Resolved: &shared.ResolvedIdentity{Identity: identity, Profile: *profile},
	}
}

func canceled(ctx context.Context) Result {
	return Result{Status: StatusCanceled, Err: context.Cause(ctx)}
}
