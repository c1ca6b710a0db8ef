package login

import (
	"context"
	"time"

	"github.com/spec-kit/testnet-portal/internal/domain"
)

// NoTimeout disables the watchdog.
const NoTimeout time.Duration = -1

// TokenSource yields the current identity token. An empty token with a nil
// error means the caller is not logged in with the identity provider.
type TokenSource interface {
	IDToken(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

// IDToken calls f.
func (f TokenSourceFunc) IDToken(ctx context.Context) (string, error) { return f(ctx) }

// IdentityProvider resolves provider-side metadata for a token. It returns
// domain.ErrUnauthenticated when the provider rejects the token holder.
type IdentityProvider interface {
	Metadata(ctx context.Context, token string) (*domain.IdentityMetadata, error)
}

// ProfileFetcher loads the backend profile for a token. Backend-reported
// failures are *domain.APIError, local ones *domain.LocalError.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, token string) (*domain.Profile, error)
}

// Redirector navigates the owning context away. It is fire-and-forget.
type Redirector interface {
	Redirect(ctx context.Context, path string) error
}

// Dependencies are the capabilities a Machine consumes. A nil Tokens,
// Identity or Profiles means the runtime cannot check logins at all.
type Dependencies struct {
	Tokens     TokenSource
	Identity   IdentityProvider
	Profiles   ProfileFetcher
	Redirector Redirector
}

// Config is the per-instance configuration.
type Config struct {
	// Redirect is the path to navigate to when no token is found. Empty
	// means stay on the page and report StatusNotFound.
	Redirect string
	// Timeout bounds how long the machine may stay in StatusLoading before
	// the watchdog forces StatusForced. Negative disables the watchdog.
	Timeout time.Duration
}

// DefaultConfig returns a configuration with no redirect and no watchdog.
func DefaultConfig() Config {
	return Config{Timeout: NoTimeout}
}
