package login

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/testnet-portal/internal/domain"
)

const (
	msgNoToken = "No token available."
	msgNoUser  = "No user found."
)

// startRun begins a reconciliation run unless the machine is closed, a
// profile is already loaded, or the capabilities are missing. While a run
// is in flight, further triggers collapse into a single follow-up run.
func (m *Machine) startRun() {
	m.mu.Lock()
	if m.closed || m.state.Profile != nil {
		m.mu.Unlock()
		return
	}
	if m.running {
		m.rerun = true
		m.mu.Unlock()
		return
	}
	if !m.capableLocked() {
		m.mu.Unlock()
		m.logger.Debug("login capabilities unavailable; skipping reconciliation")
		return
	}
	tokens, cfg := m.tokens, m.cfg
	m.running = true
	done := make(chan struct{})
	m.runDone = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		for {
			m.reconcile(m.ctx, tokens, cfg)

			m.mu.Lock()
			again := m.rerun && !m.closed && m.state.Profile == nil && m.capableLocked()
			m.rerun = false
			if !again {
				m.running = false
				m.mu.Unlock()
				return
			}
			tokens, cfg = m.tokens, m.cfg
			m.mu.Unlock()
		}
	}()
}

func (m *Machine) capableLocked() bool {
	return m.tokens != nil && m.deps.Identity != nil && m.deps.Profiles != nil
}

// reconcile runs one pass of the protocol: token, then metadata and profile
// in parallel, then classification into a Status.
func (m *Machine) reconcile(ctx context.Context, tokens TokenSource, cfg Config) {
	defer func() {
		if r := recover(); r != nil {
			m.fail(fmt.Errorf("login: panic during reconciliation: %v", r))
		}
	}()

	token, err := tokens.IDToken(ctx)
	if err != nil {
		// Expected for logged-out users.
		m.logger.Warn("identity token unavailable", zap.Error(err))
		token = ""
	}

	if token == "" {
		if cfg.Redirect != "" && m.deps.Redirector != nil {
			m.logger.Info("no identity token; redirecting", zap.String("path", cfg.Redirect))
			if err := m.deps.Redirector.Redirect(ctx, cfg.Redirect); err != nil {
				m.logger.Warn("redirect failed", zap.String("path", cfg.Redirect), zap.Error(err))
			}
			return
		}
		m.settle(StatusNotFound, domain.NewLocalError(msgNoToken, http.StatusInternalServerError), nil, nil)
		return
	}

	identity, profile, err := m.fetch(ctx, token)
	if err != nil {
		m.classify(err)
		return
	}
	m.settle(StatusLoaded, nil, profile, identity)
}

// fetch loads identity metadata and the backend profile concurrently. Both
// must succeed; the first error cancels the other call and is returned.
func (m *Machine) fetch(ctx context.Context, token string) (*domain.IdentityMetadata, *domain.Profile, error) {
	var (
		identity *domain.IdentityMetadata
		profile  *domain.Profile
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return recovered(func() (err error) {
			identity, err = m.deps.Identity.Metadata(gctx, token)
			if err != nil {
				return &identityError{err: err}
			}
			return nil
		})
	})
	g.Go(func() error {
		return recovered(func() (err error) {
			profile, err = m.deps.Profiles.FetchProfile(gctx, token)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if profile == nil {
		return nil, nil, domain.NewLocalError("empty profile response", http.StatusInternalServerError)
	}
	return identity, profile, nil
}

// identityError marks a failure of the identity provider call. Only the
// unauthenticated signal is classified; everything else goes to the error
// handler.
type identityError struct {
	err error
}

func (e *identityError) Error() string { return "identity metadata: " + e.err.Error() }

func (e *identityError) Unwrap() error { return e.err }

// classify maps a fetch failure onto a Status. Typed backend errors settle
// directly; identity provider and unrecognized failures go to the error
// handler.
func (m *Machine) classify(err error) {
	var (
		idErr    *identityError
		apiErr   *domain.APIError
		localErr *domain.LocalError
	)
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		m.logger.Info("identity provider rejected token")
		m.settle(StatusNotFound, nil, nil, nil)
	case errors.As(err, &idErr):
		m.fail(err)
	case errors.As(err, &apiErr) && apiErr.Tagged():
		m.settle(StatusFailed, apiErr, nil, nil)
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized:
		m.logger.Warn("no backend user for identity token")
		m.settle(StatusNotFound, domain.NewLocalError(msgNoUser, http.StatusInternalServerError), nil, nil)
	case errors.As(err, &apiErr):
		m.settle(StatusFailed, apiErr, nil, nil)
	case errors.As(err, &localErr):
		m.settle(StatusFailed, localErr, nil, nil)
	default:
		m.fail(err)
	}
}

// settle writes a reconciliation outcome. The last write wins: an outcome
// arriving after the watchdog fired replaces StatusForced.
func (m *Machine) settle(status Status, cause domain.CodedError, profile *domain.Profile, identity *domain.IdentityMetadata) {
	applied := m.update(func(s *Snapshot) bool {
		s.Status = status
		s.Error = cause
		s.Profile = profile
		s.Identity = identity
		return true
	})
	if applied && cause != nil {
		m.logger.Info("login settled", zap.String("status", status.String()), zap.Error(cause))
	}
}

// fail reports err to the owner and, if nothing has been decided yet, marks
// the machine failed so consumers never wait on a loading state forever.
func (m *Machine) fail(err error) {
	if m.Closed() {
		return
	}
	m.onError(err)
	m.update(func(s *Snapshot) bool {
		if s.Status != StatusLoading {
			return false
		}
		s.Status = StatusFailed
		s.Error = domain.WrapLocalError("unexpected login failure", err)
		return true
	})
}

func recovered(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("login: capability panicked: %v", r)
		}
	}()
	return fn()
}
