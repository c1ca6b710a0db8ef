package login

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Option customizes Machine construction.
type Option func(*Machine)

// WithLogger sets the logger used for transitions and diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithErrorHandler installs the owner's error boundary. It receives failures
// that are neither backend-reported nor a recognized unauthenticated signal.
func WithErrorHandler(fn func(error)) Option {
	return func(m *Machine) {
		if fn != nil {
			m.onError = fn
		}
	}
}

// WithSubscriber registers fn before reconciliation starts, so it observes
// every mutation including one applied immediately after New returns.
func WithSubscriber(fn func(Snapshot)) Option {
	return func(m *Machine) {
		if fn == nil {
			return
		}
		m.nextListener++
		m.listeners = append(m.listeners, listener{id: m.nextListener, fn: fn})
	}
}

type listener struct {
	id uint64
	fn func(Snapshot)
}

// Machine reconciles an identity token and a backend profile into a Status.
// It is safe for concurrent use.
type Machine struct {
	deps    Dependencies
	logger  *zap.Logger
	onError func(error)

	ctx    context.Context
	cancel context.CancelFunc

	// emitMu orders mutations and their notifications. Held across listener
	// calls, so listeners must not trigger mutations synchronously.
	emitMu sync.Mutex

	mu           sync.Mutex
	cfg          Config
	tokens       TokenSource
	state        Snapshot
	closed       bool
	running      bool
	rerun        bool
	runDone      chan struct{}
	watchdog     *time.Timer
	watchdogGen  uint64
	listeners    []listener
	nextListener uint64
}

// New creates a Machine in StatusLoading and immediately starts the
// reconciliation protocol and, when cfg.Timeout >= 0, the watchdog.
func New(deps Dependencies, cfg Config, opts ...Option) *Machine {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Machine{
		deps:   deps,
		logger: zap.NewNop(),
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		tokens: deps.Tokens,
		state:  Snapshot{Status: StatusLoading},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.onError == nil {
		m.onError = func(err error) {
			m.logger.Error("login reconciliation failed", zap.Error(err))
		}
	}

	m.mu.Lock()
	m.armWatchdogLocked(cfg.Timeout)
	m.mu.Unlock()

	m.startRun()
	return m
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns the current status.
func (m *Machine) Status() Status {
	return m.Snapshot().Status
}

// IsLoggedIn reports whether the current status is StatusLoaded.
func (m *Machine) IsLoggedIn() bool { return m.Snapshot().IsLoggedIn() }

// IsLoading reports whether the current status is StatusLoading.
func (m *Machine) IsLoading() bool { return m.Snapshot().IsLoading() }

// IsFailed reports whether the current status is StatusFailed.
func (m *Machine) IsFailed() bool { return m.Snapshot().IsFailed() }

// Config returns the active configuration.
func (m *Machine) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Subscribe registers fn to be called synchronously after every applied
// mutation, in mutation order. The returned func removes the listener.
func (m *Machine) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.mu.Lock()
	m.nextListener++
	id := m.nextListener
	m.listeners = append(m.listeners, listener{id: id, fn: fn})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, l := range m.listeners {
				if l.id == id {
					m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Reconfigure swaps the configuration. A changed Timeout cancels the pending
// watchdog and arms a new one; a changed Redirect re-runs reconciliation
// while no profile has been loaded.
func (m *Machine) Reconfigure(cfg Config) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	prev := m.cfg
	m.cfg = cfg
	if cfg.Timeout != prev.Timeout {
		m.armWatchdogLocked(cfg.Timeout)
	}
	m.mu.Unlock()

	if cfg.Redirect != prev.Redirect {
		m.startRun()
	}
}

// SetTokenSource replaces the identity-token capability and re-runs
// reconciliation while no profile has been loaded.
func (m *Machine) SetTokenSource(tokens TokenSource) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.tokens = tokens
	m.mu.Unlock()

	m.startRun()
}

// Wait blocks until no reconciliation run is outstanding.
func (m *Machine) Wait(ctx context.Context) error {
	m.mu.Lock()
	done := m.runDone
	running := m.running
	m.mu.Unlock()
	if !running {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Await blocks until the status leaves StatusLoading or ctx is done, and
// returns the latest snapshot either way.
func (m *Machine) Await(ctx context.Context) (Snapshot, error) {
	changed := make(chan struct{}, 1)
	unsubscribe := m.Subscribe(func(Snapshot) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	for {
		snap := m.Snapshot()
		if snap.Status != StatusLoading {
			return snap, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return m.Snapshot(), ctx.Err()
		}
	}
}

// Close tears the machine down: the watchdog is stopped, in-flight calls see
// a cancelled context and any result they produce is discarded.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	if m.watchdog != nil {
		m.watchdog.Stop()
		m.watchdog = nil
	}
	m.watchdogGen++
	m.listeners = nil
	m.mu.Unlock()

	m.cancel()
}

// Closed reports whether Close has been called.
func (m *Machine) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// update applies mutate under the state lock and notifies listeners when it
// reports a change. It is a no-op after Close.
func (m *Machine) update(mutate func(*Snapshot) bool) bool {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	from := m.state.Status
	if !mutate(&m.state) {
		m.mu.Unlock()
		return false
	}
	snap := m.state
	listeners := append([]listener(nil), m.listeners...)
	m.mu.Unlock()

	m.logger.Debug("login status changed",
		zap.String("from", from.String()),
		zap.String("to", snap.Status.String()))

	for _, l := range listeners {
		l.fn(snap)
	}
	return true
}
