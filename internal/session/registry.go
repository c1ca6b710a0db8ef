package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/testnet-portal/internal/events"
	"github.com/spec-kit/testnet-portal/internal/identity"
	"github.com/spec-kit/testnet-portal/internal/login"
	"github.com/spec-kit/testnet-portal/internal/observability"
)

const (
	defaultIdleTTL    = 30 * time.Minute
	defaultBufferSize = 256

	ReasonReleased = "released"
	ReasonIdle     = "idle"
	ReasonShutdown = "shutdown"
)

// Dependencies are shared by every session's login machine.
type Dependencies struct {
	Identity   login.IdentityProvider
	Profiles   login.ProfileFetcher
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
}

// Options tune the registry.
type Options struct {
	Login   login.Config
	IdleTTL time.Duration
}

// Info is a diagnostic view of one session.
type Info struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Redirect  string    `json:"redirect,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// Registry owns one login.Machine per browser session. Session state lives
// in process memory only.
type Registry struct {
	deps    Dependencies
	cfg     login.Config
	idleTTL time.Duration
	logger  *zap.Logger
	now     func() time.Time
	outbox  chan events.Event

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry builds an empty registry.
func NewRegistry(deps Dependencies, opts Options, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = defaultIdleTTL
	}
	return &Registry{
		deps:     deps,
		cfg:      opts.Login,
		idleTTL:  opts.IdleTTL,
		logger:   logger,
		now:      time.Now,
		outbox:   make(chan events.Event, defaultBufferSize),
		sessions: make(map[string]*Session),
	}
}

// Acquire returns the session for id, creating one when id is unknown. The
// token is the identity token the browser presented on this request; a
// change re-runs reconciliation while the session has no profile.
func (r *Registry) Acquire(id, token string) (*Session, bool) {
	return r.acquire(id, token, false)
}

// Login is Acquire after a backend login: the session re-runs reconciliation
// with token even when the token is unchanged, as long as no profile has been
// loaded yet.
func (r *Registry) Login(id, token string) (*Session, bool) {
	return r.acquire(id, token, true)
}

func (r *Registry) acquire(id, token string, force bool) (*Session, bool) {
	now := r.now()

	r.mu.Lock()
	existing, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		existing.touch(now)
		existing.updateToken(token, force)
		return existing, false
	}

	// Unknown ids are never adopted; the caller gets a fresh one.
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		lastSeen:  now,
		token:     token,
		registry:  r,
	}
	s.machine = r.newMachine(s, r.cfg)

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	r.logger.Debug("session created", zap.String("session_id", s.ID))
	return s, true
}

// Get returns an existing session without touching it.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Release tears down the session's machine and forgets it.
func (r *Registry) Release(id string) bool {
	return r.remove(id, ReasonReleased)
}

// Sweep releases sessions idle for longer than the configured TTL and
// returns how many were collected.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	var expired []string
	for id, s := range r.sessions {
		if now.Sub(s.LastSeen()) > r.idleTTL {
			expired = append(expired, id)
		}
	}
	r.mu.Unlock()

	n := 0
	for _, id := range expired {
		if r.remove(id, ReasonIdle) {
			n++
		}
	}
	if n > 0 {
		r.logger.Info("idle sessions released", zap.Int("count", n))
	}
	return n
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// List returns diagnostics for every live session, oldest first.
func (r *Registry) List() []Info {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	out := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Run delivers queued events to the dispatcher and sweeps idle sessions
// every interval until ctx is cancelled, then closes all sessions.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			r.Shutdown()
			r.drain(context.Background())
			return
		case ev := <-r.outbox:
			r.deliver(ctx, ev)
		case now := <-tick:
			r.Sweep(now)
		}
	}
}

// Shutdown closes every session.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.remove(id, ReasonShutdown)
	}
}

func (r *Registry) remove(id, reason string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}

	last := s.Machine().Status()
	s.close()
	r.emit(s.ID, events.EventSessionClosed, events.SessionClosedPayload{
		Reason:     reason,
		LastStatus: last.String(),
	})
	r.logger.Debug("session closed", zap.String("session_id", id), zap.String("reason", reason))
	return true
}

// emit queues an event without blocking the caller; a full queue drops it.
func (r *Registry) emit(sessionID string, typ events.EventType, payload interface{}) {
	if r.deps.Dispatcher == nil {
		return
	}
	ev := events.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		SessionID: sessionID,
		Timestamp: r.now(),
		Payload:   payload,
	}
	select {
	case r.outbox <- ev:
	default:
		r.deps.Metrics.RecordDroppedEvent()
		r.logger.Warn("event queue full; dropping event",
			zap.String("session_id", sessionID),
			zap.String("event_type", string(typ)))
	}
}

func (r *Registry) deliver(ctx context.Context, ev events.Event) {
	if err := r.deps.Dispatcher.Publish(ctx, ev); err != nil {
		r.logger.Warn("publish event", zap.String("event_type", string(ev.Type)), zap.Error(err))
	}
}

func (r *Registry) drain(ctx context.Context) {
	for {
		select {
		case ev := <-r.outbox:
			r.deliver(ctx, ev)
		default:
			return
		}
	}
}

func (r *Registry) newMachine(s *Session, cfg login.Config) *login.Machine {
	deps := login.Dependencies{
		Tokens:     identity.StaticToken(s.token),
		Identity:   r.deps.Identity,
		Profiles:   r.deps.Profiles,
		Redirector: s,
	}
	logger := r.logger.With(zap.String("session_id", s.ID))
	return login.New(deps, cfg,
		login.WithLogger(logger),
		login.WithSubscriber(s.observe),
		login.WithErrorHandler(func(err error) {
			logger.Error("login reconciliation failed", zap.Error(err))
		}),
	)
}
