package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/testnet-portal/internal/domain"
	"github.com/spec-kit/testnet-portal/internal/events"
	"github.com/spec-kit/testnet-portal/internal/login"
	"github.com/spec-kit/testnet-portal/internal/observability"
)

type stubIdentity struct{}

func (stubIdentity) Metadata(_ context.Context, token string) (*domain.IdentityMetadata, error) {
	if token == "revoked" {
		return nil, domain.ErrUnauthenticated
	}
	return &domain.IdentityMetadata{Issuer: "did:" + token}, nil
}

type stubProfiles struct{}

func (stubProfiles) FetchProfile(_ context.Context, token string) (*domain.Profile, error) {
	return &domain.Profile{ID: 7, Graffiti: "graffiti-" + token}, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRegistry(t *testing.T, cfg login.Config, dispatcher events.Dispatcher) *Registry {
	t.Helper()
	r := NewRegistry(Dependencies{
		Identity:   stubIdentity{},
		Profiles:   stubProfiles{},
		Dispatcher: dispatcher,
	}, Options{Login: cfg, IdleTTL: time.Minute}, nil)
	t.Cleanup(r.Shutdown)
	return r
}

func settle(t *testing.T, s *Session) login.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Machine().Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	return s.Machine().Snapshot()
}

func TestAcquire_CreatesAndReusesSession(t *testing.T) {
	r := newTestRegistry(t, login.DefaultConfig(), nil)

	s, created := r.Acquire("", "tok")
	if !created || s.ID == "" {
		t.Fatalf("Acquire = (%q, %v), want new session", s.ID, created)
	}
	if snap := settle(t, s); snap.Status != login.StatusLoaded {
		t.Fatalf("status = %s, want %s", snap.Status, login.StatusLoaded)
	}

	again, created := r.Acquire(s.ID, "tok")
	if created || again != s {
		t.Fatalf("second Acquire created = %v, same = %v; want reuse", created, again == s)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
}

func TestAcquire_UnknownIDGetsFreshSession(t *testing.T) {
	r := newTestRegistry(t, login.DefaultConfig(), nil)

	s, created := r.Acquire("made-up", "")
	if !created {
		t.Fatal("Acquire should create a session for an unknown id")
	}
	if s.ID == "made-up" {
		t.Fatal("Acquire adopted a client-chosen session id")
	}
}

func TestAcquire_NoTokenWithRedirectRecordsRedirect(t *testing.T) {
	r := newTestRegistry(t, login.Config{Redirect: "/login", Timeout: login.NoTimeout}, nil)

	s, _ := r.Acquire("", "")
	snap := settle(t, s)

	if snap.Status != login.StatusLoading {
		t.Fatalf("status = %s, want %s", snap.Status, login.StatusLoading)
	}
	if got := s.PendingRedirect(); got != "/login" {
		t.Fatalf("pending redirect = %q, want /login", got)
	}
}

func TestAcquire_NewTokenRerunsReconciliation(t *testing.T) {
	r := newTestRegistry(t, login.DefaultConfig(), nil)

	s, _ := r.Acquire("", "revoked")
	if snap := settle(t, s); snap.Status != login.StatusNotFound {
		t.Fatalf("status = %s, want %s", snap.Status, login.StatusNotFound)
	}

	r.Acquire(s.ID, "fresh")
	snap := settle(t, s)
	if snap.Status != login.StatusLoaded {
		t.Fatalf("status = %s, want %s", snap.Status, login.StatusLoaded)
	}
	if snap.Profile.Graffiti != "graffiti-fresh" {
		t.Fatalf("graffiti = %q, want graffiti-fresh", snap.Profile.Graffiti)
	}
}

type gatedProfiles struct {
	mu   sync.Mutex
	open bool
}

func (p *gatedProfiles) FetchProfile(_ context.Context, token string) (*domain.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return nil, &domain.APIError{StatusCode: 401}
	}
	return &domain.Profile{ID: 3, Graffiti: "graffiti-" + token}, nil
}

func TestLogin_RerunsWithUnchangedToken(t *testing.T) {
	profiles := &gatedProfiles{}
	r := NewRegistry(Dependencies{
		Identity: stubIdentity{},
		Profiles: profiles,
	}, Options{Login: login.DefaultConfig()}, nil)
	t.Cleanup(r.Shutdown)

	s, _ := r.Acquire("", "tok")
	if snap := settle(t, s); snap.Status != login.StatusNotFound {
		t.Fatalf("status = %s, want %s", snap.Status, login.StatusNotFound)
	}

	profiles.mu.Lock()
	profiles.open = true
	profiles.mu.Unlock()

	r.Acquire(s.ID, "tok")
	if snap := settle(t, s); snap.Status != login.StatusNotFound {
		t.Fatalf("Acquire with same token: status = %s, want %s", snap.Status, login.StatusNotFound)
	}

	again, created := r.Login(s.ID, "tok")
	if created || again != s {
		t.Fatalf("Login created = %v, same = %v; want reuse", created, again == s)
	}
	snap := settle(t, s)
	if snap.Status != login.StatusLoaded || snap.Profile.ID != 3 {
		t.Fatalf("status = %s profile = %+v, want loaded user 3", snap.Status, snap.Profile)
	}
}

func TestRelease_ClosesMachine(t *testing.T) {
	r := newTestRegistry(t, login.DefaultConfig(), nil)

	s, _ := r.Acquire("", "tok")
	if !r.Release(s.ID) {
		t.Fatal("Release = false, want true")
	}
	if !s.Machine().Closed() {
		t.Fatal("machine not closed after Release")
	}
	if r.Len() != 0 {
		t.Fatalf("Len = %d, want 0", r.Len())
	}
	if r.Release(s.ID) {
		t.Fatal("second Release = true, want false")
	}
}

func TestSweep_ReleasesIdleSessions(t *testing.T) {
	r := newTestRegistry(t, login.DefaultConfig(), nil)
	start := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	r.now = clock.Now

	idle, _ := r.Acquire("", "tok")
	clock.Advance(50 * time.Second)
	active, _ := r.Acquire("", "tok")

	if n := r.Sweep(start.Add(90 * time.Second)); n != 1 {
		t.Fatalf("Sweep = %d, want 1", n)
	}
	if _, ok := r.Get(idle.ID); ok {
		t.Fatal("idle session survived sweep")
	}
	if _, ok := r.Get(active.ID); !ok {
		t.Fatal("active session was swept")
	}
}

func TestRun_DeliversLifecycleEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	got := make(chan events.Event, 8)
	record := func(_ context.Context, ev events.Event) error {
		got <- ev
		return nil
	}
	dispatcher.Subscribe(events.EventLoginSettled, record)
	dispatcher.Subscribe(events.EventSessionClosed, record)

	r := newTestRegistry(t, login.DefaultConfig(), dispatcher)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx, 0)
	}()

	s, _ := r.Acquire("", "tok")
	settle(t, s)
	r.Release(s.ID)

	want := []events.EventType{events.EventLoginSettled, events.EventSessionClosed}
	for i, typ := range want {
		select {
		case ev := <-got:
			if ev.Type != typ || ev.SessionID != s.ID {
				t.Fatalf("event %d = %s/%s, want %s/%s", i, ev.Type, ev.SessionID, typ, s.ID)
			}
			if typ == events.EventLoginSettled {
				payload, ok := ev.Payload.(events.LoginSettledPayload)
				if !ok || payload.Status != "loaded" || payload.UserID == nil || *payload.UserID != 7 {
					t.Fatalf("settled payload = %+v, want loaded user 7", ev.Payload)
				}
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", typ)
		}
	}

	cancel()
	<-done
}

func TestEmit_FullQueueDropsAndCounts(t *testing.T) {
	metrics := observability.NewMetrics()
	r := NewRegistry(Dependencies{
		Identity:   stubIdentity{},
		Profiles:   stubProfiles{},
		Dispatcher: events.NewInMemoryDispatcher(nil),
		Metrics:    metrics,
	}, Options{Login: login.DefaultConfig()}, nil)
	r.outbox = make(chan events.Event)
	t.Cleanup(r.Shutdown)

	s, _ := r.Acquire("", "tok")
	settle(t, s)

	if got := metrics.Snapshot().Dropped; got != 1 {
		t.Fatalf("dropped = %d, want 1", got)
	}
}
