package login

import (
	"github.com/spec-kit/testnet-portal/internal/domain"
)

// Status is the UI-relevant login state. Exactly one is active at a time.
type Status string

const (
	StatusLoading  Status = "loading"
	StatusFailed   Status = "failed"
	StatusNotFound Status = "not_found"
	StatusLoaded   Status = "loaded"
	// StatusForced is only ever set by the watchdog, never by reconciliation.
	StatusForced Status = "forced"
)

func (s Status) String() string { return string(s) }

// Settled reports whether s is a terminal outcome of reconciliation.
func (s Status) Settled() bool {
	switch s {
	case StatusLoaded, StatusFailed, StatusNotFound:
		return true
	default:
		return false
	}
}

// Snapshot is a read-only copy of the machine state.
// Profile and Identity are set iff Status is StatusLoaded.
type Snapshot struct {
	Status   Status
	Error    domain.CodedError
	Profile  *domain.Profile
	Identity *domain.IdentityMetadata
}

// IsLoggedIn reports whether the snapshot holds a loaded profile.
func (s Snapshot) IsLoggedIn() bool { return s.Status == StatusLoaded }

// IsLoading reports whether reconciliation has not produced an outcome yet.
func (s Snapshot) IsLoading() bool { return s.Status == StatusLoading }

// IsFailed reports whether reconciliation failed.
func (s Snapshot) IsFailed() bool { return s.Status == StatusFailed }
