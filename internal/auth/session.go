package auth

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/desertthunder/copyurl/internal/shared"
)

// State is a step of the credential acquisition state machine.
type State int

const (
	StateNoCredential State = iota
	StateAwaitingUserChoice
	StateInteractiveAuthInProgress
	StateDevCredentialLoaded
	StateAuthenticated
	StateRefreshing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNoCredential:
		return "no_credential"
	case StateAwaitingUserChoice:
		return "awaiting_user_choice"
	case StateInteractiveAuthInProgress:
		return "interactive_auth_in_progress"
	case StateDevCredentialLoaded:
		return "dev_credential_loaded"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Mode records which credential a session was built from.
type Mode int

const (
	ModeNone Mode = iota
	ModeDeveloper
	ModeUser
)

func (m Mode) String() string {
	switch m {
	case ModeDeveloper:
		return "developer"
	case ModeUser:
		return "user"
	default:
		return "none"
	}
}

// Session is one fully built authenticated client. It is never mutated after publication;
// a refresh produces a new Session.
type Session struct {
	Mode       Mode
	HTTPClient *http.Client
	CreatedAt  time.Time
}

// Handle owns the single active [Session].
//
// Writers build a complete replacement and [Handle.Publish] it in one atomic store, so
// readers see either the previous session or the new one.
type Handle struct {
	current atomic.Pointer[Session]
}

// Publish replaces the active session. Incomplete sessions are rejected.
func (h *Handle) Publish(s *Session) error {
	if s == nil || s.HTTPClient == nil {
		return fmt.Errorf("%w: refusing to publish an incomplete session", shared.ErrInvalidArgument)
	}
	h.current.Store(s)
	return nil
}

// Current returns the active session or [shared.ErrSessionUnavailable].
func (h *Handle) Current() (*Session, error) {
	s := h.current.Load()
	if s == nil {
		return nil, shared.ErrSessionUnavailable
	}
	return s, nil
}

// Ready reports whether a session has been published.
func (h *Handle) Ready() bool {
	return h.current.Load() != nil
}
