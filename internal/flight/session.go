package flight

import (
	"fmt"
	"sync"
)

type SessionState int

const (
	SessionInactive SessionState = iota
	SessionNegotiating
	SessionActive
	SessionFailed
)

func (s SessionState) String() string {
	switch s {
	case SessionInactive:
		return "inactive"
	case SessionNegotiating:
		return "negotiating"
	case SessionActive:
		return "active"
	case SessionFailed:
		return "failed"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// Session tracks the offboard mode handshake with the autopilot.
type Session struct {
	mu       sync.Mutex
	state    SessionState
	attempts int
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attempts is the number of start attempts made so far.
func (s *Session) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *Session) set(state SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *Session) attempt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	return s.attempts
}
