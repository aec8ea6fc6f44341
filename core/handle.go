package core

import (
	"sync"

	"oneclick_bridge/contract"
)

// handleState is the process-wide SDK handle: Unset while handle is nil,
// Ready otherwise.
type handleState struct {
	mu     sync.RWMutex
	handle contract.Handle
}

func (s *handleState) get() (contract.Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handle, s.handle != nil
}

// set stores h and returns the handle it replaced, if any.
func (s *handleState) set(h contract.Handle) contract.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.handle
	s.handle = h
	return prev
}

// reset returns the state to Unset and hands back the released handle.
func (s *handleState) reset() contract.Handle {
	return s.set(nil)
}
