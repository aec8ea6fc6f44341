package core

import (
	"sync"

	"oneclick_bridge/contract"
)

type sinkRef struct {
	sink    contract.EventSink
	refs    int
	retired bool
}

// sinkSlot holds the single event subscriber. A replaced subscriber receives
// EndOfStream once no delivery is using it anymore.
type sinkSlot struct {
	mu  sync.Mutex
	ref *sinkRef
}

// Store replaces the current subscriber; nil detaches.
func (s *sinkSlot) Store(sink contract.EventSink) {
	s.mu.Lock()
	old := s.ref
	if sink == nil {
		s.ref = nil
	} else {
		s.ref = &sinkRef{sink: sink}
	}
	release := s.retireLocked(old)
	s.mu.Unlock()

	if release != nil {
		release.EndOfStream()
	}
}

// ClearIf detaches sink only when it is still the current subscriber.
func (s *sinkSlot) ClearIf(sink contract.EventSink) bool {
	s.mu.Lock()
	old := s.ref
	if old == nil || old.sink != sink {
		s.mu.Unlock()
		return false
	}
	s.ref = nil
	release := s.retireLocked(old)
	s.mu.Unlock()

	if release != nil {
		release.EndOfStream()
	}
	return true
}

func (s *sinkSlot) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ref != nil
}

// Acquire returns the current subscriber and pins it; must be paired with Release.
func (s *sinkSlot) Acquire() *sinkRef {
	s.mu.Lock()
	ref := s.ref
	if ref != nil {
		ref.refs++
	}
	s.mu.Unlock()
	return ref
}

func (s *sinkSlot) Release(ref *sinkRef) {
	if ref == nil {
		return
	}
	s.mu.Lock()
	ref.refs--
	var release contract.EventSink
	if ref.refs == 0 && ref.retired {
		release = ref.sink
	}
	s.mu.Unlock()

	if release != nil {
		release.EndOfStream()
	}
}

func (s *sinkSlot) retireLocked(old *sinkRef) contract.EventSink {
	if old == nil || old.retired {
		return nil
	}
	old.retired = true
	if old.refs == 0 {
		return old.sink
	}
	return nil
}
