package core

import (
	"sync"

	"oneclick_bridge/contract"
)

type registrationKind int

const (
	// capabilityRegistration forwards outcomes as success/failure events.
	capabilityRegistration registrationKind = iota
	// loginRegistration forwards outcomes as login_success/login_failure events.
	loginRegistration
)

func (k registrationKind) String() string {
	if k == loginRegistration {
		return "login"
	}
	return "capability"
}

type registration struct {
	kind registrationKind
	seq  uint64
}

// registrations tracks the one CallbackRegistration installed on the handle.
// Callbacks from a replaced registration are ignored even if the SDK keeps
// invoking them.
type registrations struct {
	mu      sync.Mutex
	current *registration
	seq     uint64
}

func (r *registrations) replace(kind registrationKind) *registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.current = &registration{kind: kind, seq: r.seq}
	return r.current
}

func (r *registrations) active(reg *registration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return reg != nil && r.current == reg
}

func (r *registrations) clear() {
	r.mu.Lock()
	r.current = nil
	r.mu.Unlock()
}

func (r *registrations) clearIf(reg *registration) {
	r.mu.Lock()
	if r.current == reg {
		r.current = nil
	}
	r.mu.Unlock()
}

// installCallback replaces the registration on h with one of the given kind.
func (s *Service) installCallback(h contract.Handle, kind registrationKind) error {
	reg := s.callbacks.replace(kind)
	cb := contract.CallbackFuncs{
		Success: func(data string, extra map[string]any) {
			s.forward(reg, successEvent(kind, data, extra))
		},
		Failure: func(reason string, extra map[string]any) {
			s.forward(reg, failureEvent(kind, reason, extra))
		},
	}
	if err := guard(func() error { return h.RegisterCallback(cb) }); err != nil {
		s.callbacks.clearIf(reg)
		return err
	}
	return nil
}

func (s *Service) forward(reg *registration, event contract.Event) {
	if !s.callbacks.active(reg) {
		s.logger.Debug("dropping callback from replaced registration",
			"registration", reg.kind.String(), "type", string(event.Type))
		return
	}
	s.Emit(event)
}

func successEvent(kind registrationKind, data string, extra map[string]any) contract.Event {
	if kind == loginRegistration {
		return contract.NewEvent(contract.LoginSuccessEvent, map[string]any{
			"success": true,
			"data":    data,
		}, extra)
	}
	return contract.NewEvent(contract.SuccessEvent, map[string]any{"data": data}, extra)
}

func failureEvent(kind registrationKind, reason string, extra map[string]any) contract.Event {
	if kind == loginRegistration {
		return contract.NewEvent(contract.LoginFailureEvent, map[string]any{
			"success": false,
			"code":    reason,
		}, extra)
	}
	return contract.NewEvent(contract.FailureEvent, map[string]any{"error": reason}, extra)
}
