// Package bridgetest provides in-memory collaborators for exercising the
// bridge without a real SDK or host transport.
package bridgetest

import (
	"sync"

	"oneclick_bridge/contract"
)

// Handle is a scriptable contract.Handle.
type Handle struct {
	mu sync.Mutex

	Supported   bool
	ProbeErr    error
	ProbePanic  any
	ProbeGate   chan struct{}
	SetLogoErr  error
	StartErr    error
	StartPanic  any
	RegisterErr error

	callbacks []contract.Callback
	current   contract.Callback
	logos     []contract.ResourceID
	starts    int
	probes    int
}

func (h *Handle) SupportsOneClickLogin() (bool, error) {
	h.mu.Lock()
	h.probes++
	gate, p, supported, err := h.ProbeGate, h.ProbePanic, h.Supported, h.ProbeErr
	h.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if p != nil {
		panic(p)
	}
	return supported, err
}

func (h *Handle) SetLogo(id contract.ResourceID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.SetLogoErr != nil {
		return h.SetLogoErr
	}
	h.logos = append(h.logos, id)
	return nil
}

func (h *Handle) RegisterCallback(cb contract.Callback) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.RegisterErr != nil {
		return h.RegisterErr
	}
	h.current = cb
	if cb != nil {
		h.callbacks = append(h.callbacks, cb)
	}
	return nil
}

func (h *Handle) StartLogin() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.StartPanic != nil {
		panic(h.StartPanic)
	}
	if h.StartErr != nil {
		return h.StartErr
	}
	h.starts++
	return nil
}

// Callback returns the currently registered callback, nil if none.
func (h *Handle) Callback() contract.Callback {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// CallbackAt returns the i-th callback ever registered.
func (h *Handle) CallbackAt(i int) contract.Callback {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i < 0 || i >= len(h.callbacks) {
		return nil
	}
	return h.callbacks[i]
}

// Succeed invokes OnSuccess on the current callback, as the SDK would.
func (h *Handle) Succeed(data string, extra map[string]any) {
	if cb := h.Callback(); cb != nil {
		cb.OnSuccess(data, extra)
	}
}

// Fail invokes OnFailure on the current callback.
func (h *Handle) Fail(reason string, extra map[string]any) {
	if cb := h.Callback(); cb != nil {
		cb.OnFailure(reason, extra)
	}
}

func (h *Handle) Logos() []contract.ResourceID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]contract.ResourceID(nil), h.logos...)
}

func (h *Handle) Starts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.starts
}

func (h *Handle) Probes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.probes
}

// SDK is a scriptable contract.SDK returning Handle from Register.
type SDK struct {
	mu sync.Mutex

	Handle        *Handle
	RegisterErr   error
	RegisterPanic any
	LanguageErr   error
	LanguagePanic any

	languages     []string
	registrations [][3]string
}

func NewSDK() *SDK {
	return &SDK{Handle: &Handle{Supported: true}}
}

func (s *SDK) SetLanguage(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LanguagePanic != nil {
		panic(s.LanguagePanic)
	}
	if s.LanguageErr != nil {
		return s.LanguageErr
	}
	s.languages = append(s.languages, code)
	return nil
}

func (s *SDK) Register(token, ak, sk string) (contract.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RegisterPanic != nil {
		panic(s.RegisterPanic)
	}
	if s.RegisterErr != nil {
		return nil, s.RegisterErr
	}
	s.registrations = append(s.registrations, [3]string{token, ak, sk})
	return s.Handle, nil
}

func (s *SDK) Languages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.languages...)
}

func (s *SDK) Registrations() [][3]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][3]string(nil), s.registrations...)
}

// Resources is a bucket -> name -> id table implementing contract.ResourceLookup.
type Resources map[string]map[string]contract.ResourceID

func (r Resources) Lookup(name, bucket string) (contract.ResourceID, bool) {
	id, ok := r[bucket][name]
	return id, ok
}
