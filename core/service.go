package core

import (
	"errors"
	"fmt"
	"log/slog"

	"oneclick_bridge/contract"
	"oneclick_bridge/logging"
	"oneclick_bridge/metrics"
)

var (
	ErrNotInitialized   = errors.New("SDK not initialized")
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrResourceNotFound = errors.New("resource not found")
	ErrSubmitRejected   = errors.New("probe pool is closed")
	ErrNoSDK            = errors.New("no SDK configured")
)

type Options struct {
	SDK       contract.SDK
	Resources contract.ResourceLookup
	// Buckets is the resource lookup order; empty means DefaultBuckets.
	Buckets []string
	// Poster is the delivery context. Nil runs tasks inline on the caller.
	Poster       contract.Poster
	ProbeWorkers int
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

// Service owns the bridge state: the SDK handle, the callback registration
// and the single event subscriber.
type Service struct {
	sdk       contract.SDK
	resources contract.ResourceLookup
	buckets   []string
	poster    contract.Poster
	logger    *slog.Logger
	metrics   *metrics.Metrics

	handle    handleState
	sinks     sinkSlot
	callbacks registrations
	probes    *probePool
}

func New(opts Options) *Service {
	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = DefaultBuckets
	}
	poster := opts.Poster
	if poster == nil {
		poster = inlinePoster{}
	}
	return &Service{
		sdk:       opts.SDK,
		resources: opts.Resources,
		buckets:   append([]string(nil), buckets...),
		poster:    poster,
		logger:    logging.Component(opts.Logger, "core"),
		metrics:   opts.Metrics,
		probes:    newProbePool(opts.ProbeWorkers),
	}
}

// Ready reports whether an SDK handle is registered.
func (s *Service) Ready() bool {
	_, ready := s.handle.get()
	return ready
}

// SetLanguage forwards the SDK-wide language setting. It does not need a
// registered handle.
func (s *Service) SetLanguage(code string) error {
	if s.sdk == nil {
		return ErrNoSDK
	}
	return guard(func() error { return s.sdk.SetLanguage(code) })
}

// Initialize registers with the SDK and moves the handle to Ready. A handle
// that was already Ready is replaced and its callback registration dropped.
func (s *Service) Initialize(token, ak, sk string) error {
	if s.sdk == nil {
		return ErrNoSDK
	}
	h, err := guardValue(func() (contract.Handle, error) {
		return s.sdk.Register(token, ak, sk)
	})
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	if h == nil {
		return errors.New("register: SDK returned no handle")
	}
	if prev := s.handle.set(h); prev != nil {
		s.callbacks.clear()
		s.logger.Info("SDK handle replaced by re-initialization")
	}
	s.metrics.SetReady(true)
	return nil
}

// SetCallback installs a capability registration forwarding success/failure
// events.
func (s *Service) SetCallback() error {
	h, ready := s.handle.get()
	if !ready {
		return ErrNotInitialized
	}
	return s.installCallback(h, capabilityRegistration)
}

// StartLogin triggers a login attempt without waiting for its outcome.
func (s *Service) StartLogin() error {
	h, ready := s.handle.get()
	if !ready {
		return ErrNotInitialized
	}
	return guard(h.StartLogin)
}

// ShowLogin installs a login registration and starts the attempt. Outcomes
// arrive as login_success/login_failure events.
func (s *Service) ShowLogin() error {
	h, ready := s.handle.get()
	if !ready {
		return ErrNotInitialized
	}
	if err := s.installCallback(h, loginRegistration); err != nil {
		return fmt.Errorf("register login callback: %w", err)
	}
	if err := guard(h.StartLogin); err != nil {
		return fmt.Errorf("start login: %w", err)
	}
	return nil
}

// Listen attaches sink as the event subscriber, replacing any previous one.
func (s *Service) Listen(sink contract.EventSink) {
	s.sinks.Store(sink)
	s.metrics.SetSubscribed(sink != nil)
}

// Subscribed reports whether an event subscriber is attached.
func (s *Service) Subscribed() bool {
	return s.sinks.Attached()
}

// Cancel detaches the current subscriber.
func (s *Service) Cancel() {
	s.sinks.Store(nil)
	s.metrics.SetSubscribed(false)
}

// CancelSink detaches sink only if it is still the current subscriber.
func (s *Service) CancelSink(sink contract.EventSink) bool {
	if !s.sinks.ClearIf(sink) {
		return false
	}
	s.metrics.SetSubscribed(false)
	return true
}

// Emit delivers event to the current subscriber on the delivery context. It
// never blocks; without a subscriber the event is discarded.
func (s *Service) Emit(event contract.Event) {
	if !s.sinks.Attached() {
		s.drop(event, "no subscriber")
		return
	}
	if !s.poster.Post(func() { s.deliver(event) }) {
		s.drop(event, "delivery context closed")
	}
}

func (s *Service) deliver(event contract.Event) {
	ref := s.sinks.Acquire()
	if ref == nil {
		s.drop(event, "no subscriber")
		return
	}
	defer s.sinks.Release(ref)
	ref.sink.Success(event)
	s.metrics.ObserveEvent(string(event.Type), metrics.EventDelivered)
}

func (s *Service) drop(event contract.Event, reason string) {
	s.logger.Debug("event dropped", "type", string(event.Type), "reason", reason)
	s.metrics.ObserveEvent(string(event.Type), metrics.EventDropped)
}

// Detach tears the bridge down: the handle returns to Unset, the callback
// registration is cleared and the subscriber detached. Initialize works again
// afterwards.
func (s *Service) Detach() {
	s.callbacks.clear()
	if h := s.handle.reset(); h != nil {
		if err := guard(func() error { return h.RegisterCallback(nil) }); err != nil {
			s.logger.Warn("failed to clear SDK callback on detach", "error", err)
		}
	}
	s.sinks.Store(nil)
	s.metrics.SetReady(false)
	s.metrics.SetSubscribed(false)
}

// Close stops the probe pool. Probes already submitted still complete.
func (s *Service) Close() {
	s.probes.close()
}

type inlinePoster struct{}

func (inlinePoster) Post(task func()) bool {
	task()
	return true
}
