// Package emulator is a configurable stand-in for the carrier one-click login
// SDK. It is what the CLI host registers against when no vendor SDK is linked.
package emulator

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"oneclick_bridge/contract"
	"oneclick_bridge/logging"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// FailureCode is the reason reported to a callback when a login fails.
type FailureCode string

const (
	KeyError     FailureCode = "KEY_ERROR"
	DataError    FailureCode = "DATA_ERROR"
	NetError     FailureCode = "NET_ERROR"
	PhoneError   FailureCode = "PHONE_ERROR"
	UnknownError FailureCode = "UNKNOWN_ERROR"
)

var (
	ErrMissingCredentials = errors.New("token, ak and sk are required")
	ErrEmptyLogo          = errors.New("empty logo resource")
)

type Config struct {
	// Supported is what the capability probe reports. Logins on an
	// unsupported device fail with PHONE_ERROR.
	Supported    bool
	ProbeLatency time.Duration
	LoginLatency time.Duration
	Outcome      Outcome
	FailureCode  FailureCode
	Phone        string
	Operator     string
}

func DefaultConfig() Config {
	return Config{
		Supported:    true,
		ProbeLatency: 50 * time.Millisecond,
		LoginLatency: 500 * time.Millisecond,
		Outcome:      OutcomeSuccess,
		FailureCode:  UnknownError,
		Phone:        "13800000000",
		Operator:     "CMCC",
	}
}

type SDK struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	language language.Tag
}

func New(cfg Config, logger *slog.Logger) *SDK {
	return &SDK{
		cfg:      cfg,
		logger:   logging.Component(logger, "emulator"),
		language: language.Und,
	}
}

// SetLanguage accepts a BCP-47 tag. An empty code resets to the device
// default.
func (s *SDK) SetLanguage(code string) error {
	tag := language.Und
	if code != "" {
		parsed, err := language.Parse(code)
		if err != nil {
			return fmt.Errorf("language %q: %w", code, err)
		}
		tag = parsed
	}
	s.mu.Lock()
	s.language = tag
	s.mu.Unlock()
	s.logger.Debug("language set", "language", tag.String())
	return nil
}

func (s *SDK) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language.String()
}

func (s *SDK) Register(token, ak, sk string) (contract.Handle, error) {
	if token == "" || ak == "" || sk == "" {
		return nil, ErrMissingCredentials
	}
	s.logger.Info("registered", "ak", ak)
	return &Handle{cfg: s.cfg, logger: s.logger}, nil
}

type Handle struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	callback contract.Callback
	logo     contract.ResourceID
	wg       sync.WaitGroup
}

func (h *Handle) SupportsOneClickLogin() (bool, error) {
	if h.cfg.ProbeLatency > 0 {
		time.Sleep(h.cfg.ProbeLatency)
	}
	return h.cfg.Supported, nil
}

func (h *Handle) SetLogo(id contract.ResourceID) error {
	if id == "" {
		return ErrEmptyLogo
	}
	h.mu.Lock()
	h.logo = id
	h.mu.Unlock()
	return nil
}

func (h *Handle) Logo() contract.ResourceID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.logo
}

func (h *Handle) RegisterCallback(cb contract.Callback) error {
	h.mu.Lock()
	h.callback = cb
	h.mu.Unlock()
	return nil
}

// StartLogin returns immediately. The outcome is reported after LoginLatency
// to whichever callback is registered at that moment, from a background
// goroutine.
func (h *Handle) StartLogin() error {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if h.cfg.LoginLatency > 0 {
			time.Sleep(h.cfg.LoginLatency)
		}
		h.finish()
	}()
	return nil
}

// Wait blocks until every started login has reported.
func (h *Handle) Wait() {
	h.wg.Wait()
}

func (h *Handle) finish() {
	h.mu.Lock()
	cb := h.callback
	h.mu.Unlock()
	if cb == nil {
		h.logger.Warn("login finished without a callback")
		return
	}

	extra := map[string]any{}
	if h.cfg.Operator != "" {
		extra["operator"] = h.cfg.Operator
	}
	switch {
	case !h.cfg.Supported:
		cb.OnFailure(string(PhoneError), extra)
	case h.cfg.Outcome == OutcomeFailure:
		code := h.cfg.FailureCode
		if code == "" {
			code = UnknownError
		}
		cb.OnFailure(string(code), extra)
	default:
		if h.cfg.Phone != "" {
			extra["phone"] = MaskPhone(h.cfg.Phone)
		}
		cb.OnSuccess(uuid.NewString(), extra)
	}
}

// MaskPhone keeps the first three and last four digits.
func MaskPhone(phone string) string {
	if len(phone) < 8 {
		return phone
	}
	return phone[:3] + "****" + phone[len(phone)-4:]
}
