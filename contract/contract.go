package contract

import "encoding/json"

const (
	MethodChannel = "oneclick"
	EventChannel  = "oneclick_events"
)

type Method string

const (
	GetSupportsOneClickLoginMethod Method = "getSupportsOneClickLogin"
	SetLanguageMethod              Method = "setLanguage"
	InitSdkMethod                  Method = "initSdk"
	RegisterMethod                 Method = "register"
	SetLogoMethod                  Method = "setLogo"
	SetCallbackMethod              Method = "setCallback"
	StartLoginMethod               Method = "startLogin"
	ShowLoginMethod                Method = "showLogin"
)

type ErrorCode string

const (
	InvalidArguments ErrorCode = "INVALID_ARGUMENTS"
	InvalidResource  ErrorCode = "INVALID_RESOURCE"
	SetLogoError     ErrorCode = "SET_LOGO_ERROR"
	NotInitialized   ErrorCode = "NOT_INITIALIZED"
	UnexpectedError  ErrorCode = "UNEXPECTED_ERROR"
)

// Response codes.
const (
	CodeSuccess        = 0
	CodeError          = -1
	CodeNotImplemented = -2
)

type Action struct {
	ID     string          `json:"id"`
	Method Method          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

type Failure struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

type Response struct {
	ID     string   `json:"id"`
	Method Method   `json:"method"`
	Code   int      `json:"code"`
	Data   any      `json:"data,omitempty"`
	Error  *Failure `json:"error,omitempty"`
}

// Result receives the single reply to an Action. Implementations are called on
// the delivery context.
type Result interface {
	Success(data any)
	Error(code ErrorCode, message string, details any)
	NotImplemented()
}

// ResourceID is an opaque identifier produced by a ResourceLookup and handed to
// the SDK as-is.
type ResourceID string

// ResourceLookup resolves a named resource inside one bucket (for example
// "drawable" or "mipmap").
type ResourceLookup interface {
	Lookup(name, bucket string) (ResourceID, bool)
}

// Callback receives raw SDK outcomes. extra may be nil.
type Callback interface {
	OnSuccess(data string, extra map[string]any)
	OnFailure(reason string, extra map[string]any)
}

// CallbackFuncs adapts a pair of closures to Callback.
type CallbackFuncs struct {
	Success func(data string, extra map[string]any)
	Failure func(reason string, extra map[string]any)
}

func (c CallbackFuncs) OnSuccess(data string, extra map[string]any) {
	if c.Success != nil {
		c.Success(data, extra)
	}
}

func (c CallbackFuncs) OnFailure(reason string, extra map[string]any) {
	if c.Failure != nil {
		c.Failure(reason, extra)
	}
}

// SDK is the process-wide surface of the login SDK that exists before
// registration.
type SDK interface {
	SetLanguage(code string) error
	Register(token, ak, sk string) (Handle, error)
}

// Handle is a registered SDK instance. A nil Callback removes the current one.
type Handle interface {
	SupportsOneClickLogin() (bool, error)
	SetLogo(id ResourceID) error
	RegisterCallback(cb Callback) error
	StartLogin() error
}

// EventSink is the remote event listener.
type EventSink interface {
	Success(event Event)
	EndOfStream()
}

type Emitter interface {
	Emit(event Event)
}

// Poster schedules work on the delivery context. Post reports false when the
// task was not accepted.
type Poster interface {
	Post(task func()) bool
}
