package api

import (
	"errors"
	"fmt"
	"log/slog"

	"oneclick_bridge/contract"
	"oneclick_bridge/core"
	"oneclick_bridge/logging"
	"oneclick_bridge/metrics"
)

const showLoginMessage = "Login process started, listen for events for results"

type Dispatcher struct {
	Service *core.Service

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a Dispatcher that routes contract.Action to Service.
func New(service *core.Service, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		Service: service,
		logger:  logging.Component(logger, "dispatcher"),
		metrics: m,
	}
}

// Dispatch routes an Action to Service and replies exactly once through
// result. It must run on the delivery context. Every command except
// getSupportsOneClickLogin has replied by the time Dispatch returns.
//
// Internal errors are coerced to Success(false) for most commands; setLogo,
// and the NOT_INITIALIZED precondition everywhere, surface structured
// failures instead.
func (d *Dispatcher) Dispatch(action contract.Action, result contract.Result) {
	method := string(action.Method)
	reply := newOnceResult(result, action.Method, d.logger)

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic recovered while dispatching", "method", method, "panic", r)
			if !reply.Replied() {
				d.metrics.ObserveCommand(method, metrics.OutcomeFailure)
				reply.Error(contract.UnexpectedError, fmt.Sprintf("panic recovered: %v", r), nil)
			}
		}
	}()

	success := func(data any) {
		d.metrics.ObserveCommand(method, metrics.OutcomeSuccess)
		reply.Success(data)
	}
	coerce := func(msg string, err error) {
		d.logger.Error(msg, "method", method, "error", err)
		d.metrics.ObserveCommand(method, metrics.OutcomeCoerced)
		reply.Success(false)
	}
	fail := func(code contract.ErrorCode, message string) {
		d.metrics.ObserveCommand(method, metrics.OutcomeFailure)
		reply.Error(code, message, nil)
	}
	notInitialized := func() {
		fail(contract.NotInitialized, core.ErrNotInitialized.Error())
	}

	args, err := decodeArgs(action.Args)
	if err != nil {
		fail(contract.InvalidArguments, method+": "+err.Error())
		return
	}

	switch action.Method {
	case contract.GetSupportsOneClickLoginMethod:
		d.Service.ProbeSupport(func(supported bool) {
			success(supported)
		})
	case contract.SetLanguageMethod:
		if err := d.Service.SetLanguage(args.String("languageCode")); err != nil {
			coerce("set language failed", err)
			return
		}
		success(true)
	case contract.InitSdkMethod, contract.RegisterMethod:
		err := d.Service.Initialize(args.String("token"), args.String("ak"), args.String("sk"))
		if err != nil {
			coerce("SDK initialization failed", err)
			return
		}
		success(true)
	case contract.SetLogoMethod:
		name := args.String("resName")
		err := d.Service.SetLogo(name)
		switch {
		case err == nil:
			success(true)
		case errors.Is(err, core.ErrInvalidArguments):
			fail(contract.InvalidArguments, "resName is required")
		case errors.Is(err, core.ErrResourceNotFound):
			fail(contract.InvalidResource, "Drawable not found: "+name)
		case errors.Is(err, core.ErrNotInitialized):
			notInitialized()
		default:
			fail(contract.SetLogoError, err.Error())
		}
	case contract.SetCallbackMethod:
		err := d.Service.SetCallback()
		switch {
		case err == nil:
			success(true)
		case errors.Is(err, core.ErrNotInitialized):
			notInitialized()
		default:
			coerce("register callback failed", err)
		}
	case contract.StartLoginMethod:
		err := d.Service.StartLogin()
		switch {
		case err == nil:
			success(true)
		case errors.Is(err, core.ErrNotInitialized):
			notInitialized()
		default:
			coerce("start login failed", err)
		}
	case contract.ShowLoginMethod:
		err := d.Service.ShowLogin()
		switch {
		case err == nil:
			success(map[string]any{"success": true, "message": showLoginMessage})
		case errors.Is(err, core.ErrNotInitialized):
			notInitialized()
		default:
			d.logger.Error("show login failed", "method", method, "error", err)
			d.metrics.ObserveCommand(method, metrics.OutcomeCoerced)
			reply.Success(map[string]any{"success": false, "message": err.Error()})
		}
	default:
		d.metrics.ObserveCommand("unknown", metrics.OutcomeNotImplemented)
		reply.NotImplemented()
	}
}
