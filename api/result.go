package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"oneclick_bridge/contract"
	"oneclick_bridge/logging"
)

// onceResult forwards only the first reply; later ones are logged and dropped.
type onceResult struct {
	result contract.Result
	method contract.Method
	logger *slog.Logger

	mu      sync.Mutex
	replied bool
}

func newOnceResult(result contract.Result, method contract.Method, logger *slog.Logger) *onceResult {
	return &onceResult{result: result, method: method, logger: logger}
}

func (o *onceResult) claim() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.replied {
		o.logger.Warn("reply already sent, dropping duplicate", "method", string(o.method))
		return false
	}
	o.replied = true
	return true
}

func (o *onceResult) Replied() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.replied
}

func (o *onceResult) Success(data any) {
	if o.claim() {
		o.result.Success(data)
	}
}

func (o *onceResult) Error(code contract.ErrorCode, message string, details any) {
	if o.claim() {
		o.result.Error(code, message, details)
	}
}

func (o *onceResult) NotImplemented() {
	if o.claim() {
		o.result.NotImplemented()
	}
}

// ResponseResult turns replies into contract.Response values for a wire
// transport.
type ResponseResult struct {
	id     string
	method contract.Method
	send   func(contract.Response)
}

func NewResponseResult(action contract.Action, send func(contract.Response)) *ResponseResult {
	return &ResponseResult{id: action.ID, method: action.Method, send: send}
}

func (r *ResponseResult) Success(data any) {
	r.send(contract.Response{
		ID:     r.id,
		Method: r.method,
		Code:   contract.CodeSuccess,
		Data:   data,
	})
}

func (r *ResponseResult) Error(code contract.ErrorCode, message string, details any) {
	r.send(contract.Response{
		ID:     r.id,
		Method: r.method,
		Code:   contract.CodeError,
		Error:  &contract.Failure{Code: code, Message: message, Details: details},
	})
}

func (r *ResponseResult) NotImplemented() {
	r.send(contract.Response{
		ID:     r.id,
		Method: r.method,
		Code:   contract.CodeNotImplemented,
	})
}

// EncodeResponse marshals resp. If the payload cannot be encoded the response
// shape is kept and the encoding error is reported as an UNEXPECTED_ERROR.
func EncodeResponse(resp contract.Response, logger *slog.Logger) []byte {
	data, err := json.Marshal(resp)
	if err == nil {
		return data
	}
	logging.OrNop(logger).Error("failed to encode response", "method", string(resp.Method), "error", err)
	fallback := contract.Response{
		ID:     resp.ID,
		Method: resp.Method,
		Code:   contract.CodeError,
		Error: &contract.Failure{
			Code:    contract.UnexpectedError,
			Message: fmt.Sprintf("encode response: %v", err),
		},
	}
	data, err = json.Marshal(fallback)
	if err != nil {
		return []byte(`{"code":-1}`)
	}
	return data
}
