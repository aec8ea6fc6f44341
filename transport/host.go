// Package transport exposes the bridge over loopback HTTP: commands are POSTed
// to the method channel and events stream over a WebSocket on the event
// channel.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"oneclick_bridge/api"
	"oneclick_bridge/contract"
	"oneclick_bridge/core"
	"oneclick_bridge/logging"
	"oneclick_bridge/mainloop"
)

const (
	DefaultListenAddr = "127.0.0.1:17400"
	maxActionBytes    = 1 << 20
)

var errHostClosed = errors.New("host is shutting down")

func MethodPath() string { return "/channels/" + contract.MethodChannel }

func EventPath() string { return "/channels/" + contract.EventChannel }

type Config struct {
	ListenAddr string
	// ReplyTimeout bounds how long a method call waits for its reply.
	ReplyTimeout time.Duration
	WriteTimeout time.Duration
}

func (c Config) withDefaults() Config {
	out := c
	out.ListenAddr = strings.TrimSpace(out.ListenAddr)
	if out.ListenAddr == "" {
		out.ListenAddr = DefaultListenAddr
	}
	if out.ReplyTimeout <= 0 {
		out.ReplyTimeout = 30 * time.Second
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = 5 * time.Second
	}
	return out
}

// Host is the engine side of the bridge. Start attaches it, Close detaches it
// and returns the SDK handle to Unset.
type Host struct {
	cfg        Config
	loop       *mainloop.Loop
	service    *core.Service
	dispatcher *api.Dispatcher
	gatherer   prometheus.Gatherer
	logger     *slog.Logger

	mu      sync.RWMutex
	httpSrv *http.Server
	addr    string

	// closing is set before Detach is posted; loop tasks queued behind Detach
	// check it so nothing re-attaches once teardown ran.
	closing atomic.Bool
}

type Options struct {
	Config     Config
	Loop       *mainloop.Loop
	Service    *core.Service
	Dispatcher *api.Dispatcher
	// Gatherer backs /metrics; nil disables the route.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

func NewHost(opts Options) *Host {
	return &Host{
		cfg:        opts.Config.withDefaults(),
		loop:       opts.Loop,
		service:    opts.Service,
		dispatcher: opts.Dispatcher,
		gatherer:   opts.Gatherer,
		logger:     logging.Component(opts.Logger, "transport"),
	}
}

func (h *Host) Addr() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.addr
}

// Handler returns the gin engine serving both channels.
func (h *Host) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(h.requestLogger())

	engine.POST(MethodPath(), h.handleInvoke)
	engine.GET(EventPath(), h.handleEvents)
	engine.GET("/healthz", h.handleHealth)
	if h.gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}
	return engine
}

// Start binds the listener and serves in the background.
func (h *Host) Start() error {
	h.mu.Lock()
	if h.httpSrv != nil {
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	ln, err := net.Listen("tcp", h.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %q: %w", h.cfg.ListenAddr, err)
	}
	srv := &http.Server{
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	h.mu.Lock()
	h.httpSrv = srv
	h.addr = ln.Addr().String()
	h.mu.Unlock()
	h.closing.Store(false)

	h.logger.Info("bridge host listening", "addr", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("bridge host stopped", "error", err)
		}
	}()
	return nil
}

// Close stops accepting calls and subscribers, shuts the server down, then
// detaches the bridge on the delivery context. The handle is Unset and no
// subscriber is attached once Close returns.
func (h *Host) Close(ctx context.Context) error {
	h.closing.Store(true)

	h.mu.Lock()
	srv := h.httpSrv
	h.httpSrv = nil
	h.addr = ""
	h.mu.Unlock()

	var shutdownErr error
	if srv != nil {
		shutdownErr = srv.Shutdown(ctx)
	}

	if h.loop.Post(h.service.Detach) {
		if err := h.loop.Sync(ctx); err != nil && !errors.Is(err, mainloop.ErrClosed) {
			h.logger.Warn("detach did not complete", "error", err)
		}
	} else {
		h.service.Detach()
	}
	return shutdownErr
}

func (h *Host) handleInvoke(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxActionBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	replies := make(chan contract.Response, 1)
	send := func(resp contract.Response) {
		select {
		case replies <- resp:
		default:
		}
	}

	var action contract.Action
	if err := json.Unmarshal(body, &action); err != nil {
		send(contract.Response{
			Code:  contract.CodeError,
			Error: &contract.Failure{Code: contract.InvalidArguments, Message: err.Error()},
		})
	} else {
		result := api.NewResponseResult(action, send)
		if !h.loop.Post(func() { h.dispatch(action, result) }) {
			result.Error(contract.UnexpectedError, errHostClosed.Error(), nil)
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.ReplyTimeout)
	defer cancel()
	select {
	case resp := <-replies:
		c.Data(http.StatusOK, "application/json", api.EncodeResponse(resp, h.logger))
	case <-ctx.Done():
		h.logger.Warn("no reply before timeout", "method", string(action.Method), "id", action.ID)
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": ctx.Err().Error()})
	}
}

func (h *Host) handleEvents(c *gin.Context) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("event channel upgrade failed", "error", err)
		return
	}

	sink := newSocketSink(conn, h.cfg.WriteTimeout, h.logger)
	if !h.loop.Post(func() { h.listen(sink) }) {
		sink.EndOfStream()
		return
	}
	go h.watch(sink)
}

// dispatch and listen run on the delivery context.
func (h *Host) dispatch(action contract.Action, result contract.Result) {
	if h.closing.Load() {
		result.Error(contract.UnexpectedError, errHostClosed.Error(), nil)
		return
	}
	h.dispatcher.Dispatch(action, result)
}

func (h *Host) listen(sink *socketSink) {
	if h.closing.Load() {
		sink.EndOfStream()
		return
	}
	h.service.Listen(sink)
}

// watch reads until the peer goes away, then cancels the subscription if it
// is still current.
func (h *Host) watch(sink *socketSink) {
	for {
		if _, _, err := sink.conn.ReadMessage(); err != nil {
			break
		}
	}
	if !h.loop.Post(func() { h.service.CancelSink(sink) }) {
		h.service.CancelSink(sink)
	}
	sink.close()
}

func (h *Host) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ready":      h.service.Ready(),
		"subscribed": h.service.Subscribed(),
	})
}

func (h *Host) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
