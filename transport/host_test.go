package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oneclick_bridge/api"
	"oneclick_bridge/bridgetest"
	"oneclick_bridge/contract"
	"oneclick_bridge/core"
	"oneclick_bridge/logging"
	"oneclick_bridge/mainloop"
	"oneclick_bridge/metrics"
)

type harness struct {
	host   *Host
	sdk    *bridgetest.SDK
	client *Client
}

func startHost(t *testing.T) *harness {
	t.Helper()
	logger := logging.Nop()
	loop := mainloop.New(logger)
	loop.Start()

	reg := prometheus.NewRegistry()
	m := metrics.MustNewMetrics(reg)
	sdk := bridgetest.NewSDK()
	svc := core.New(core.Options{
		SDK: sdk,
		Resources: bridgetest.Resources{
			"mipmap": {"logo": "mipmap/logo.png"},
		},
		Poster:  loop,
		Logger:  logger,
		Metrics: m,
	})
	host := NewHost(Options{
		Config:     Config{ListenAddr: "127.0.0.1:0", ReplyTimeout: 2 * time.Second},
		Loop:       loop,
		Service:    svc,
		Dispatcher: api.New(svc, logger, m),
		Gatherer:   reg,
		Logger:     logger,
	})
	require.NoError(t, host.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = host.Close(ctx)
		svc.Close()
		loop.Close()
	})
	return &harness{host: host, sdk: sdk, client: NewClient(host.Addr())}
}

func (h *harness) call(t *testing.T, method contract.Method, args any) contract.Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := h.client.Call(ctx, method, args)
	require.NoError(t, err)
	assert.Equal(t, method, resp.Method)
	return resp
}

func (h *harness) subscribe(t *testing.T) *EventStream {
	t.Helper()
	stream, err := h.client.Events(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = stream.Close() })
	require.Eventually(t, func() bool {
		health, err := h.client.Health(context.Background())
		return err == nil && health.Subscribed
	}, 2*time.Second, 10*time.Millisecond)
	return stream
}

func nextEvent(t *testing.T, stream *EventStream) contract.Event {
	t.Helper()
	type result struct {
		event contract.Event
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		ev, err := stream.Next()
		ch <- result{ev, err}
	}()
	select {
	case r := <-ch:
		require.NoError(t, r.err)
		return r.event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return contract.Event{}
	}
}

var creds = map[string]string{"token": "t", "ak": "a", "sk": "s"}

func TestCallBeforeInitReportsNotInitialized(t *testing.T) {
	h := startHost(t)

	resp := h.call(t, contract.StartLoginMethod, nil)
	assert.Equal(t, contract.CodeError, resp.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, contract.NotInitialized, resp.Error.Code)
	assert.NotEmpty(t, resp.ID)
}

func TestInitAndProbeOverTheWire(t *testing.T) {
	h := startHost(t)

	resp := h.call(t, contract.InitSdkMethod, creds)
	assert.Equal(t, contract.CodeSuccess, resp.Code)
	assert.Equal(t, true, resp.Data)
	assert.Equal(t, [][3]string{{"t", "a", "s"}}, h.sdk.Registrations())

	resp = h.call(t, contract.GetSupportsOneClickLoginMethod, nil)
	assert.Equal(t, contract.CodeSuccess, resp.Code)
	assert.Equal(t, true, resp.Data)

	resp = h.call(t, contract.SetLogoMethod, map[string]string{"resName": "logo"})
	assert.Equal(t, contract.CodeSuccess, resp.Code)
	assert.Equal(t, []contract.ResourceID{"mipmap/logo.png"}, h.sdk.Handle.Logos())

	health, err := h.client.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, health.Ready)
}

func TestUnknownMethodIsNotImplemented(t *testing.T) {
	h := startHost(t)

	resp := h.call(t, contract.Method("logout"), nil)
	assert.Equal(t, contract.CodeNotImplemented, resp.Code)
	assert.Nil(t, resp.Error)
}

func TestMalformedActionIsRejected(t *testing.T) {
	h := startHost(t)

	httpResp, err := http.Post("http://"+h.host.Addr()+MethodPath(), "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer httpResp.Body.Close()
	assert.Equal(t, http.StatusOK, httpResp.StatusCode)

	var resp contract.Response
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&resp))
	assert.Equal(t, contract.CodeError, resp.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, contract.InvalidArguments, resp.Error.Code)
}

func TestNonObjectArgsAreRejected(t *testing.T) {
	h := startHost(t)

	body := []byte(`{"id":"1","method":"initSdk","args":[1,2]}`)
	httpResp, err := http.Post("http://"+h.host.Addr()+MethodPath(), "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer httpResp.Body.Close()

	var resp contract.Response
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&resp))
	assert.Equal(t, "1", resp.ID)
	require.NotNil(t, resp.Error)
	assert.Equal(t, contract.InvalidArguments, resp.Error.Code)
}

func TestCallbackEventsReachSubscriber(t *testing.T) {
	h := startHost(t)
	stream := h.subscribe(t)

	h.call(t, contract.InitSdkMethod, creds)
	resp := h.call(t, contract.SetCallbackMethod, nil)
	require.Equal(t, contract.CodeSuccess, resp.Code)

	h.sdk.Handle.Succeed("opaque", map[string]any{"operator": "CMCC"})
	ev := nextEvent(t, stream)
	assert.Equal(t, contract.SuccessEvent, ev.Type)
	assert.Equal(t, "opaque", ev.String("data"))
	assert.Equal(t, "CMCC", ev.String("operator"))

	h.sdk.Handle.Fail("NET_ERROR", nil)
	ev = nextEvent(t, stream)
	assert.Equal(t, contract.FailureEvent, ev.Type)
	assert.Equal(t, "NET_ERROR", ev.String("error"))
}

func TestShowLoginStreamsLoginEvents(t *testing.T) {
	h := startHost(t)
	stream := h.subscribe(t)

	h.call(t, contract.InitSdkMethod, creds)
	resp := h.call(t, contract.ShowLoginMethod, nil)
	require.Equal(t, contract.CodeSuccess, resp.Code)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["success"])
	assert.Equal(t, 1, h.sdk.Handle.Starts())

	h.sdk.Handle.Succeed("login-token", nil)
	ev := nextEvent(t, stream)
	assert.Equal(t, contract.LoginSuccessEvent, ev.Type)
	assert.Equal(t, "login-token", ev.String("data"))
	assert.Equal(t, true, ev.Fields["success"])
}

func TestNewSubscriberEndsPreviousStream(t *testing.T) {
	h := startHost(t)
	first := h.subscribe(t)

	second, err := h.client.Events(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	_, err = first.Next()
	assert.ErrorIs(t, err, io.EOF)

	h.call(t, contract.InitSdkMethod, creds)
	h.call(t, contract.SetCallbackMethod, nil)
	h.sdk.Handle.Succeed("second-only", nil)
	assert.Equal(t, "second-only", nextEvent(t, second).String("data"))
}

func TestSubscriberDisconnectCancelsSubscription(t *testing.T) {
	h := startHost(t)
	stream := h.subscribe(t)

	require.NoError(t, stream.Close())
	assert.Eventually(t, func() bool {
		health, err := h.client.Health(context.Background())
		return err == nil && !health.Subscribed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCloseDetachesBridge(t *testing.T) {
	h := startHost(t)
	stream := h.subscribe(t)
	h.call(t, contract.InitSdkMethod, creds)
	h.call(t, contract.SetCallbackMethod, nil)
	require.NotNil(t, h.sdk.Handle.Callback())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.host.Close(ctx))

	_, err := stream.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Nil(t, h.sdk.Handle.Callback())
	assert.Empty(t, h.host.Addr())
}

func TestCloseLeavesBridgeDetachedUnderConcurrentCalls(t *testing.T) {
	for round := range 5 {
		h := startHost(t)
		ctx, cancel := context.WithCancel(context.Background())

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for ctx.Err() == nil {
					_, _ = h.client.Call(ctx, contract.InitSdkMethod, creds)
					if stream, err := h.client.Events(ctx); err == nil {
						_ = stream.Close()
					}
				}
			}()
		}

		time.Sleep(20 * time.Millisecond)
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		require.NoError(t, h.host.Close(closeCtx))
		closeCancel()

		assert.False(t, h.host.service.Ready(), "round %d: handle Ready after Close", round)
		assert.False(t, h.host.service.Subscribed(), "round %d: subscriber attached after Close", round)

		cancel()
		wg.Wait()
		assert.False(t, h.host.service.Ready(), "round %d: handle Ready after callers stopped", round)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := startHost(t)
	h.call(t, contract.InitSdkMethod, creds)

	resp, err := http.Get("http://" + h.host.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `oneclick_bridge_commands_total{method="initSdk",outcome="success"} 1`)
}
