package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"oneclick_bridge/contract"
)

// Client talks to a running Host.
type Client struct {
	addr string
	http *http.Client
}

func NewClient(addr string) *Client {
	if addr == "" {
		addr = DefaultListenAddr
	}
	return &Client{
		addr: addr,
		http: &http.Client{Timeout: time.Minute},
	}
}

// Call sends one command and waits for its reply. args may be nil.
func (c *Client) Call(ctx context.Context, method contract.Method, args any) (contract.Response, error) {
	action := contract.Action{ID: uuid.NewString(), Method: method}
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return contract.Response{}, fmt.Errorf("encode args: %w", err)
		}
		action.Args = raw
	}
	body, err := json.Marshal(action)
	if err != nil {
		return contract.Response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+c.addr+MethodPath(), bytes.NewReader(body))
	if err != nil {
		return contract.Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return contract.Response{}, fmt.Errorf("call %s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return contract.Response{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return contract.Response{}, fmt.Errorf("call %s: %s: %s", method, resp.Status, bytes.TrimSpace(data))
	}
	var out contract.Response
	if err := json.Unmarshal(data, &out); err != nil {
		return contract.Response{}, fmt.Errorf("decode reply: %w", err)
	}
	return out, nil
}

// EventStream is one subscription to the event channel.
type EventStream struct {
	conn *websocket.Conn
}

// Events subscribes to the event channel. A newer subscriber ends this one.
func (c *Client) Events(ctx context.Context) (*EventStream, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, "ws://"+c.addr+EventPath(), nil)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return &EventStream{conn: conn}, nil
}

// Next blocks for the next event. It returns io.EOF once the host ends the
// stream.
func (s *EventStream) Next() (contract.Event, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
			return contract.Event{}, io.EOF
		}
		return contract.Event{}, err
	}
	var event contract.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return contract.Event{}, fmt.Errorf("decode event: %w", err)
	}
	return event, nil
}

func (s *EventStream) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return s.conn.Close()
}

type Health struct {
	Status     string `json:"status"`
	Ready      bool   `json:"ready"`
	Subscribed bool   `json:"subscribed"`
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+c.addr+"/healthz", nil)
	if err != nil {
		return Health{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Health{}, err
	}
	defer resp.Body.Close()
	var out Health
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Health{}, fmt.Errorf("decode health: %w", err)
	}
	return out, nil
}
