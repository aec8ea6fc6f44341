package transport

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"oneclick_bridge/contract"
)

const sinkQueueSize = 64

// socketSink writes events to one WebSocket subscriber. Success only enqueues;
// a writer goroutine owns the socket so a slow peer never stalls the delivery
// context. Events beyond the queue bound are dropped.
type socketSink struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	logger       *slog.Logger

	queue chan contract.Event
	done  chan struct{}

	mu       sync.Mutex
	closed   bool
	graceful bool
}

func newSocketSink(conn *websocket.Conn, writeTimeout time.Duration, logger *slog.Logger) *socketSink {
	s := &socketSink{
		conn:         conn,
		writeTimeout: writeTimeout,
		logger:       logger,
		queue:        make(chan contract.Event, sinkQueueSize),
		done:         make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

func (s *socketSink) Success(event contract.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- event:
	default:
		s.logger.Warn("subscriber too slow, event dropped", "type", string(event.Type))
	}
}

// EndOfStream flushes queued events, then sends a normal closure and closes
// the socket.
func (s *socketSink) EndOfStream() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.graceful = true
	close(s.queue)
}

// close drops the socket without flushing; used once the peer is gone.
func (s *socketSink) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	_ = s.conn.Close()
}

func (s *socketSink) writeLoop() {
	defer close(s.done)
	for event := range s.queue {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if err := s.conn.WriteJSON(event); err != nil {
			s.logger.Warn("event write failed", "type", string(event.Type), "error", err)
		}
	}

	s.mu.Lock()
	graceful := s.graceful
	s.mu.Unlock()
	if graceful {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "end of stream")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.writeTimeout))
	}
	_ = s.conn.Close()
}
