// Package mainloop provides the single delivery context of the bridge: an
// unbounded FIFO of tasks drained by one goroutine. Replies and events are
// only ever observed by the remote side from tasks running on the loop.
package mainloop

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"

	"oneclick_bridge/logging"
)

var ErrClosed = errors.New("mainloop: closed")

type Loop struct {
	logger *slog.Logger

	mu      sync.Mutex
	queue   []func()
	started bool
	closed  bool

	wake chan struct{}
	done chan struct{}
}

func New(logger *slog.Logger) *Loop {
	return &Loop{
		logger: logging.Component(logger, "mainloop"),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start launches the consumer goroutine. Calling it more than once is a no-op.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started || l.closed {
		return
	}
	l.started = true
	go l.run()
}

// Post enqueues task. It never blocks and reports false once the loop is closed.
func (l *Loop) Post(task func()) bool {
	if task == nil {
		return false
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Sync waits until every task posted before the call has run. It must not be
// called from a task on the same loop.
func (l *Loop) Sync(ctx context.Context) error {
	reached := make(chan struct{})
	if !l.Post(func() { close(reached) }) {
		return ErrClosed
	}
	select {
	case <-reached:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks, runs what is already queued and waits for the
// consumer to exit.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	started := l.started
	if !started {
		l.queue = nil
		close(l.done)
	}
	l.mu.Unlock()

	if !started {
		return
	}
	select {
	case l.wake <- struct{}{}:
	default:
	}
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		closed := l.closed
		l.mu.Unlock()

		for _, task := range batch {
			l.runTask(task)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-l.wake
	}
}

func (l *Loop) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	task()
}
