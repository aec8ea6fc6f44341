package bridgetest

import (
	"sync"

	"oneclick_bridge/contract"
)

// ManualPoster queues tasks until Drain is called, standing in for the
// delivery context so tests can observe what has not been delivered yet.
type ManualPoster struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool
}

func (p *ManualPoster) Post(task func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.tasks = append(p.tasks, task)
	return true
}

// Drain runs queued tasks, including ones posted while draining, and returns
// how many ran.
func (p *ManualPoster) Drain() int {
	n := 0
	for {
		p.mu.Lock()
		if len(p.tasks) == 0 {
			p.mu.Unlock()
			return n
		}
		task := p.tasks[0]
		p.tasks = p.tasks[1:]
		p.mu.Unlock()

		task()
		n++
	}
}

func (p *ManualPoster) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

func (p *ManualPoster) Close() {
	p.mu.Lock()
	p.closed = true
	p.tasks = nil
	p.mu.Unlock()
}

// Sink records events delivered to it.
type Sink struct {
	mu     sync.Mutex
	events []contract.Event
	ended  int
}

func (s *Sink) Success(event contract.Event) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func (s *Sink) EndOfStream() {
	s.mu.Lock()
	s.ended++
	s.mu.Unlock()
}

func (s *Sink) Events() []contract.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]contract.Event(nil), s.events...)
}

func (s *Sink) Ended() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// Reply is one recorded contract.Result call.
type Reply struct {
	Kind    string // "success", "error", "notImplemented"
	Data    any
	Code    contract.ErrorCode
	Message string
	Details any
}

// Result records every reply it receives.
type Result struct {
	mu      sync.Mutex
	replies []Reply
	notify  chan struct{}
}

func NewResult() *Result {
	return &Result{notify: make(chan struct{}, 1)}
}

func (r *Result) Success(data any) {
	r.record(Reply{Kind: "success", Data: data})
}

func (r *Result) Error(code contract.ErrorCode, message string, details any) {
	r.record(Reply{Kind: "error", Code: code, Message: message, Details: details})
}

func (r *Result) NotImplemented() {
	r.record(Reply{Kind: "notImplemented"})
}

func (r *Result) record(reply Reply) {
	r.mu.Lock()
	r.replies = append(r.replies, reply)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *Result) Replies() []Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Reply(nil), r.replies...)
}

// Done is signalled after each reply.
func (r *Result) Done() <-chan struct{} {
	return r.notify
}
