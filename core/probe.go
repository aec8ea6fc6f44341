package core

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"oneclick_bridge/contract"
)

const defaultProbeWorkers = 4

// probePool runs capability probes off the delivery context with a bounded
// number in flight. A submitted job always runs exactly once; admitted is
// false when the pool shut down before a worker slot was free.
type probePool struct {
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func newProbePool(workers int) *probePool {
	if workers <= 0 {
		workers = defaultProbeWorkers
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &probePool{
		sem:    semaphore.NewWeighted(int64(workers)),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (p *probePool) submit(job func(admitted bool)) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrSubmitRejected
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			job(false)
			return
		}
		defer p.sem.Release(1)
		job(true)
	}()
	return nil
}

// close rejects new jobs and waits for submitted ones to finish.
func (p *probePool) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}

// ProbeSupport reports whether one-click login is available. done runs on the
// delivery context: synchronously when the handle is Unset or the probe could
// not be scheduled, otherwise after the background probe completes. Probe
// errors collapse to false.
func (s *Service) ProbeSupport(done func(supported bool)) {
	h, ready := s.handle.get()
	if !ready {
		done(false)
		return
	}

	err := s.probes.submit(func(admitted bool) {
		supported := false
		if admitted {
			supported = s.probe(h)
		}
		if !s.poster.Post(func() { done(supported) }) {
			s.logger.Warn("probe finished after delivery context closed", "supported", supported)
		}
	})
	if err != nil {
		s.logger.Error("failed to schedule support probe", "error", err)
		done(false)
	}
}

func (s *Service) probe(h contract.Handle) bool {
	start := time.Now()
	supported, err := guardValue(h.SupportsOneClickLogin)
	s.metrics.ObserveProbe(time.Since(start))
	if err != nil {
		s.logger.Error("check support status failed in background", "error", err)
		return false
	}
	return supported
}
