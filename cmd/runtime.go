package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"oneclick_bridge/api"
	"oneclick_bridge/config"
	"oneclick_bridge/contract"
	"oneclick_bridge/core"
	"oneclick_bridge/emulator"
	"oneclick_bridge/mainloop"
	"oneclick_bridge/metrics"
	"oneclick_bridge/resources"
	"oneclick_bridge/transport"
)

// runtime wires the delivery loop, the bridge service, its dispatcher and the
// loopback host.
type runtime struct {
	loop    *mainloop.Loop
	service *core.Service
	host    *transport.Host
}

func newRuntime(cfg config.Config, logger *slog.Logger) (*runtime, error) {
	var lookup contract.ResourceLookup
	if cfg.Resources.Path != "" {
		l, err := resources.Load(cfg.Resources.Path, cfg.Resources.CacheSize)
		if err != nil {
			return nil, err
		}
		lookup = l
	}

	var (
		m        *metrics.Metrics
		gatherer prometheus.Gatherer
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.MustNewMetrics(reg)
		gatherer = reg
	}

	loop := mainloop.New(logger)
	service := core.New(core.Options{
		SDK:          emulator.New(cfg.Emulator.SDKConfig(), logger),
		Resources:    lookup,
		Buckets:      cfg.Resources.Buckets,
		Poster:       loop,
		ProbeWorkers: cfg.ProbeWorkers,
		Logger:       logger,
		Metrics:      m,
	})
	host := transport.NewHost(transport.Options{
		Config:     transport.Config{ListenAddr: cfg.ListenAddr},
		Loop:       loop,
		Service:    service,
		Dispatcher: api.New(service, logger, m),
		Gatherer:   gatherer,
		Logger:     logger,
	})
	return &runtime{loop: loop, service: service, host: host}, nil
}

func (r *runtime) start() error {
	r.loop.Start()
	if err := r.host.Start(); err != nil {
		r.loop.Close()
		return fmt.Errorf("start host: %w", err)
	}
	return nil
}

func (r *runtime) close(ctx context.Context) error {
	err := r.host.Close(ctx)
	r.service.Close()
	r.loop.Close()
	return err
}
