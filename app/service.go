package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/resident-scheduler/config"
	"github.com/kilianp07/resident-scheduler/core/constraints"
	coremetrics "github.com/kilianp07/resident-scheduler/core/metrics"
	coremon "github.com/kilianp07/resident-scheduler/core/monitoring"
	coremqtt "github.com/kilianp07/resident-scheduler/core/mqtt"
	"github.com/kilianp07/resident-scheduler/core/runlog"
	"github.com/kilianp07/resident-scheduler/core/scheduler"
	"github.com/kilianp07/resident-scheduler/infra/logger"
	"github.com/kilianp07/resident-scheduler/infra/metrics"
	"github.com/kilianp07/resident-scheduler/infra/monitoring"
	"github.com/kilianp07/resident-scheduler/infra/mqtt"
	"github.com/kilianp07/resident-scheduler/infra/roster"
	"github.com/kilianp07/resident-scheduler/internal/eventbus"
	"github.com/kilianp07/resident-scheduler/pkg/export"
)

// Service wires the scheduler to its sinks, run log and broker.
type Service struct {
	Scheduler *scheduler.Scheduler
	cfg       *config.Config
	sink      coremetrics.MetricsSink
	store     runlog.Store
	bus       *eventbus.TypedBus[coremetrics.StateEvent]
	pub       coremqtt.Publisher
	requests  coremqtt.RequestSource
	client    *mqtt.PahoClient
	monitor   coremon.Monitor
	log       logger.Logger
}

// Option customises New.
type Option func(*Service)

// WithPublisher replaces the broker connection built from the config.
func WithPublisher(pub coremqtt.Publisher, src coremqtt.RequestSource) Option {
	return func(s *Service) {
		s.pub = pub
		s.requests = src
	}
}

// WithLogger overrides the logger built from the logging section.
func WithLogger(l logger.Logger) Option { return func(s *Service) { s.log = l } }

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	svc := &Service{cfg: cfg, bus: eventbus.NewTyped[coremetrics.StateEvent]()}
	for _, o := range opts {
		o(svc)
	}
	if svc.log == nil {
		l, err := logger.NewWithConfig("service", cfg.Logging, os.Stdout)
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
		svc.log = l
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	svc.sink = sink

	store, err := runlog.NewStore(cfg.RunLog)
	if err != nil {
		return nil, fmt.Errorf("run log: %w", err)
	}
	svc.store = store

	if svc.pub == nil && cfg.MQTTEnabled() {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			svc.closeStore()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.client = client
		svc.pub = client
		if cfg.MQTT.Listen {
			svc.requests = client
		}
	}

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("sentry: %w", err)
	}
	svc.monitor = mon

	sched, err := scheduler.New(cfg.Scheduler, svc.log,
		scheduler.WithMetrics(sink),
		scheduler.WithEventBus(svc.bus),
		scheduler.WithRunLog(store),
		scheduler.WithMonitor(mon),
	)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.Scheduler = sched
	return svc, nil
}

// Solve runs one scheduling session and publishes its report when a broker
// is configured.
func (s *Service) Solve(ctx context.Context, p *constraints.Problem) (*scheduler.Result, error) {
	res, err := s.Scheduler.Solve(ctx, p)
	if s.pub != nil && res != nil {
		if perr := s.pub.PublishResult(res.Block, export.NewReport(res, err)); perr != nil {
			s.log.Warnf("publish result of block %d: %v", res.Block, perr)
		}
	}
	return res, err
}

// Run serves metrics, forwards state events and answers solve requests until
// ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if addr := s.cfg.Metrics.Listen; addr != "" {
		g.Go(func() error {
			s.log.Infof("serving metrics on %s", addr)
			return metrics.StartPromServer(ctx, addr, nil, s.log)
		})
	}
	if s.pub != nil {
		ch := s.bus.Subscribe()
		defer s.bus.Unsubscribe(ch)
		g.Go(func() error {
			mqtt.Forward(ctx, ch, s.pub, s.log)
			return nil
		})
	}
	if s.requests != nil && s.requests.Requests() != nil {
		g.Go(func() error { return s.serve(ctx) })
	}
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	return g.Wait()
}

func (s *Service) serve(ctx context.Context) error {
	reqs := s.requests.Requests()
	for {
		select {
		case <-ctx.Done():
			return nil
		case req, ok := <-reqs:
			if !ok {
				return nil
			}
			s.handle(ctx, req)
		}
	}
}

func (s *Service) handle(ctx context.Context, req coremqtt.Request) {
	p, err := roster.Decode(bytes.NewReader(req.Roster), "json", roster.Options{AllowShortBlocks: req.AllowShortBlocks})
	if err != nil {
		s.log.Warnf("request %s: %v", req.ID, err)
		s.reply(req.ID, export.NewReport(nil, err))
		return
	}
	res, err := s.Solve(ctx, p)
	s.reply(req.ID, export.NewReport(res, err))
}

func (s *Service) reply(id string, rep export.Report) {
	if err := s.pub.PublishReply(id, rep); err != nil {
		s.log.Errorf("reply to %s: %v", id, err)
	}
}

// RunLog returns the configured run history store, or nil.
func (s *Service) RunLog() runlog.Store { return s.store }

func (s *Service) closeStore() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if n := s.bus.Dropped(); n > 0 {
		s.log.Warnf("%d state events dropped by slow subscribers", n)
	}
	s.bus.Close()
	if s.monitor != nil {
		s.monitor.Flush(2 * time.Second)
	}
	if s.client != nil {
		s.client.Disconnect()
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	return s.closeStore()
}
