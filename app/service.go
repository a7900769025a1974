// Package app wires the dispatch engine to its infrastructure from the
// loaded configuration.
package app

import (
	"context"
	"fmt"

	"github.com/dixie/callvehicle/config"
	"github.com/dixie/callvehicle/core/dispatch"
	"github.com/dixie/callvehicle/core/events"
	"github.com/dixie/callvehicle/core/fleet"
	coremetrics "github.com/dixie/callvehicle/core/metrics"
	"github.com/dixie/callvehicle/core/model"
	"github.com/dixie/callvehicle/core/options"
	"github.com/dixie/callvehicle/core/settlement"
	"github.com/dixie/callvehicle/infra/ledger"
	"github.com/dixie/callvehicle/infra/logger"
	"github.com/dixie/callvehicle/infra/metrics"
	"github.com/dixie/callvehicle/infra/notify"
	"github.com/dixie/callvehicle/internal/eventbus"
	"github.com/dixie/callvehicle/simulator"
)

// Service orchestrates the dispatch manager over the simulated world.
type Service struct {
	Manager *dispatch.Manager
	World   *simulator.World
	Options *options.Store

	bus         eventbus.EventBus
	log         logger.Logger
	promEnabled bool
	promPort    string
	closers     []func()
}

// New creates a Service from the configuration.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	svc := &Service{log: logg}

	ledgerSvc, err := svc.buildLedger(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var notifier dispatch.NotificationChannel
	if cfg.Notify.Enabled {
		mq, err := notify.NewMQTTNotifier(cfg.Notify)
		if err != nil {
			return nil, fmt.Errorf("mqtt notifier: %w", err)
		}
		svc.closers = append(svc.closers, mq.Disconnect)
		notifier = mq
	} else {
		notifier = notify.NewLogNotifier(logger.New("courier"))
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sink := metrics.NewInfluxSinkWithFallback(cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket)
		if is, ok := sink.(*metrics.InfluxSink); ok {
			svc.closers = append(svc.closers, is.Close)
		}
		sinks = append(sinks, sink)
	}
	var sink coremetrics.Sink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	world := simulator.NewWorld(cfg.Simulator)
	for _, r := range cfg.Requesters {
		world.PlaceRequester(r.ID, r.Position.Point())
		for _, v := range r.Vehicles {
			world.AddVehicle(r.ID, model.Vehicle{ID: v.ID, Name: v.Name, Color: v.Color, Owned: true}, v.Position.Point())
		}
	}

	opts := options.NewStore(cfg.Options)
	settler, err := settlement.NewSettler(ledgerSvc, ledger.NewMemoryInventory(), opts, logger.New("settler"))
	if err != nil {
		return nil, fmt.Errorf("settler: %w", err)
	}
	nav := simulator.NewNavigator(world, cfg.Simulator, logger.New("navigator"))
	bus := eventbus.New()

	manager, err := dispatch.NewManager(
		fleet.NewRegistry(world),
		world,
		nav,
		notifier,
		settler,
		opts,
		cfg.Dispatch,
		sink,
		bus,
		logger.New("dispatch"),
	)
	if err != nil {
		return nil, fmt.Errorf("dispatch manager: %w", err)
	}

	svc.Manager = manager
	svc.World = world
	svc.Options = opts
	svc.bus = bus
	svc.promEnabled = cfg.Metrics.PrometheusEnabled
	svc.promPort = cfg.Metrics.PrometheusPort
	return svc, nil
}

// buildLedger selects the ledger backend and seeds requester funds.
func (s *Service) buildLedger(ctx context.Context, cfg *config.Config) (settlement.LedgerService, error) {
	switch cfg.Ledger.Backend {
	case "redis":
		rl, err := ledger.NewRedisLedger(ctx, cfg.Ledger)
		if err != nil {
			return nil, fmt.Errorf("redis ledger: %w", err)
		}
		s.closers = append(s.closers, func() { _ = rl.Close() })
		for _, r := range cfg.Requesters {
			if r.Balance > 0 {
				if err := rl.CreditBalance(ctx, r.ID, r.Balance); err != nil {
					return nil, fmt.Errorf("seed balance for %s: %w", r.ID, err)
				}
			}
			if r.Cash > 0 {
				if err := rl.CreditCash(ctx, r.ID, r.Cash); err != nil {
					return nil, fmt.Errorf("seed cash for %s: %w", r.ID, err)
				}
			}
		}
		return rl, nil
	default:
		ml := ledger.NewMemoryLedger()
		for _, r := range cfg.Requesters {
			if r.Balance > 0 {
				ml.CreditBalance(r.ID, r.Balance)
			}
			if r.Cash > 0 {
				ml.CreditCash(r.ID, r.Cash)
			}
		}
		return ml, nil
	}
}

// Subscribe returns a channel of bus events.
func (s *Service) Subscribe() <-chan eventbus.Event {
	return s.bus.Subscribe()
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	sub := s.bus.Subscribe()
	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return nil
			}
			s.logEvent(ev)
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Service) logEvent(ev eventbus.Event) {
	switch e := ev.(type) {
	case events.SessionEvent:
		if e.State.Terminal() {
			s.log.Infof("session %s for %s ended %s (%s)", e.SessionID, e.RequesterID, e.State, e.Reason)
		}
	case events.SettlementEvent:
		if e.Err != "" {
			s.log.Errorf("settlement for session %s failed: %s", e.SessionID, e.Err)
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	err := s.Manager.Close()
	for _, c := range s.closers {
		c()
	}
	return err
}
