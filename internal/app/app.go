package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/egannguyen/go-food-delivery/internal/config"
	deliveryhttp "github.com/egannguyen/go-food-delivery/internal/delivery/http"
	"github.com/egannguyen/go-food-delivery/internal/entity"
	"github.com/egannguyen/go-food-delivery/internal/inbox"
	"github.com/egannguyen/go-food-delivery/internal/messaging"
	"github.com/egannguyen/go-food-delivery/internal/messaging/kafka"
	chanmem "github.com/egannguyen/go-food-delivery/internal/messaging/memory"
	chanredis "github.com/egannguyen/go-food-delivery/internal/messaging/redis"
	"github.com/egannguyen/go-food-delivery/internal/metrics"
	"github.com/egannguyen/go-food-delivery/internal/repository"
	repomem "github.com/egannguyen/go-food-delivery/internal/repository/memory"
	"github.com/egannguyen/go-food-delivery/internal/repository/postgres"
	reporedis "github.com/egannguyen/go-food-delivery/internal/repository/redis"
	"github.com/egannguyen/go-food-delivery/internal/service"
)

const shutdownTimeout = 5 * time.Second

// Bus is a channel transport.
type Bus interface {
	messaging.Publisher
	messaging.Subscriber
}

// App holds the shared infrastructure of one service process.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  metrics.Recorder
	bus      Bus
	redis    goredis.UniversalClient
	db       *sql.DB
	closers  []func() error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  metrics.NewPrometheus(cfg.Service.Name, registry),
	}

	bus, err := a.newBus(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.bus = bus
	return a, nil
}

func (a *App) newBus(ctx context.Context) (Bus, error) {
	ch := a.cfg.Channel
	switch ch.Transport {
	case "memory":
		return chanmem.NewBroker(ch.PollTimeout, a.logger), nil
	case "kafka":
		b := kafka.NewBroker(kafka.Config{
			Brokers:     a.cfg.Kafka.Brokers,
			Partitions:  a.cfg.Kafka.Partitions,
			StartFrom:   ch.StartFrom,
			PollTimeout: ch.PollTimeout,
		}, a.logger)
		a.closers = append(a.closers, b.Close)
		return b, nil
	default:
		client, err := a.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return chanredis.NewStream(client, chanredis.Config{
			StartFrom:    ch.StartFrom,
			PollTimeout:  ch.PollTimeout,
			ClaimMinIdle: ch.ClaimMinIdle,
		}, a.logger), nil
	}
}

func (a *App) redisClient(ctx context.Context) (goredis.UniversalClient, error) {
	if a.redis != nil {
		return a.redis, nil
	}
	client := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:    []string{a.cfg.Redis.Addr},
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis %s: %w", a.cfg.Redis.Addr, err)
	}
	a.redis = client
	a.closers = append(a.closers, client.Close)
	return client, nil
}

func (a *App) postgres(ctx context.Context) (*sql.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := postgres.InitDB(ctx, a.cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	return db, nil
}

func (a *App) eventLog(ctx context.Context, prefix string, registry *entity.Registry) (repository.EventLog, error) {
	switch a.cfg.EventLog.Driver {
	case "memory":
		return repomem.NewEventLog(prefix, registry), nil
	case "postgres":
		db, err := a.postgres(ctx)
		if err != nil {
			return nil, err
		}
		return postgres.NewEventLog(db, prefix, registry), nil
	default:
		client, err := a.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return reporedis.NewEventLog(client, prefix, registry), nil
	}
}

// deliveryViews follows the event log driver.
func (a *App) deliveryViews(ctx context.Context) (repository.DeliveryViewRepository, error) {
	switch a.cfg.EventLog.Driver {
	case "memory":
		return repomem.NewDeliveryViewRepository(), nil
	case "postgres":
		db, err := a.postgres(ctx)
		if err != nil {
			return nil, err
		}
		return postgres.NewDeliveryViewRepository(db), nil
	default:
		client, err := a.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return reporedis.NewDeliveryViewRepository(client), nil
	}
}

func (a *App) facadeConfig() service.FacadeConfig {
	return service.FacadeConfig{
		Channel:         a.cfg.Channel.Name,
		MaxAttempts:     a.cfg.Retry.MaxAttempts,
		InitialInterval: a.cfg.Retry.InitialInterval,
		Metrics:         a.metrics,
		Logger:          a.logger,
	}
}

// group is the consumer group of role. A single process running every role
// uses the role names.
func (a *App) group(role string) string {
	if a.cfg.Service.Name == config.RoleAll {
		return role
	}
	return a.cfg.Service.Group
}

// consumer builds the consumer of role and creates its group, so that nothing
// published once the process serves requests is missed.
func (a *App) consumer(ctx context.Context, role string, registry *entity.Registry, pool *messaging.KeyedPool, route service.RouteFunc) (func(context.Context) error, error) {
	c := service.NewConsumer(service.ConsumerConfig{
		Channel:   a.cfg.Channel.Name,
		Group:     a.group(role),
		Consumers: a.cfg.Service.Consumers,
	}, a.bus, registry, pool, route, a.metrics, a.logger.With("role", role))
	if err := c.EnsureGroup(ctx); err != nil {
		return nil, err
	}
	return c.Run, nil
}

func (a *App) inboxTransport() (message.Publisher, message.Subscriber, error) {
	if a.cfg.Inbox.Transport == "kafka" {
		pub, sub, err := inbox.NewKafka(a.cfg.Kafka.Brokers, "food-delivery-inbox", a.logger)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, pub.Close, sub.Close)
		return pub, sub, nil
	}
	ch := inbox.NewGoChannel(a.logger)
	a.closers = append(a.closers, ch.Close)
	return ch, ch, nil
}

// Run starts the configured roles and the HTTP server, and blocks until ctx
// is done or one of them fails.
func (a *App) Run(ctx context.Context) error {
	roles := []string{a.cfg.Service.Name}
	if a.cfg.Service.Name == config.RoleAll {
		roles = []string{config.RoleOrdering, config.RoleDelivery, config.RoleBFF}
	}

	pool := messaging.NewKeyedPool(messaging.KeyedPoolConfig{WorkerCount: a.cfg.Service.Workers})
	defer pool.Stop()

	var (
		runners []func(context.Context) error
		routes  http.Handler
	)
	for _, role := range roles {
		switch role {
		case config.RoleOrdering:
			eventLog, err := a.eventLog(ctx, repository.OrderingStreamPrefix, entity.OrderLogRegistry())
			if err != nil {
				return err
			}
			facade := service.NewOrderingFacade(eventLog, a.bus, a.facadeConfig())
			run, err := a.consumer(ctx, role, entity.OrderingRegistry(), pool, service.OrderingRoutes(facade))
			if err != nil {
				return err
			}
			runners = append(runners, run)

		case config.RoleDelivery:
			eventLog, err := a.eventLog(ctx, repository.DeliveryStreamPrefix, entity.DeliveryLogRegistry())
			if err != nil {
				return err
			}
			facade := service.NewDeliveryFacade(eventLog, a.bus, a.facadeConfig())
			run, err := a.consumer(ctx, role, entity.DeliveryRegistry(), pool, service.DeliveryRoutes(facade))
			if err != nil {
				return err
			}
			runners = append(runners, run)

		case config.RoleBFF:
			views, err := a.deliveryViews(ctx)
			if err != nil {
				return err
			}
			projector := service.NewDeliveryViewProjector(views, a.logger)
			run, err := a.consumer(ctx, role, entity.DeliveryLogRegistry(), pool, service.ProjectorRoutes(projector))
			if err != nil {
				return err
			}
			runners = append(runners, run)

			pub, sub, err := a.inboxTransport()
			if err != nil {
				return err
			}
			in, err := inbox.New(inbox.Config{Channel: a.cfg.Channel.Name}, pub, sub, a.bus, a.logger)
			if err != nil {
				return err
			}
			runners = append(runners, in.Run)
			routes = deliveryhttp.NewHandler(in, views, a.registry, a.logger).Routes()
		}
	}
	if routes == nil {
		routes = deliveryhttp.OpsRoutes(a.registry)
	}
	server := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           routes,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, run := range runners {
		g.Go(func() error { return run(ctx) })
	}
	g.Go(func() error {
		a.logger.Info("HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	a.logger.Info("Service started", "roles", roles, "transport", a.cfg.Channel.Transport, "eventlog", a.cfg.EventLog.Driver)
	return g.Wait()
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to close resource", "err", err)
		}
	}
	a.closers = nil
}
