package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	bookingApp "github.com/mateusmacedo/go-busbooking/internal/booking/application"
	bookingDomain "github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	bookingInfra "github.com/mateusmacedo/go-busbooking/internal/booking/infrastructure"
	"github.com/mateusmacedo/go-busbooking/internal/config"
	"github.com/mateusmacedo/go-busbooking/internal/infrastructure/recordstore"
	pkgApp "github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
	pkgInfra "github.com/mateusmacedo/go-busbooking/pkg/infrastructure"
	kafkaAdapter "github.com/mateusmacedo/go-busbooking/pkg/infrastructure/kafka/adapter"
	redisAdapter "github.com/mateusmacedo/go-busbooking/pkg/infrastructure/redis/adapter"
	watermillAdapter "github.com/mateusmacedo/go-busbooking/pkg/infrastructure/watermill/adapter"
)

// dependencies reúne os backends escolhidos pela configuração e o que precisa ser fechado.
type dependencies struct {
	store    recordstore.Store
	claims   bookingDomain.SeatClaimRepository
	locker   bookingDomain.RouteLocker
	payments bookingDomain.PaymentGate
	events   bookingApp.EventBus
	closers  []io.Closer
	logger   pkgApp.AppLogger
}

func newDependencies(cfg *config.Config, idGenerator pkgDomain.IDGenerator[string], logger pkgApp.AppLogger) (*dependencies, error) {
	deps := &dependencies{logger: logger}

	var redisClient redis.UniversalClient
	if cfg.Booking.RouteLock == "redis" || cfg.Events.Transport == "redis" {
		redisClient = redisAdapter.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		deps.closers = append(deps.closers, redisClient)
	}

	switch cfg.Store.Driver {
	case "postgres":
		db, err := gorm.Open(postgres.Open(cfg.Store.DSN), &gorm.Config{
			TranslateError: true,
			Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if deps.store, err = recordstore.NewGormStore(db, idGenerator, cfg.Store.OpTimeout, logger); err != nil {
			return nil, fmt.Errorf("record store: %w", err)
		}
		if deps.claims, err = bookingInfra.NewGormSeatClaimRepository(db, logger); err != nil {
			return nil, fmt.Errorf("seat claims: %w", err)
		}
	default:
		deps.store = recordstore.NewMemoryStore(idGenerator, logger)
		deps.claims = bookingInfra.NewInMemorySeatClaimRepository(logger)
	}

	switch cfg.Booking.RouteLock {
	case "redis":
		deps.locker = bookingInfra.NewRedisRouteLocker(redisClient, cfg.Booking.RouteLockTTL, idGenerator, logger)
	default:
		deps.locker = bookingInfra.NewLocalRouteLocker()
	}

	switch cfg.Booking.PaymentMode {
	case "token":
		deps.payments = bookingInfra.NewTokenPaymentGate(logger)
	default:
		deps.payments = bookingInfra.NewAutoPaymentGate(logger)
	}

	events, err := deps.newEventBus(cfg, redisClient)
	if err != nil {
		deps.Close(context.Background())
		return nil, err
	}
	deps.events = events
	return deps, nil
}

// newEventBus escolhe o transporte dos eventos de reserva. "memory" entrega de forma síncrona
// no próprio processo; os demais passam pelo Watermill.
func (d *dependencies) newEventBus(cfg *config.Config, redisClient redis.UniversalClient) (bookingApp.EventBus, error) {
	if cfg.Events.Transport == "memory" {
		return pkgInfra.NewSimpleEventBus[pkgDomain.Event[bookingApp.BookingEventData], bookingApp.BookingEventData](d.logger), nil
	}

	wmLogger := watermillAdapter.NewWatermillLoggerAdapter(d.logger)

	var (
		publisher  message.Publisher
		subscriber message.Subscriber
	)
	switch cfg.Events.Transport {
	case "gochannel":
		pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)
		publisher, subscriber = pubSub, pubSub
		d.closers = append(d.closers, pubSub)
	case "kafka":
		pub, err := kafkaAdapter.NewKafkaPublisher(cfg.Events.KafkaBrokers, wmLogger)
		if err != nil {
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		d.closers = append(d.closers, pub)
		sub, err := kafkaAdapter.NewKafkaSubscriber(cfg.Events.KafkaBrokers, cfg.Events.ConsumerGroup, wmLogger)
		if err != nil {
			return nil, fmt.Errorf("kafka subscriber: %w", err)
		}
		d.closers = append(d.closers, sub)
		publisher, subscriber = pub, sub
	case "redis":
		pub, err := redisAdapter.NewRedisPublisher(redisClient, wmLogger)
		if err != nil {
			return nil, fmt.Errorf("redis publisher: %w", err)
		}
		d.closers = append(d.closers, pub)
		hostname, _ := os.Hostname()
		sub, err := redisAdapter.NewRedisSubscriber(redisClient, cfg.Events.ConsumerGroup, hostname, wmLogger)
		if err != nil {
			return nil, fmt.Errorf("redis subscriber: %w", err)
		}
		d.closers = append(d.closers, sub)
		publisher, subscriber = pub, sub
	default:
		return nil, fmt.Errorf("unknown event transport %q", cfg.Events.Transport)
	}

	bus := watermillAdapter.NewWatermillEventBus[pkgDomain.Event[bookingApp.BookingEventData], bookingApp.BookingEventData](publisher, subscriber, d.logger)
	// o bus para de consumir antes de publisher e subscriber serem fechados
	d.closers = append(d.closers, bus)
	return bus, nil
}

// Close fecha na ordem inversa da criação.
func (d *dependencies) Close(ctx context.Context) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			pkgApp.LogError(ctx, d.logger, "Erro ao fechar dependência", err, nil)
		}
	}
}
