package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Events   EventsConfig
	Redis    RedisConfig
	Booking  BookingConfig
	Session  SessionConfig
	Admin    AdminConfig
	LogLevel string
}

type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type StoreConfig struct {
	Driver    string // memory | postgres
	DSN       string
	PageSize  int
	OpTimeout time.Duration
}

type EventsConfig struct {
	Transport     string // memory | gochannel | kafka | redis
	KafkaBrokers  []string
	ConsumerGroup string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type BookingConfig struct {
	RouteLock      string // local | redis
	RouteLockTTL   time.Duration
	CommitAttempts uint
	CommitBackoff  time.Duration
	PaymentMode    string // auto | token
	PaymentWindow  time.Duration
	LayoutFile     string
	Layout         domain.SeatLayout
}

type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

type AdminConfig struct {
	Email    string
	Password string
}

// Load lê .env e .env.local (se existirem), depois o ambiente, e por fim as flags de args.
// Flags têm precedência sobre variáveis de ambiente.
func Load(args []string) (*Config, error) {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		Store: StoreConfig{
			Driver:    getEnv("STORE_DRIVER", "memory"),
			DSN:       getEnv("DATABASE_DSN", ""),
			PageSize:  getInt("STORE_PAGE_SIZE", 100),
			OpTimeout: getDuration("STORE_TIMEOUT", 5*time.Second),
		},
		Events: EventsConfig{
			Transport:     getEnv("EVENT_TRANSPORT", "memory"),
			KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "busbooking"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		Booking: BookingConfig{
			RouteLock:      getEnv("ROUTE_LOCK", "local"),
			RouteLockTTL:   getDuration("ROUTE_LOCK_TTL", 5*time.Second),
			CommitAttempts: uint(getInt("SEAT_COMMIT_ATTEMPTS", 5)),
			CommitBackoff:  getDuration("SEAT_COMMIT_BACKOFF", 100*time.Millisecond),
			PaymentMode:    getEnv("PAYMENT_MODE", "auto"),
			PaymentWindow:  getDuration("PAYMENT_WINDOW", 5*time.Minute),
			LayoutFile:     getEnv("SEAT_LAYOUT_FILE", ""),
			Layout:         domain.DefaultSeatLayout(),
		},
		Session: SessionConfig{
			Secret: getEnv("JWT_SECRET", ""),
			TTL:    getDuration("SESSION_TTL", 24*time.Hour),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.bindFlags(args); err != nil {
		return nil, err
	}

	if cfg.Booking.LayoutFile != "" {
		layout, err := LoadSeatLayout(cfg.Booking.LayoutFile)
		if err != nil {
			return nil, err
		}
		cfg.Booking.Layout = layout
	}

	return cfg, cfg.Validate()
}

func (c *Config) bindFlags(args []string) error {
	fs := pflag.NewFlagSet("busbooking", pflag.ContinueOnError)
	fs.StringVar(&c.Server.Addr, "addr", c.Server.Addr, "HTTP listen address")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&c.Store.Driver, "store", c.Store.Driver, "record store driver (memory, postgres)")
	fs.StringVar(&c.Store.DSN, "dsn", c.Store.DSN, "postgres DSN for the record store")
	fs.StringVar(&c.Events.Transport, "events", c.Events.Transport, "event transport (memory, gochannel, kafka, redis)")
	fs.StringSliceVar(&c.Events.KafkaBrokers, "kafka-brokers", c.Events.KafkaBrokers, "kafka brokers")
	fs.StringVar(&c.Booking.RouteLock, "route-lock", c.Booking.RouteLock, "route seat writer arbiter (local, redis)")
	fs.StringVar(&c.Booking.PaymentMode, "payment", c.Booking.PaymentMode, "payment gate (auto, token)")
	fs.StringVar(&c.Booking.LayoutFile, "seat-layout", c.Booking.LayoutFile, "YAML file with the bus seat layout")
	return fs.Parse(args)
}

func (c *Config) Validate() error {
	var errs []error
	if !oneOf(c.Store.Driver, "memory", "postgres") {
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver))
	}
	if c.Store.Driver == "postgres" && c.Store.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN is required for the postgres store"))
	}
	if !oneOf(c.Events.Transport, "memory", "gochannel", "kafka", "redis") {
		errs = append(errs, fmt.Errorf("unknown EVENT_TRANSPORT %q", c.Events.Transport))
	}
	if !oneOf(c.Booking.RouteLock, "local", "redis") {
		errs = append(errs, fmt.Errorf("unknown ROUTE_LOCK %q", c.Booking.RouteLock))
	}
	if !oneOf(c.Booking.PaymentMode, "auto", "token") {
		errs = append(errs, fmt.Errorf("unknown PAYMENT_MODE %q", c.Booking.PaymentMode))
	}
	if c.Session.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Booking.Layout.Capacity() <= 0 {
		errs = append(errs, errors.New("seat layout must have at least one seat"))
	}
	return errors.Join(errs...)
}

// LoadSeatLayout lê a planta do ônibus de um arquivo YAML:
//
//	rows: 10
//	seats_per_row: 4
func LoadSeatLayout(path string) (domain.SeatLayout, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.SeatLayout{}, fmt.Errorf("read seat layout: %w", err)
	}

	var layout domain.SeatLayout
	if err := yaml.Unmarshal(raw, &layout); err != nil {
		return domain.SeatLayout{}, fmt.Errorf("parse seat layout: %w", err)
	}
	if layout.Capacity() <= 0 {
		return domain.SeatLayout{}, fmt.Errorf("seat layout %s has no seats", path)
	}
	return layout, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return n
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return d
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
