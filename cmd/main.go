package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/mateusmacedo/go-busbooking/internal/booking"
	bookingApp "github.com/mateusmacedo/go-busbooking/internal/booking/application"
	bookingDomain "github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	bookingInfra "github.com/mateusmacedo/go-busbooking/internal/booking/infrastructure"
	"github.com/mateusmacedo/go-busbooking/internal/config"
	"github.com/mateusmacedo/go-busbooking/internal/identity"
	identityApp "github.com/mateusmacedo/go-busbooking/internal/identity/application"
	identityInfra "github.com/mateusmacedo/go-busbooking/internal/identity/infrastructure"
	zapAdapter "github.com/mateusmacedo/go-busbooking/pkg/infrastructure/zaplogger/adapter"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuração inválida:", err)
		os.Exit(2)
	}

	appLogger, err := zapAdapter.NewZapAppLogger("go-busbooking", cfg.LogLevel)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	idGenerator := func() string {
		return uuid.New().String()
	}

	deps, err := newDependencies(cfg, idGenerator, appLogger)
	if err != nil {
		appLogger.Error(ctx, "Erro ao inicializar dependências", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer deps.Close(ctx)

	tokens, err := identityInfra.NewJWTTokenIssuer(cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		panic(err)
	}
	identitySlice := identity.NewIdentitySlice(identityInfra.NewRecordUserRepository(deps.store, appLogger), tokens, appLogger)

	if cfg.Admin.Email != "" {
		err := identitySlice.Service().EnsureAdmin(ctx, identityApp.RegisterUserData{
			Name:     "Administrator",
			Email:    cfg.Admin.Email,
			Password: cfg.Admin.Password,
		})
		if err != nil {
			appLogger.Error(ctx, "Erro ao criar administrador", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
	}

	bookingSlice := booking.NewBookingSlice(
		bookingApp.Dependencies{
			Routes:      bookingInfra.NewRecordRouteRepository(deps.store, deps.locker, cfg.Store.PageSize, idGenerator, appLogger),
			Tickets:     bookingInfra.NewRecordTicketRepository(deps.store, cfg.Store.PageSize, appLogger),
			Claims:      deps.claims,
			Payments:    deps.payments,
			Events:      deps.events,
			Passengers:  passengerLookup(identitySlice),
			IDGenerator: idGenerator,
		},
		bookingApp.WorkflowConfig{
			Layout:                cfg.Booking.Layout,
			CommitAttempts:        cfg.Booking.CommitAttempts,
			CommitBackoff:         cfg.Booking.CommitBackoff,
			PaymentWindow:         cfg.Booking.PaymentWindow,
			ReconcileInBackground: cfg.Events.Transport == "memory",
		},
		appLogger,
	)
	defer bookingSlice.Close()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(identitySlice.Authenticate)

	identitySlice.RegisterRoutes(router)
	bookingSlice.RegisterRoutes(router, bookingInfra.AccessGuards{
		RequireUser:  identitySlice.RequireUser,
		RequireAdmin: identitySlice.RequireAdmin,
	})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		appLogger.Info(ctx, "Sinal capturado", map[string]interface{}{"signal": sig.String()})
		cancel()
	}()

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		appLogger.Info(ctx, "Server starting on:"+cfg.Server.Addr, map[string]interface{}{
			"store":      cfg.Store.Driver,
			"events":     cfg.Events.Transport,
			"route_lock": cfg.Booking.RouteLock,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error(ctx, "Erro ao iniciar o servidor", map[string]interface{}{"error": err.Error()})
			cancel()
		}
	}()

	<-ctx.Done()
	appLogger.Info(context.Background(), "Encerrando servidor...", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(context.Background(), "Erro ao encerrar servidor", map[string]interface{}{"error": err.Error()})
	}

	appLogger.Info(context.Background(), "Servidor encerrado", nil)
}

func passengerLookup(slice *identity.IdentitySlice) bookingDomain.PassengerLookup {
	return func(ctx context.Context, userID string) (bookingDomain.Passenger, error) {
		name, email, err := slice.Passenger(ctx, userID)
		if err != nil {
			return bookingDomain.Passenger{}, err
		}
		return bookingDomain.Passenger{ID: userID, Name: name, Email: email}, nil
	}
}
