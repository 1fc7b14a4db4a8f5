package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mateusmacedo/go-busbooking/internal/booking/application"
	pkgApp "github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
	pkgInfra "github.com/mateusmacedo/go-busbooking/pkg/infrastructure"
	zapAdapter "github.com/mateusmacedo/go-busbooking/pkg/infrastructure/zaplogger/adapter"
)

func reconcileBus(t *testing.T, handle func(ctx context.Context, ticketID string) error) application.TicketCommandBus {
	t.Helper()
	logger := zapAdapter.NewFromZap(zaptest.NewLogger(t))
	bus := pkgInfra.NewSimpleCommandBus[pkgDomain.Command[application.TicketData], application.TicketData](logger)
	bus.RegisterHandler(application.ReconcileTicketCommand, pkgApp.CommandHandlerFunc[pkgDomain.Command[application.TicketData], application.TicketData](
		func(ctx context.Context, command pkgDomain.Command[application.TicketData]) error {
			return handle(ctx, command.Payload().TicketID)
		}))
	return bus
}

func TestSeatCommitFailedHandlerReconcilesInBackground(t *testing.T) {
	started := make(chan string, 1)
	release := make(chan struct{})
	bus := reconcileBus(t, func(ctx context.Context, ticketID string) error {
		started <- ticketID
		<-release
		return nil
	})

	handler := application.NewSeatCommitFailedEventHandler(bus, time.Second, true, zapAdapter.NewFromZap(zaptest.NewLogger(t)))
	event := application.NewSeatCommitFailedEvent(application.BookingEventData{TicketID: "t1"})

	// Handle volta enquanto a reconciliação ainda está presa
	require.NoError(t, handler.Handle(context.Background(), event))
	assert.Equal(t, "t1", <-started)

	close(release)
	handler.Wait()
}

func TestSeatCommitFailedHandlerBoundsReconciliationWithTimeout(t *testing.T) {
	bus := reconcileBus(t, func(ctx context.Context, ticketID string) error {
		<-ctx.Done()
		return ctx.Err()
	})

	handler := application.NewSeatCommitFailedEventHandler(bus, 20*time.Millisecond, false, zapAdapter.NewFromZap(zaptest.NewLogger(t)))
	event := application.NewSeatCommitFailedEvent(application.BookingEventData{TicketID: "t1"})

	start := time.Now()
	require.NoError(t, handler.Handle(context.Background(), event), "reconciliation failures stay with the handler")
	assert.Less(t, time.Since(start), 5*time.Second)
}
