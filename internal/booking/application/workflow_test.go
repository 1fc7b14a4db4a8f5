package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mateusmacedo/go-busbooking/internal/booking/application"
	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	"github.com/mateusmacedo/go-busbooking/internal/booking/infrastructure"
	"github.com/mateusmacedo/go-busbooking/internal/infrastructure/recordstore"
	pkgApp "github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
	pkgInfra "github.com/mateusmacedo/go-busbooking/pkg/infrastructure"
	zapAdapter "github.com/mateusmacedo/go-busbooking/pkg/infrastructure/zaplogger/adapter"
)

type mockPaymentGate struct {
	mock.Mock
}

func (m *mockPaymentGate) Confirm(ctx context.Context, req domain.PaymentRequest) (bool, error) {
	args := m.Called(ctx, req)
	return args.Bool(0), args.Error(1)
}

// flakyRoutes falha as escritas de assentos enquanto broken estiver ligado.
type flakyRoutes struct {
	domain.RouteRepository
	brokenApply   atomic.Bool
	brokenRelease atomic.Bool
	failuresLeft  atomic.Int32
	applyCalls    atomic.Int32
}

func (r *flakyRoutes) ApplyBookedSeats(ctx context.Context, route domain.Route, seats string) (domain.Route, error) {
	r.applyCalls.Add(1)
	if r.brokenApply.Load() {
		return domain.Route{}, fmt.Errorf("%w: apply unavailable", domain.ErrStore)
	}
	if r.failuresLeft.Load() > 0 {
		r.failuresLeft.Add(-1)
		return domain.Route{}, fmt.Errorf("%w: transient", domain.ErrStore)
	}
	return r.RouteRepository.ApplyBookedSeats(ctx, route, seats)
}

func (r *flakyRoutes) ReleaseBookedSeats(ctx context.Context, routeID, seats string) (domain.Route, error) {
	if r.brokenRelease.Load() {
		return domain.Route{}, fmt.Errorf("%w: release unavailable", domain.ErrStore)
	}
	return r.RouteRepository.ReleaseBookedSeats(ctx, routeID, seats)
}

type failingTickets struct {
	domain.TicketRepository
	failCreate bool
}

func (t *failingTickets) Create(ctx context.Context, ticket domain.NewTicket) (domain.Ticket, error) {
	if t.failCreate {
		return domain.Ticket{}, fmt.Errorf("%w: create rejected", domain.ErrStore)
	}
	return t.TicketRepository.Create(ctx, ticket)
}

// flakyClaims falha Release enquanto houver falhas programadas e roda beforeReclaim antes de Reclaim.
type flakyClaims struct {
	domain.SeatClaimRepository
	releaseFailures atomic.Int32
	brokenRelease   atomic.Bool
	beforeReclaim   func()
}

func (c *flakyClaims) Release(ctx context.Context, routeID, reference string) error {
	if c.brokenRelease.Load() {
		return fmt.Errorf("%w: claims unavailable", domain.ErrStore)
	}
	if c.releaseFailures.Load() > 0 {
		c.releaseFailures.Add(-1)
		return fmt.Errorf("%w: transient", domain.ErrStore)
	}
	return c.SeatClaimRepository.Release(ctx, routeID, reference)
}

func (c *flakyClaims) Reclaim(ctx context.Context, routeID, reference string, seats []int) error {
	if c.beforeReclaim != nil {
		c.beforeReclaim()
	}
	return c.SeatClaimRepository.Reclaim(ctx, routeID, reference, seats)
}

type recordedEvents struct {
	mu     sync.Mutex
	events []pkgDomain.Event[application.BookingEventData]
}

func (r *recordedEvents) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventName()
	}
	return out
}

type fixture struct {
	workflow *application.Workflow
	routes   *flakyRoutes
	tickets  *failingTickets
	claims   *flakyClaims
	payments *mockPaymentGate
	events   *recordedEvents
}

func sequence(first ...string) func() string {
	var mu sync.Mutex
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		if len(first) > 0 {
			id := first[0]
			first = first[1:]
			return id
		}
		return uuid.New().String()
	}
}

func newFixture(t *testing.T, storeIDs ...string) *fixture {
	t.Helper()
	logger := zapAdapter.NewFromZap(zaptest.NewLogger(t))
	store := recordstore.NewMemoryStore(sequence(storeIDs...), logger)

	f := &fixture{
		routes: &flakyRoutes{
			RouteRepository: infrastructure.NewRecordRouteRepository(store, infrastructure.NewLocalRouteLocker(), 2, sequence(), logger),
		},
		tickets:  &failingTickets{TicketRepository: infrastructure.NewRecordTicketRepository(store, 2, logger)},
		claims:   &flakyClaims{SeatClaimRepository: infrastructure.NewInMemorySeatClaimRepository(logger)},
		payments: &mockPaymentGate{},
		events:   &recordedEvents{},
	}
	f.payments.On("Confirm", mock.Anything, mock.Anything).Return(true, nil).Maybe()

	eventBus := pkgInfra.NewSimpleEventBus[pkgDomain.Event[application.BookingEventData], application.BookingEventData](logger)
	recorder := pkgApp.EventHandlerFunc[pkgDomain.Event[application.BookingEventData], application.BookingEventData](
		func(ctx context.Context, event pkgDomain.Event[application.BookingEventData]) error {
			f.events.mu.Lock()
			defer f.events.mu.Unlock()
			f.events.events = append(f.events.events, event)
			return nil
		})
	for _, name := range []string{application.SeatsBookedEvent, application.TicketCancelledEvent, application.SeatCommitFailedEvent, application.SeatReleaseFailedEvent} {
		eventBus.RegisterHandler(name, recorder)
	}

	f.workflow = application.NewWorkflow(application.Dependencies{
		Routes:      f.routes,
		Tickets:     f.tickets,
		Claims:      f.claims,
		Payments:    f.payments,
		Events:      eventBus,
		IDGenerator: sequence(),
	}, application.WorkflowConfig{
		Layout:         domain.DefaultSeatLayout(),
		CommitAttempts: 3,
		CommitBackoff:  time.Millisecond,
		PaymentWindow:  time.Second,
	}, logger)
	return f
}

func (f *fixture) createRoute(t *testing.T) domain.Route {
	t.Helper()
	route, err := f.routes.Create(context.Background(), domain.RouteFields{
		Origin:            "Kuala Lumpur",
		Destination:       "Penang",
		DepartureTime:     time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		EstimatedDuration: "4.5",
		Price:             "12.50",
	})
	require.NoError(t, err)
	return route
}

func (f *fixture) book(userID, routeID string, seats ...int) (application.BookingOutcome, error) {
	return f.workflow.BookSeats(context.Background(), application.BookSeatsData{
		RouteID:     routeID,
		UserID:      userID,
		SeatNumbers: seats,
	})
}

func TestBookSeatsConcreteScenario(t *testing.T) {
	f := newFixture(t, "r1")
	route := f.createRoute(t)
	require.Equal(t, "r1", route.ID)
	require.Equal(t, "", route.BookedSeats)

	outcome, err := f.book("u1", "r1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, application.StateSeatsCommitted, outcome.State)
	assert.Equal(t, "1,2", outcome.Ticket.SeatNumbers)

	view, err := f.workflow.GetRoute(context.Background(), "r1")
	require.NoError(t, err)
	booked, err := view.Occupied()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2}, booked)
	assert.Equal(t, []int{1, 2}, view.OccupiedSeats)
	assert.Equal(t, 38, view.Available)

	outcome, err = f.book("u2", "r1", 1)
	assert.ErrorIs(t, err, domain.ErrSeatUnavailable)
	assert.Equal(t, application.StateSelectionRejected, outcome.State)

	all, err := f.workflow.AllTickets(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, []string{application.SeatsBookedEvent}, f.events.names())
}

func TestBookSeatsThenMyTicketsRoundTrip(t *testing.T) {
	f := newFixture(t)
	route := f.createRoute(t)

	_, err := f.book("u1", route.ID, 3, 4)
	require.NoError(t, err)

	mine, err := f.workflow.MyTickets(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "3,4", mine[0].SeatNumbers)
	assert.Equal(t, route.ID, mine[0].RouteID)
	assert.Equal(t, domain.TicketActive, mine[0].Status)

	others, err := f.workflow.MyTickets(context.Background(), "u2")
	require.NoError(t, err)
	assert.Empty(t, others)

	_, err = f.workflow.MyTickets(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestBookSeatsRejectsSeatInProjectionWithoutCreatingTicket(t *testing.T) {
	f := newFixture(t)
	route := f.createRoute(t)
	_, err := f.routes.RouteRepository.ApplyBookedSeats(context.Background(), route, "5")
	require.NoError(t, err)

	_, err = f.book("u1", route.ID, 5, 6)
	assert.ErrorIs(t, err, domain.ErrSeatUnavailable)

	all, err := f.workflow.AllTickets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	claimed, err := f.claims.Claimed(context.Background(), route.ID)
	require.NoError(t, err)
	assert.Empty(t, claimed)
	f.payments.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
}

func TestBookSeatsRejectsInvalidSelection(t *testing.T) {
	f := newFixture(t)
	route := f.createRoute(t)

	tests := []struct {
		name    string
		userID  string
		seats   []int
		wantErr error
	}{
		{"no session", "", []int{1}, domain.ErrUnauthenticated},
		{"no seats", "u1", nil, domain.ErrInvalidSeats},
		{"seat zero", "u1", []int{0}, domain.ErrInvalidSeats},
		{"beyond layout", "u1", []int{41}, domain.ErrInvalidSeats},
		{"duplicate", "u1", []int{2, 2}, domain.ErrInvalidSeats},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := f.book(tt.userID, route.ID, tt.seats...)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, application.StateSelectionRejected, outcome.State)
		})
	}

	_, err := f.book("u1", "missing-route", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	f.payments.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
}

func TestBookSeatsDeclinedPaymentCreatesNothing(t *testing.T) {
	f := newFixture(t)
	route := f.createRoute(t)

	f.payments.ExpectedCalls = nil
	f.payments.On("Confirm", mock.Anything, mock.MatchedBy(func(req domain.PaymentRequest) bool {
		return req.Amount == 25.0 && req.RouteID == route.ID && req.UserID == "u1"
	})).Return(false, nil).Once()

	_, err := f.book("u1", route.ID, 1, 2)
	assert.ErrorIs(t, err, domain.ErrBookingFailed)
	assert.ErrorIs(t, err, domain.ErrPaymentDeclined)
	f.payments.AssertExpectations(t)

	claimed, err := f.claims.Claimed(context.Background(), route.ID)
	require.NoError(t, err)
	assert.Empty(t, claimed)
	all, err := f.workflow.AllTickets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestBookSeatsIsIdempotentByReference(t *testing.T) {
	f := newFixture(t)
	route := f.createRoute(t)
	data := application.BookSeatsData{Reference: "ref-1", RouteID: route.ID, UserID: "u1", SeatNumbers: []int{9}}

	first, err := f.workflow.BookSeats(context.Background(), data)
	require.NoError(t, err)
	second, err := f.workflow.BookSeats(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, first.Ticket.ID, second.Ticket.ID)
	assert.Equal(t, application.StateSeatsCommitted, second.State)
	f.payments.AssertNumberOfCalls(t, "Confirm", 1)

	data.UserID = "u2"
	_, err = f.workflow.BookSeats(context.Background(), data)
	assert.ErrorIs(t, err, domain.ErrBookingFailed)
}

func TestConcurrentRetriesWithOneReferencePayAndBookOnce(t *testing.T) {
	f := newFixture(t)
	route := f.createRoute(t)
	data := application.BookSeatsData{Reference: "ref-1", RouteID: route.ID, UserID: "u1", SeatNumbers: []int{9}}

	entered := make(chan struct{})
	release := make(chan struct{})
	f.payments.ExpectedCalls = nil
	f.payments.On("Confirm", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		close(entered)
		<-release
	}).Return(true, nil).Once()

	type result struct {
		outcome application.BookingOutcome
		err     error
	}
	first := make(chan result, 1)
	go func() {
		outcome, err := f.workflow.BookSeats(context.Background(), data)
		first <- result{outcome, err}
	}()

	<-entered
	_, err := f.workflow.BookSeats(context.Background(), data)
	assert.ErrorIs(t, err, domain.ErrBookingInProgress)

	close(release)
	done := <-first
	require.NoError(t, done.err)
	assert.Equal(t, application.StateSeatsCommitted, done.outcome.State)

	replayed, err := f.workflow.BookSeats(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, done.outcome.Ticket.ID, replayed.Ticket.ID)
	f.payments.AssertNumberOfCalls(t, "Confirm", 1)

	all, err := f.workflow.AllTickets(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)

	// com um único ticket, cancelar libera o assento de verdade
	f.payments.On("Confirm", mock.Anything, mock.Anything).Return(true, nil)
	require.NoError(t, f.workflow.CancelTicket(context.Background(), all[0].ID))
	_, err = f.book("u2", route.ID, 9)
	require.NoError(t, err)
	_, err = f.book("u3", route.ID, 9)
	assert.ErrorIs(t, err, domain.ErrSeatUnavailable)
}

func TestBookSeatsReleasesClaimsWhenTicketCreationFails(t *testing.T) {
	f := newFixture(t)
	route := f.createRoute(t)
	f.tickets.failCreate = true

	_, err := f.book("u1", route.ID, 1)
	assert.ErrorIs(t, err, domain.ErrBookingFailed)

	view, err := f.workflow.GetRoute(context.Background(), route.ID)
	require.NoError(t, err)
	assert.Empty(t, view.OccupiedSeats)
	assert.Zero(t, f.routes.applyCalls.Load())
}

func TestBookSeatsRetriesTransientSeatCommitFailures(t *testing.T) {
	f := newFixture(t)
	route := f.createRoute(t)
	f.routes.failuresLeft.Store(2)

	outcome, err := f.book("u1", route.ID, 11)
	require.NoError(t, err)
	assert.Equal(t, application.StateSeatsCommitted, outcome.State)
	assert.GreaterOrEqual(t, f.routes.applyCalls.Load(), int32(3))

	latest, err := f.routes.Find(context.Background(), route.ID)
	require.NoError(t, err)
	assert.Equal(t, "11", latest.BookedSeats)
}

func TestBookSeatsFlagsTicketWhenSeatCommitIsExhausted(t *testing.T) {
	f := newFixture(t)
	route := f.createRoute(t)
	f.routes.brokenApply.Store(true)

	outcome, err := f.book("u1", route.ID, 7, 8)
	require.NoError(t, err)
	assert.Equal(t, application.StateSeatCommitFailed, outcome.State)
	assert.Equal(t, domain.TicketNeedsReconciliation, outcome.Ticket.Status)
	assert.Contains(t, f.events.names(), application.SeatCommitFailedEvent)

	// as claims continuam segurando os assentos
	_, err = f.book("u2", route.ID, 8)
	assert.ErrorIs(t, err, domain.ErrSeatUnavailable)

	flagged, err := f.workflow.FlaggedTickets(context.Background())
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, outcome.Ticket.ID, flagged[0].ID)

	f.routes.brokenApply.Store(false)
	require.NoError(t, f.workflow.ReconcileTicket(context.Background(), outcome.Ticket.ID))

	latest, err := f.routes.Find(context.Background(), route.ID)
	require.NoError(t, err)
	assert.Equal(t, "7,8", latest.BookedSeats)

	ticket, err := f.tickets.Find(context.Background(), outcome.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketActive, ticket.Status)

	flagged, err = f.workflow.FlaggedTickets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, flagged)
}

func TestConcurrentBookingsWithDisjointSeatsAllCommit(t *testing.T) {
	f := newFixture(t)
	route := f.createRoute(t)

	const bookers = 8
	var wg sync.WaitGroup
	errs := make([]error, bookers)
	for i := 0; i < bookers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.book(fmt.Sprintf("u%d", i), route.ID, 2*i+1, 2*i+2)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "booker %d", i)
	}

	latest, err := f.routes.Find(context.Background(), route.ID)
	require.NoError(t, err)
	booked, err := latest.Occupied()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}, booked)
}

func TestConcurrentBookingsForTheSameSeatHaveExactlyOneWinner(t *testing.T) {
	f := newFixture(t)
	route := f.createRoute(t)

	const bookers = 10
	var (
		wg          sync.WaitGroup
		successes   atomic.Int32
		unavailable atomic.Int32
	)
	for i := 0; i < bookers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.book(fmt.Sprintf("u%d", i), route.ID, 20, 21+i)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, domain.ErrSeatUnavailable):
				unavailable.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(bookers-1), unavailable.Load())

	all, err := f.workflow.AllTickets(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)

	latest, err := f.routes.Find(context.Background(), route.ID)
	require.NoError(t, err)
	assert.Equal(t, all[0].SeatNumbers, latest.BookedSeats)
}

func TestCancelTicketReleasesOnlyItsSeats(t *testing.T) {
	f := newFixture(t)
	route := f.createRoute(t)

	first, err := f.book("u1", route.ID, 1, 2)
	require.NoError(t, err)
	_, err = f.book("u2", route.ID, 3)
	require.NoError(t, err)

	require.NoError(t, f.workflow.CancelTicket(context.Background(), first.Ticket.ID))

	view, err := f.workflow.GetRoute(context.Background(), route.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, view.OccupiedSeats)
	assert.Equal(t, "3", view.BookedSeats)

	_, err = f.tickets.Find(context.Background(), first.Ticket.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, f.events.names(), application.TicketCancelledEvent)

	_, err = f.book("u3", route.ID, 1)
	assert.NoError(t, err, "released seat can be booked again")

	err = f.workflow.CancelTicket(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelTicketKeepsTicketUntilProjectionIsReleased(t *testing.T) {
	f := newFixture(t)
	route := f.createRoute(t)

	outcome, err := f.book("u1", route.ID, 4)
	require.NoError(t, err)
	f.routes.brokenRelease.Store(true)

	err = f.workflow.CancelTicket(context.Background(), outcome.Ticket.ID)
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.Contains(t, f.events.names(), application.SeatReleaseFailedEvent)

	ticket, err := f.tickets.Find(context.Background(), outcome.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketCancelling, ticket.Status)

	view, err := f.workflow.GetRoute(context.Background(), route.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, view.OccupiedSeats)

	f.routes.brokenRelease.Store(false)
	require.NoError(t, f.workflow.CancelTicket(context.Background(), outcome.Ticket.ID))

	view, err = f.workflow.GetRoute(context.Background(), route.ID)
	require.NoError(t, err)
	assert.Empty(t, view.OccupiedSeats)
	_, err = f.tickets.Find(context.Background(), outcome.Ticket.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelTicketRetriesTransientClaimReleaseFailure(t *testing.T) {
	f := newFixture(t)
	route := f.createRoute(t)

	outcome, err := f.book("u1", route.ID, 4)
	require.NoError(t, err)
	f.claims.releaseFailures.Store(1)

	require.NoError(t, f.workflow.CancelTicket(context.Background(), outcome.Ticket.ID))

	claimed, err := f.claims.Claimed(context.Background(), route.ID)
	require.NoError(t, err)
	assert.Empty(t, claimed)
	assert.NotContains(t, f.events.names(), application.SeatReleaseFailedEvent)

	_, err = f.book("u2", route.ID, 4)
	assert.NoError(t, err, "released seat can be booked again")
}

func TestCancelTicketKeepsTicketWhenClaimsCannotBeReleased(t *testing.T) {
	f := newFixture(t)
	route := f.createRoute(t)

	outcome, err := f.book("u1", route.ID, 4)
	require.NoError(t, err)
	f.claims.brokenRelease.Store(true)

	err = f.workflow.CancelTicket(context.Background(), outcome.Ticket.ID)
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.Contains(t, f.events.names(), application.SeatReleaseFailedEvent)

	ticket, err := f.tickets.Find(context.Background(), outcome.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketCancelling, ticket.Status)

	_, err = f.book("u2", route.ID, 4)
	assert.ErrorIs(t, err, domain.ErrSeatUnavailable)

	_, err = f.workflow.BookSeats(context.Background(), application.BookSeatsData{
		Reference: ticket.Reference, RouteID: route.ID, UserID: "u1", SeatNumbers: []int{4},
	})
	assert.ErrorIs(t, err, domain.ErrBookingFailed, "a ticket being cancelled is not replayed")

	f.claims.brokenRelease.Store(false)
	require.NoError(t, f.workflow.CancelTicket(context.Background(), outcome.Ticket.ID))

	_, err = f.book("u2", route.ID, 4)
	assert.NoError(t, err)
}

func TestReconcileTicketUndoesItselfWhenTicketIsCancelledMeanwhile(t *testing.T) {
	f := newFixture(t)
	route := f.createRoute(t)
	f.routes.brokenApply.Store(true)

	outcome, err := f.book("u1", route.ID, 7)
	require.NoError(t, err)
	require.Equal(t, application.StateSeatCommitFailed, outcome.State)
	f.routes.brokenApply.Store(false)

	f.claims.beforeReclaim = func() {
		require.NoError(t, f.workflow.CancelTicket(context.Background(), outcome.Ticket.ID))
	}
	require.NoError(t, f.workflow.ReconcileTicket(context.Background(), outcome.Ticket.ID))

	claimed, err := f.claims.Claimed(context.Background(), route.ID)
	require.NoError(t, err)
	assert.Empty(t, claimed)

	view, err := f.workflow.GetRoute(context.Background(), route.ID)
	require.NoError(t, err)
	assert.Empty(t, view.OccupiedSeats)
	assert.Equal(t, "", view.BookedSeats)

	all, err := f.workflow.AllTickets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAllTicketsIncludesPassengerDetails(t *testing.T) {
	f := newFixture(t)
	route := f.createRoute(t)
	_, err := f.book("u1", route.ID, 1)
	require.NoError(t, err)
	_, err = f.book("ghost", route.ID, 2)
	require.NoError(t, err)

	logger := zapAdapter.NewFromZap(zaptest.NewLogger(t))
	workflow := application.NewWorkflow(application.Dependencies{
		Routes:  f.routes,
		Tickets: f.tickets,
		Claims:  f.claims,
		Passengers: func(ctx context.Context, userID string) (domain.Passenger, error) {
			if userID == "u1" {
				return domain.Passenger{ID: "u1", Name: "Aisyah", Email: "aisyah@example.com"}, nil
			}
			return domain.Passenger{}, domain.ErrNotFound
		},
	}, application.DefaultWorkflowConfig(), logger)

	views, err := workflow.AllTickets(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)

	byUser := map[string]application.TicketView{}
	for _, v := range views {
		byUser[v.UserID] = v
	}
	require.NotNil(t, byUser["u1"].Passenger)
	assert.Equal(t, "Aisyah", byUser["u1"].Passenger.Name)
	assert.Nil(t, byUser["ghost"].Passenger)
}

func TestListRoutesFiltersByOriginOrDestination(t *testing.T) {
	f := newFixture(t)
	f.createRoute(t)
	_, err := f.routes.Create(context.Background(), domain.RouteFields{
		Origin:            "Johor Bahru",
		Destination:       "Melaka",
		DepartureTime:     time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC),
		EstimatedDuration: "3",
		Price:             "30",
	})
	require.NoError(t, err)

	all, err := f.workflow.ListRoutes(context.Background(), domain.RouteFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	matched, err := f.workflow.ListRoutes(context.Background(), domain.RouteFilter{Query: "melaka"})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "Johor Bahru", matched[0].Origin)
}
