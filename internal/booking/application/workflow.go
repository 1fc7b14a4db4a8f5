package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	pkgApp "github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

type BookingState string

const (
	StateSelecting         BookingState = "Selecting"
	StateConfirming        BookingState = "Confirming"
	StateTicketCreated     BookingState = "TicketCreated"
	StateSeatsCommitted    BookingState = "SeatsCommitted"
	StateSeatCommitFailed  BookingState = "SeatCommitFailed"
	StateSelectionRejected BookingState = "SelectionRejected"
)

type BookingOutcome struct {
	State  BookingState  `json:"state"`
	Ticket domain.Ticket `json:"ticket"`
}

// WorkflowConfig também diz ao slice como a reconciliação automática roda: com um barramento
// de eventos síncrono ela precisa sair da requisição (ReconcileInBackground).
type WorkflowConfig struct {
	Layout                domain.SeatLayout
	CommitAttempts        uint
	CommitBackoff         time.Duration
	PaymentWindow         time.Duration
	ReconcileTimeout      time.Duration
	ReconcileInBackground bool
}

const defaultReconcileTimeout = 30 * time.Second

func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		Layout:           domain.DefaultSeatLayout(),
		CommitAttempts:   5,
		CommitBackoff:    100 * time.Millisecond,
		PaymentWindow:    5 * time.Minute,
		ReconcileTimeout: defaultReconcileTimeout,
	}
}

type Dependencies struct {
	Routes      domain.RouteRepository
	Tickets     domain.TicketRepository
	Claims      domain.SeatClaimRepository
	Payments    domain.PaymentGate
	Events      EventBus
	Passengers  domain.PassengerLookup
	IDGenerator pkgDomain.IDGenerator[string]
}

// Workflow coordena as duas escritas não atômicas de uma reserva: o ticket e os assentos da rota.
// As seat claims garantem que um assento nunca é vendido duas vezes; a projeção BookedSeats
// da rota é atualizada depois, com retentativas, e sinalizada para reconciliação se falhar.
type Workflow struct {
	deps   Dependencies
	cfg    WorkflowConfig
	now    func() time.Time
	logger pkgApp.AppLogger
}

func NewWorkflow(deps Dependencies, cfg WorkflowConfig, logger pkgApp.AppLogger) *Workflow {
	if cfg.CommitAttempts == 0 {
		cfg.CommitAttempts = 1
	}
	if cfg.Layout.Capacity() <= 0 {
		cfg.Layout = domain.DefaultSeatLayout()
	}
	if cfg.ReconcileTimeout <= 0 {
		cfg.ReconcileTimeout = defaultReconcileTimeout
	}
	return &Workflow{deps: deps, cfg: cfg, now: time.Now, logger: logger}
}

func (w *Workflow) Layout() domain.SeatLayout {
	return w.cfg.Layout
}

func (w *Workflow) Config() WorkflowConfig {
	return w.cfg
}

func (w *Workflow) ListRoutes(ctx context.Context, filter domain.RouteFilter) ([]domain.Route, error) {
	routes, err := w.deps.Routes.List(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]domain.Route, 0, len(routes))
	for _, r := range routes {
		if filter.Match(r) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

func (w *Workflow) GetRoute(ctx context.Context, routeID string) (RouteView, error) {
	route, err := w.deps.Routes.Find(ctx, routeID)
	if err != nil {
		return RouteView{}, err
	}

	occupied, err := w.occupied(ctx, route, "")
	if err != nil {
		return RouteView{}, err
	}

	seats := domain.SortedSeats(occupied)
	return RouteView{
		Route:         route,
		OccupiedSeats: seats,
		Layout:        w.cfg.Layout,
		Available:     w.cfg.Layout.Capacity() - len(seats),
	}, nil
}

// occupied é a união da projeção da rota com as seat claims, sem as claims de except.
func (w *Workflow) occupied(ctx context.Context, route domain.Route, except string) (map[int]struct{}, error) {
	projected, err := route.Occupied()
	if err != nil {
		return nil, err
	}
	claimed, err := w.deps.Claims.Claimed(ctx, route.ID)
	if err != nil {
		return nil, err
	}

	set := domain.SeatSet(projected)
	for seat, owner := range claimed {
		if except != "" && owner == except {
			continue
		}
		set[seat] = struct{}{}
	}
	return set, nil
}

func (w *Workflow) BookSeats(ctx context.Context, data BookSeatsData) (BookingOutcome, error) {
	outcome := BookingOutcome{State: StateSelecting}
	logFields := map[string]interface{}{
		"reference": data.Reference,
		"route_id":  data.RouteID,
		"user_id":   data.UserID,
		"seats":     data.SeatNumbers,
	}

	reject := func(err error) (BookingOutcome, error) {
		outcome.State = StateSelectionRejected
		pkgApp.LogError(ctx, w.logger, "seat selection rejected", err, logFields)
		return outcome, err
	}

	if data.UserID == "" {
		return reject(fmt.Errorf("%w: booking requires a session", domain.ErrUnauthenticated))
	}
	if err := w.cfg.Layout.Validate(data.SeatNumbers); err != nil {
		return reject(err)
	}
	if data.Reference == "" {
		data.Reference = w.deps.IDGenerator()
		logFields["reference"] = data.Reference
	}

	existing, err := w.deps.Tickets.FindByReference(ctx, data.Reference)
	switch {
	case err == nil:
		return w.replay(ctx, data, existing)
	case !errors.Is(err, domain.ErrNotFound):
		return outcome, fmt.Errorf("%w: %w", domain.ErrBookingFailed, err)
	}

	route, err := w.deps.Routes.Find(ctx, data.RouteID)
	if err != nil {
		return reject(err)
	}
	occupied, err := w.occupied(ctx, route, data.Reference)
	if err != nil {
		return outcome, err
	}
	if taken := domain.Conflicts(occupied, data.SeatNumbers); len(taken) > 0 {
		return reject(fmt.Errorf("%w: seats %s on route %s", domain.ErrSeatUnavailable, domain.FormatSeats(taken), route.ID))
	}

	// as claims seguram os assentos e a reference enquanto o pagamento é confirmado
	if err := w.deps.Claims.Claim(ctx, route.ID, data.Reference, data.SeatNumbers); err != nil {
		switch {
		case errors.Is(err, domain.ErrReferenceInUse):
			return w.inFlight(ctx, data)
		case errors.Is(err, domain.ErrSeatUnavailable):
			return reject(err)
		}
		pkgApp.LogError(ctx, w.logger, "seat claim failed", err, logFields)
		return outcome, fmt.Errorf("%w: %w", domain.ErrBookingFailed, err)
	}

	outcome.State = StateConfirming
	if err := w.confirmPayment(ctx, route, data); err != nil {
		pkgApp.LogError(ctx, w.logger, "payment not confirmed, releasing claims", err, logFields)
		w.releaseClaims(ctx, route.ID, data.Reference)
		return outcome, err
	}

	ticket, err := w.deps.Tickets.Create(ctx, domain.NewTicket{
		Reference:   data.Reference,
		SeatNumbers: data.SeatNumbers,
		UserID:      data.UserID,
		RouteID:     route.ID,
	})
	if err != nil {
		pkgApp.LogError(ctx, w.logger, "ticket creation failed, releasing claims", err, logFields)
		w.releaseClaims(ctx, route.ID, data.Reference)
		return outcome, fmt.Errorf("%w: %w", domain.ErrBookingFailed, err)
	}
	outcome.State = StateTicketCreated
	outcome.Ticket = ticket

	if err := w.commitSeats(ctx, route, ticket); err != nil {
		return w.flagForReconciliation(ctx, outcome, err), nil
	}

	outcome.State = StateSeatsCommitted
	w.publish(ctx, NewSeatsBookedEvent(w.eventData(ticket, "")))
	pkgApp.LogInfo(ctx, w.logger, "seats booked", map[string]interface{}{"ticket_id": ticket.ID, "reference": ticket.Reference, "seats": ticket.SeatNumbers})
	return outcome, nil
}

// replay devolve o resultado de uma tentativa já concluída com a mesma reference.
func (w *Workflow) replay(ctx context.Context, data BookSeatsData, existing domain.Ticket) (BookingOutcome, error) {
	if existing.UserID != data.UserID || existing.RouteID != data.RouteID {
		return BookingOutcome{State: StateSelectionRejected}, fmt.Errorf("%w: reference %s belongs to another booking", domain.ErrBookingFailed, data.Reference)
	}
	if existing.Status == domain.TicketCancelling {
		return BookingOutcome{State: StateSelectionRejected}, fmt.Errorf("%w: reference %s is being cancelled", domain.ErrBookingFailed, data.Reference)
	}

	state := StateSeatsCommitted
	if existing.Status == domain.TicketNeedsReconciliation {
		state = StateSeatCommitFailed
	}
	pkgApp.LogInfo(ctx, w.logger, "booking replayed", map[string]interface{}{"reference": data.Reference, "ticket_id": existing.ID})
	return BookingOutcome{State: state, Ticket: existing}, nil
}

// inFlight atende uma tentativa cuja reference já segura claims: devolve o ticket se ele
// já existe, senão a outra tentativa ainda está em andamento.
func (w *Workflow) inFlight(ctx context.Context, data BookSeatsData) (BookingOutcome, error) {
	existing, err := w.deps.Tickets.FindByReference(ctx, data.Reference)
	switch {
	case err == nil:
		return w.replay(ctx, data, existing)
	case errors.Is(err, domain.ErrNotFound):
		pkgApp.LogInfo(ctx, w.logger, "booking with the same reference in progress", map[string]interface{}{"reference": data.Reference})
		return BookingOutcome{State: StateSelecting}, fmt.Errorf("%w: %w: reference %s", domain.ErrBookingFailed, domain.ErrBookingInProgress, data.Reference)
	default:
		return BookingOutcome{State: StateSelecting}, fmt.Errorf("%w: %w", domain.ErrBookingFailed, err)
	}
}

func (w *Workflow) confirmPayment(ctx context.Context, route domain.Route, data BookSeatsData) error {
	amount, err := route.Fare(len(data.SeatNumbers))
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrBookingFailed, err)
	}

	payCtx, cancel := context.WithTimeout(ctx, w.cfg.PaymentWindow)
	defer cancel()

	confirmed, err := w.deps.Payments.Confirm(payCtx, domain.PaymentRequest{
		Reference: data.Reference,
		UserID:    data.UserID,
		RouteID:   route.ID,
		Amount:    amount,
		Token:     data.PaymentToken,
	})
	if err != nil {
		return fmt.Errorf("%w: payment: %w", domain.ErrBookingFailed, err)
	}
	if !confirmed {
		return fmt.Errorf("%w: %w", domain.ErrBookingFailed, domain.ErrPaymentDeclined)
	}
	return nil
}

func (w *Workflow) commitSeats(ctx context.Context, route domain.Route, ticket domain.Ticket) error {
	return w.withRetry(ctx, "commit seats", func() error {
		_, err := w.deps.Routes.ApplyBookedSeats(ctx, route, ticket.SeatNumbers)
		return err
	})
}

// withRetry repete action com backoff exponencial enquanto ctx estiver ativo.
func (w *Workflow) withRetry(ctx context.Context, operation string, action func() error) error {
	return retry.Retry(
		func(attempt uint) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := action()
			if err != nil {
				pkgApp.LogError(ctx, w.logger, operation+" attempt failed", err, map[string]interface{}{"attempt": attempt})
			}
			return err
		},
		strategy.Limit(w.cfg.CommitAttempts),
		func(uint) bool { return ctx.Err() == nil },
		strategy.Backoff(backoff.Exponential(w.cfg.CommitBackoff, 2)),
	)
}

func (w *Workflow) flagForReconciliation(ctx context.Context, outcome BookingOutcome, cause error) BookingOutcome {
	// o ticket já existe: a sinalização precisa sobreviver ao cancelamento da requisição
	ctx = context.WithoutCancel(ctx)
	ticket := outcome.Ticket
	outcome.State = StateSeatCommitFailed

	pkgApp.LogError(ctx, w.logger, "seat commit exhausted retries, ticket needs reconciliation", cause, map[string]interface{}{
		"ticket_id": ticket.ID,
		"route_id":  ticket.RouteID,
		"seats":     ticket.SeatNumbers,
	})

	if err := w.deps.Tickets.MarkStatus(ctx, ticket.ID, domain.TicketNeedsReconciliation); err != nil {
		pkgApp.LogError(ctx, w.logger, "failed to flag ticket for reconciliation", err, map[string]interface{}{"ticket_id": ticket.ID})
	} else {
		outcome.Ticket.Status = domain.TicketNeedsReconciliation
	}

	w.publish(ctx, NewSeatCommitFailedEvent(w.eventData(outcome.Ticket, cause.Error())))
	return outcome
}

func (w *Workflow) releaseClaims(ctx context.Context, routeID, reference string) {
	ctx = context.WithoutCancel(ctx)
	err := w.withRetry(ctx, "release claims", func() error {
		return w.deps.Claims.Release(ctx, routeID, reference)
	})
	if err != nil {
		pkgApp.LogError(ctx, w.logger, "failed to release seat claims", err, map[string]interface{}{"route_id": routeID, "reference": reference})
	}
}

func (w *Workflow) MyTickets(ctx context.Context, userID string) ([]TicketView, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: listing tickets requires a session", domain.ErrUnauthenticated)
	}
	tickets, err := w.deps.Tickets.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toViews(tickets), nil
}

// AllTickets é a visão administrativa, com nome e e-mail do passageiro.
func (w *Workflow) AllTickets(ctx context.Context) ([]TicketView, error) {
	tickets, err := w.deps.Tickets.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return w.withPassengers(ctx, tickets), nil
}

func (w *Workflow) FlaggedTickets(ctx context.Context) ([]TicketView, error) {
	tickets, err := w.deps.Tickets.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var flagged []domain.Ticket
	for _, t := range tickets {
		if t.Status == domain.TicketNeedsReconciliation {
			flagged = append(flagged, t)
		}
	}
	return w.withPassengers(ctx, flagged), nil
}

func (w *Workflow) FindTicketByReference(ctx context.Context, reference string) (domain.Ticket, error) {
	return w.deps.Tickets.FindByReference(ctx, reference)
}

func (w *Workflow) withPassengers(ctx context.Context, tickets []domain.Ticket) []TicketView {
	views := toViews(tickets)
	if w.deps.Passengers == nil {
		return views
	}

	known := make(map[string]*domain.Passenger)
	for i := range views {
		userID := views[i].UserID
		p, ok := known[userID]
		if !ok {
			found, err := w.deps.Passengers(ctx, userID)
			if err != nil {
				pkgApp.LogError(ctx, w.logger, "passenger lookup failed", err, map[string]interface{}{"user_id": userID})
			} else {
				p = &found
			}
			known[userID] = p
		}
		views[i].Passenger = p
	}
	return views
}

func toViews(tickets []domain.Ticket) []TicketView {
	views := make([]TicketView, len(tickets))
	for i, t := range tickets {
		views[i] = TicketView{Ticket: t}
	}
	return views
}

// CancelTicket libera somente os assentos do ticket (as claims e a projeção na rota) e então o apaga.
// Até a liberação terminar o ticket fica como cancelling; repetir o cancelamento retoma dali.
func (w *Workflow) CancelTicket(ctx context.Context, ticketID string) error {
	ticket, err := w.deps.Tickets.Find(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.Status != domain.TicketCancelling {
		if err := w.deps.Tickets.MarkStatus(ctx, ticket.ID, domain.TicketCancelling); err != nil {
			return err
		}
		ticket.Status = domain.TicketCancelling
	}

	if err := w.releaseSeats(ctx, ticket); err != nil {
		pkgApp.LogError(ctx, w.logger, "seat release failed, ticket kept as cancelling", err, map[string]interface{}{"ticket_id": ticket.ID, "route_id": ticket.RouteID})
		w.publish(ctx, NewSeatReleaseFailedEvent(w.eventData(ticket, err.Error())))
		return fmt.Errorf("cancel ticket %s: %w", ticket.ID, err)
	}

	if err := w.deps.Tickets.Delete(ctx, ticket.ID); err != nil {
		return err
	}

	w.publish(ctx, NewTicketCancelledEvent(w.eventData(ticket, "")))
	pkgApp.LogInfo(ctx, w.logger, "ticket cancelled", map[string]interface{}{"ticket_id": ticket.ID, "seats": ticket.SeatNumbers})
	return nil
}

// releaseSeats solta as claims do ticket e tira da projeção os assentos dele que nenhuma
// outra reference reivindicou.
func (w *Workflow) releaseSeats(ctx context.Context, ticket domain.Ticket) error {
	err := w.withRetry(ctx, "release claims", func() error {
		return w.deps.Claims.Release(ctx, ticket.RouteID, ticket.Reference)
	})
	if err != nil {
		return fmt.Errorf("claims: %w", err)
	}

	seats, err := ticket.Seats()
	if err != nil {
		return err
	}
	err = w.withRetry(ctx, "release seats", func() error {
		claimed, err := w.deps.Claims.Claimed(ctx, ticket.RouteID)
		if err != nil {
			return err
		}
		var mine []int
		for _, seat := range seats {
			if _, taken := claimed[seat]; !taken {
				mine = append(mine, seat)
			}
		}
		if len(mine) == 0 {
			return nil
		}

		_, err = w.deps.Routes.ReleaseBookedSeats(ctx, ticket.RouteID, domain.FormatSeats(mine))
		if errors.Is(err, domain.ErrNotFound) {
			// rota já removida: nada a liberar
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("route projection: %w", err)
	}
	return nil
}

// ReconcileTicket reaplica os assentos de um ticket sinalizado na rota e o marca como ativo.
// Se o ticket for cancelado no meio do caminho, desfaz o que reaplicou.
func (w *Workflow) ReconcileTicket(ctx context.Context, ticketID string) error {
	ticket, err := w.deps.Tickets.Find(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.Status != domain.TicketNeedsReconciliation {
		pkgApp.LogDebug(ctx, w.logger, "ticket does not need reconciliation", map[string]interface{}{"ticket_id": ticket.ID})
		return nil
	}

	seats, err := ticket.Seats()
	if err != nil {
		return err
	}
	if err := w.deps.Claims.Reclaim(ctx, ticket.RouteID, ticket.Reference, seats); err != nil {
		pkgApp.LogError(ctx, w.logger, "reconciliation found conflicting claims", err, map[string]interface{}{"ticket_id": ticket.ID})
		return err
	}
	if cancelled, err := w.cancelledMeanwhile(ctx, ticket); cancelled || err != nil {
		return err
	}

	route, err := w.deps.Routes.Find(ctx, ticket.RouteID)
	if err != nil {
		return err
	}
	if err := w.commitSeats(ctx, route, ticket); err != nil {
		return err
	}
	if cancelled, err := w.cancelledMeanwhile(ctx, ticket); cancelled || err != nil {
		return err
	}

	if err := w.deps.Tickets.MarkStatus(ctx, ticket.ID, domain.TicketActive); err != nil {
		return err
	}

	ticket.Status = domain.TicketActive
	w.publish(ctx, NewSeatsBookedEvent(w.eventData(ticket, "reconciled")))
	pkgApp.LogInfo(ctx, w.logger, "ticket reconciled", map[string]interface{}{"ticket_id": ticket.ID})
	return nil
}

// cancelledMeanwhile relê o ticket; se ele foi apagado ou está sendo cancelado, libera de novo
// o que a reconciliação reaplicou.
func (w *Workflow) cancelledMeanwhile(ctx context.Context, ticket domain.Ticket) (bool, error) {
	current, err := w.deps.Tickets.Find(ctx, ticket.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return false, err
	case current.Status != domain.TicketCancelling:
		return false, nil
	}

	pkgApp.LogInfo(ctx, w.logger, "ticket cancelled during reconciliation, releasing seats", map[string]interface{}{"ticket_id": ticket.ID})
	if err := w.releaseSeats(context.WithoutCancel(ctx), ticket); err != nil {
		pkgApp.LogError(ctx, w.logger, "seat release failed after reconciliation was abandoned", err, map[string]interface{}{"ticket_id": ticket.ID})
		w.publish(ctx, NewSeatReleaseFailedEvent(w.eventData(ticket, err.Error())))
		return true, err
	}
	return true, nil
}

func (w *Workflow) eventData(ticket domain.Ticket, reason string) BookingEventData {
	return BookingEventData{
		TicketID:    ticket.ID,
		Reference:   ticket.Reference,
		RouteID:     ticket.RouteID,
		UserID:      ticket.UserID,
		SeatNumbers: ticket.SeatNumbers,
		Reason:      reason,
		OccurredAt:  w.now().UTC(),
	}
}

// publish só registra falhas: o estado já foi gravado e o evento é informativo.
func (w *Workflow) publish(ctx context.Context, event pkgDomain.Event[BookingEventData]) {
	if w.deps.Events == nil {
		return
	}
	if err := w.deps.Events.Publish(ctx, event); err != nil {
		pkgApp.LogError(ctx, w.logger, "failed to publish event", err, map[string]interface{}{"event": event.EventName()})
	}
}
