package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	pkgApp "github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

type bookSeatsHandler struct {
	workflow *Workflow
	logger   pkgApp.AppLogger
}

func (h *bookSeatsHandler) Handle(ctx context.Context, command pkgDomain.Command[BookSeatsData]) error {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "Contexto cancelado", ctx.Err(), nil)
		return ctx.Err()
	}

	outcome, err := h.workflow.BookSeats(ctx, command.Payload())
	if err != nil {
		return err
	}

	pkgApp.LogInfo(ctx, h.logger, "Reserva processada", map[string]interface{}{"state": outcome.State, "ticket_id": outcome.Ticket.ID})
	return nil
}

func NewBookSeatsHandler(workflow *Workflow, logger pkgApp.AppLogger) pkgApp.CommandHandler[pkgDomain.Command[BookSeatsData], BookSeatsData] {
	return &bookSeatsHandler{
		workflow: workflow,
		logger:   logger,
	}
}

type ticketCommandHandler struct {
	workflow *Workflow
	logger   pkgApp.AppLogger
}

func (h *ticketCommandHandler) Handle(ctx context.Context, command pkgDomain.Command[TicketData]) error {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "Contexto cancelado", ctx.Err(), nil)
		return ctx.Err()
	}

	data := command.Payload()
	switch command.CommandName() {
	case CancelTicketCommand:
		return h.workflow.CancelTicket(ctx, data.TicketID)
	case ReconcileTicketCommand:
		return h.workflow.ReconcileTicket(ctx, data.TicketID)
	default:
		return fmt.Errorf("unsupported ticket command %s", command.CommandName())
	}
}

// NewTicketCommandHandler atende CancelTicket e ReconcileTicket.
func NewTicketCommandHandler(workflow *Workflow, logger pkgApp.AppLogger) pkgApp.CommandHandler[pkgDomain.Command[TicketData], TicketData] {
	return &ticketCommandHandler{
		workflow: workflow,
		logger:   logger,
	}
}

type routeCommandHandler struct {
	repository domain.RouteRepository
	logger     pkgApp.AppLogger
}

func (h *routeCommandHandler) Handle(ctx context.Context, command pkgDomain.Command[RouteData]) error {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "Contexto cancelado", ctx.Err(), nil)
		return ctx.Err()
	}

	data := command.Payload()
	var err error
	switch command.CommandName() {
	case CreateRouteCommand:
		var route domain.Route
		route, err = h.repository.Create(ctx, data.Fields)
		data.RouteID = route.ID
	case UpdateRouteCommand:
		err = h.repository.Update(ctx, data.RouteID, data.Fields)
	case DeleteRouteCommand:
		err = h.repository.Delete(ctx, data.RouteID)
	default:
		err = fmt.Errorf("unsupported route command %s", command.CommandName())
	}

	if err != nil {
		pkgApp.LogError(ctx, h.logger, "Erro ao alterar rota", err, map[string]interface{}{"command": command.CommandName(), "route_id": data.RouteID})
		return err
	}

	pkgApp.LogInfo(ctx, h.logger, "Rota alterada", map[string]interface{}{"command": command.CommandName(), "route_id": data.RouteID})
	return nil
}

func NewRouteCommandHandler(repo domain.RouteRepository, logger pkgApp.AppLogger) pkgApp.CommandHandler[pkgDomain.Command[RouteData], RouteData] {
	return &routeCommandHandler{
		repository: repo,
		logger:     logger,
	}
}

type listRoutesHandler struct {
	workflow *Workflow
	logger   pkgApp.AppLogger
}

func (h *listRoutesHandler) Handle(ctx context.Context, query pkgDomain.Query[ListRoutesData]) ([]domain.Route, error) {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "Contexto cancelado", ctx.Err(), nil)
		return nil, ctx.Err()
	}

	routes, err := h.workflow.ListRoutes(ctx, query.Payload().Filter)
	if err != nil {
		pkgApp.LogError(ctx, h.logger, "Erro ao listar rotas", err, nil)
		return nil, err
	}
	return routes, nil
}

func NewListRoutesHandler(workflow *Workflow, logger pkgApp.AppLogger) pkgApp.QueryHandler[pkgDomain.Query[ListRoutesData], ListRoutesData, []domain.Route] {
	return &listRoutesHandler{
		workflow: workflow,
		logger:   logger,
	}
}

type getRouteHandler struct {
	workflow *Workflow
	logger   pkgApp.AppLogger
}

func (h *getRouteHandler) Handle(ctx context.Context, query pkgDomain.Query[GetRouteData]) (RouteView, error) {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "Contexto cancelado", ctx.Err(), nil)
		return RouteView{}, ctx.Err()
	}

	routeID := query.Payload().RouteID
	view, err := h.workflow.GetRoute(ctx, routeID)
	if err != nil {
		pkgApp.LogError(ctx, h.logger, "Erro ao encontrar rota", err, map[string]interface{}{"route_id": routeID})
		return RouteView{}, err
	}
	return view, nil
}

func NewGetRouteHandler(workflow *Workflow, logger pkgApp.AppLogger) pkgApp.QueryHandler[pkgDomain.Query[GetRouteData], GetRouteData, RouteView] {
	return &getRouteHandler{
		workflow: workflow,
		logger:   logger,
	}
}

type ticketsQueryHandler struct {
	workflow *Workflow
	logger   pkgApp.AppLogger
}

func (h *ticketsQueryHandler) Handle(ctx context.Context, query pkgDomain.Query[ListTicketsData]) ([]TicketView, error) {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "Contexto cancelado", ctx.Err(), nil)
		return nil, ctx.Err()
	}

	data := query.Payload()
	var (
		tickets []TicketView
		err     error
	)
	switch query.QueryName() {
	case MyTicketsQuery:
		tickets, err = h.workflow.MyTickets(ctx, data.UserID)
	case AllTicketsQuery:
		tickets, err = h.workflow.AllTickets(ctx)
	case FlaggedTicketsQuery:
		tickets, err = h.workflow.FlaggedTickets(ctx)
	case FindTicketByRefQuery:
		var ticket domain.Ticket
		ticket, err = h.workflow.FindTicketByReference(ctx, data.Reference)
		if err == nil {
			tickets = []TicketView{{Ticket: ticket}}
		}
	default:
		err = fmt.Errorf("unsupported ticket query %s", query.QueryName())
	}

	if err != nil {
		pkgApp.LogError(ctx, h.logger, "Erro ao consultar tickets", err, map[string]interface{}{"query": query.QueryName()})
		return nil, err
	}
	return tickets, nil
}

// NewTicketsQueryHandler atende as consultas de tickets do usuário, de admin e por reference.
func NewTicketsQueryHandler(workflow *Workflow, logger pkgApp.AppLogger) pkgApp.QueryHandler[pkgDomain.Query[ListTicketsData], ListTicketsData, []TicketView] {
	return &ticketsQueryHandler{
		workflow: workflow,
		logger:   logger,
	}
}

// SeatCommitFailedEventHandler tenta uma única reconciliação automática, limitada por timeout.
// Em background, ela roda fora da goroutine de quem publicou; Wait espera as pendentes.
type SeatCommitFailedEventHandler struct {
	commandBus TicketCommandBus
	timeout    time.Duration
	background bool
	pending    sync.WaitGroup
	logger     pkgApp.AppLogger
}

// Handle nunca devolve a falha da reconciliação ao barramento, para não gerar reentregas em laço;
// o ticket continua sinalizado para o admin.
func (h *SeatCommitFailedEventHandler) Handle(ctx context.Context, event pkgDomain.Event[BookingEventData]) error {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "Contexto cancelado", ctx.Err(), nil)
		return ctx.Err()
	}

	ticketID := event.Payload().TicketID
	if !h.background {
		h.reconcile(ctx, ticketID)
		return nil
	}

	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		h.reconcile(context.WithoutCancel(ctx), ticketID)
	}()
	return nil
}

func (h *SeatCommitFailedEventHandler) reconcile(ctx context.Context, ticketID string) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.commandBus.Dispatch(ctx, NewReconcileTicketCommand(TicketData{TicketID: ticketID})); err != nil {
		pkgApp.LogError(ctx, h.logger, "Reconciliação automática falhou", err, map[string]interface{}{"ticket_id": ticketID})
		return
	}
	pkgApp.LogInfo(ctx, h.logger, "Ticket reconciliado automaticamente", map[string]interface{}{"ticket_id": ticketID})
}

func (h *SeatCommitFailedEventHandler) Wait() {
	h.pending.Wait()
}

func NewSeatCommitFailedEventHandler(commandBus TicketCommandBus, timeout time.Duration, background bool, logger pkgApp.AppLogger) *SeatCommitFailedEventHandler {
	return &SeatCommitFailedEventHandler{
		commandBus: commandBus,
		timeout:    timeout,
		background: background,
		logger:     logger,
	}
}

type bookingEventLogHandler struct {
	logger pkgApp.AppLogger
}

func (h *bookingEventLogHandler) Handle(ctx context.Context, event pkgDomain.Event[BookingEventData]) error {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "Contexto cancelado", ctx.Err(), nil)
		return ctx.Err()
	}

	pkgApp.LogInfo(ctx, h.logger, "Evento recebido", map[string]interface{}{"event": event.EventName(), "payload": event.Payload()})
	return nil
}

func NewBookingEventLogHandler(logger pkgApp.AppLogger) pkgApp.EventHandler[pkgDomain.Event[BookingEventData], BookingEventData] {
	return &bookingEventLogHandler{
		logger: logger,
	}
}
