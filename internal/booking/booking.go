package booking

import (
	"github.com/go-chi/chi/v5"

	"github.com/mateusmacedo/go-busbooking/internal/booking/application"
	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	"github.com/mateusmacedo/go-busbooking/internal/booking/infrastructure"
	pkgApp "github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
	pkgInfra "github.com/mateusmacedo/go-busbooking/pkg/infrastructure"
)

type BookingSlice struct {
	workflow    *application.Workflow
	httpHandler *infrastructure.BookingHTTPHandler
	buses       infrastructure.BookingBuses
	reconciler  *application.SeatCommitFailedEventHandler
}

// NewBookingSlice monta o fluxo de reserva: registra os handlers nos barramentos e no
// eventBus recebido, que pode ser o síncrono em memória ou um transporte do Watermill.
func NewBookingSlice(
	deps application.Dependencies,
	cfg application.WorkflowConfig,
	logger pkgApp.AppLogger,
) *BookingSlice {
	workflow := application.NewWorkflow(deps, cfg, logger)

	buses := infrastructure.BookingBuses{
		BookSeats:      pkgInfra.NewSimpleCommandBus[pkgDomain.Command[application.BookSeatsData], application.BookSeatsData](logger),
		TicketCommands: pkgInfra.NewSimpleCommandBus[pkgDomain.Command[application.TicketData], application.TicketData](logger),
		RouteCommands:  pkgInfra.NewSimpleCommandBus[pkgDomain.Command[application.RouteData], application.RouteData](logger),
		ListRoutes:     pkgInfra.NewSimpleQueryBus[pkgDomain.Query[application.ListRoutesData], application.ListRoutesData, []domain.Route](logger),
		GetRoute:       pkgInfra.NewSimpleQueryBus[pkgDomain.Query[application.GetRouteData], application.GetRouteData, application.RouteView](logger),
		Tickets:        pkgInfra.NewSimpleQueryBus[pkgDomain.Query[application.ListTicketsData], application.ListTicketsData, []application.TicketView](logger),
	}

	buses.BookSeats.RegisterHandler(application.BookSeatsCommand, application.NewBookSeatsHandler(workflow, logger))

	ticketHandler := application.NewTicketCommandHandler(workflow, logger)
	buses.TicketCommands.RegisterHandler(application.CancelTicketCommand, ticketHandler)
	buses.TicketCommands.RegisterHandler(application.ReconcileTicketCommand, ticketHandler)

	routeHandler := application.NewRouteCommandHandler(deps.Routes, logger)
	buses.RouteCommands.RegisterHandler(application.CreateRouteCommand, routeHandler)
	buses.RouteCommands.RegisterHandler(application.UpdateRouteCommand, routeHandler)
	buses.RouteCommands.RegisterHandler(application.DeleteRouteCommand, routeHandler)

	buses.ListRoutes.RegisterHandler(application.ListRoutesQuery, application.NewListRoutesHandler(workflow, logger))
	buses.GetRoute.RegisterHandler(application.GetRouteQuery, application.NewGetRouteHandler(workflow, logger))

	ticketsHandler := application.NewTicketsQueryHandler(workflow, logger)
	for _, name := range []string{application.MyTicketsQuery, application.AllTicketsQuery, application.FlaggedTicketsQuery, application.FindTicketByRefQuery} {
		buses.Tickets.RegisterHandler(name, ticketsHandler)
	}

	var reconciler *application.SeatCommitFailedEventHandler
	if deps.Events != nil {
		logHandler := application.NewBookingEventLogHandler(logger)
		for _, name := range []string{application.SeatsBookedEvent, application.TicketCancelledEvent, application.SeatReleaseFailedEvent, application.SeatCommitFailedEvent} {
			deps.Events.RegisterHandler(name, logHandler)
		}
		wcfg := workflow.Config()
		reconciler = application.NewSeatCommitFailedEventHandler(buses.TicketCommands, wcfg.ReconcileTimeout, wcfg.ReconcileInBackground, logger)
		deps.Events.RegisterHandler(application.SeatCommitFailedEvent, reconciler)
	}

	return &BookingSlice{
		workflow:    workflow,
		httpHandler: infrastructure.NewBookingHTTPHandler(buses, deps.IDGenerator, workflow.Config().PaymentWindow, logger),
		buses:       buses,
		reconciler:  reconciler,
	}
}

func (s *BookingSlice) Workflow() *application.Workflow {
	return s.workflow
}

func (s *BookingSlice) Buses() infrastructure.BookingBuses {
	return s.buses
}

// Close espera as reconciliações automáticas que ainda estão rodando.
func (s *BookingSlice) Close() {
	if s.reconciler != nil {
		s.reconciler.Wait()
	}
}

func (s *BookingSlice) RegisterRoutes(router chi.Router, guards infrastructure.AccessGuards) {
	s.httpHandler.RegisterRoutes(router, guards)
}
