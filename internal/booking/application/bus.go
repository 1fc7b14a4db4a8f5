package application

import (
	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	pkgApp "github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

type (
	BookSeatsBus     = pkgApp.CommandBus[pkgDomain.Command[BookSeatsData], BookSeatsData]
	TicketCommandBus = pkgApp.CommandBus[pkgDomain.Command[TicketData], TicketData]
	RouteCommandBus  = pkgApp.CommandBus[pkgDomain.Command[RouteData], RouteData]

	ListRoutesBus   = pkgApp.QueryBus[pkgDomain.Query[ListRoutesData], ListRoutesData, []domain.Route]
	GetRouteBus     = pkgApp.QueryBus[pkgDomain.Query[GetRouteData], GetRouteData, RouteView]
	TicketsQueryBus = pkgApp.QueryBus[pkgDomain.Query[ListTicketsData], ListTicketsData, []TicketView]

	EventBus = pkgApp.EventBus[pkgDomain.Event[BookingEventData], BookingEventData]
)
