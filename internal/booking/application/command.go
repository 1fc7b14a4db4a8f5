package application

import (
	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

const (
	BookSeatsCommand       = "BookSeats"
	CancelTicketCommand    = "CancelTicket"
	ReconcileTicketCommand = "ReconcileTicket"
	CreateRouteCommand     = "CreateRoute"
	UpdateRouteCommand     = "UpdateRoute"
	DeleteRouteCommand     = "DeleteRoute"
)

// BookSeatsData contém os dados de uma tentativa de compra. Reference é gerada pelo cliente
// e torna a tentativa idempotente.
type BookSeatsData struct {
	Reference    string
	RouteID      string
	UserID       string
	SeatNumbers  []int
	PaymentToken string
}

type bookSeatsCommand struct {
	data BookSeatsData
}

func (c bookSeatsCommand) CommandName() string {
	return BookSeatsCommand
}

func (c bookSeatsCommand) Payload() BookSeatsData {
	return c.data
}

func NewBookSeatsCommand(data BookSeatsData) pkgDomain.Command[BookSeatsData] {
	return bookSeatsCommand{data: data}
}

// TicketData identifica um ticket para cancelamento ou reconciliação.
type TicketData struct {
	TicketID string
}

type ticketCommand struct {
	name string
	data TicketData
}

func (c ticketCommand) CommandName() string {
	return c.name
}

func (c ticketCommand) Payload() TicketData {
	return c.data
}

func NewCancelTicketCommand(data TicketData) pkgDomain.Command[TicketData] {
	return ticketCommand{name: CancelTicketCommand, data: data}
}

func NewReconcileTicketCommand(data TicketData) pkgDomain.Command[TicketData] {
	return ticketCommand{name: ReconcileTicketCommand, data: data}
}

// RouteData carrega os campos editáveis; RouteID fica vazio na criação.
type RouteData struct {
	RouteID string
	Fields  domain.RouteFields
}

type routeCommand struct {
	name string
	data RouteData
}

func (c routeCommand) CommandName() string {
	return c.name
}

func (c routeCommand) Payload() RouteData {
	return c.data
}

func NewCreateRouteCommand(data RouteData) pkgDomain.Command[RouteData] {
	return routeCommand{name: CreateRouteCommand, data: data}
}

func NewUpdateRouteCommand(data RouteData) pkgDomain.Command[RouteData] {
	return routeCommand{name: UpdateRouteCommand, data: data}
}

func NewDeleteRouteCommand(routeID string) pkgDomain.Command[RouteData] {
	return routeCommand{name: DeleteRouteCommand, data: RouteData{RouteID: routeID}}
}
