package application

import (
	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

const (
	ListRoutesQuery      = "ListRoutes"
	GetRouteQuery        = "GetRoute"
	MyTicketsQuery       = "MyTickets"
	AllTicketsQuery      = "AllTickets"
	FlaggedTicketsQuery  = "FlaggedTickets"
	FindTicketByRefQuery = "FindTicketByReference"
)

type ListRoutesData struct {
	Filter domain.RouteFilter
}

type listRoutesQuery struct {
	data ListRoutesData
}

func (q listRoutesQuery) QueryName() string {
	return ListRoutesQuery
}

func (q listRoutesQuery) Payload() ListRoutesData {
	return q.data
}

func NewListRoutesQuery(data ListRoutesData) pkgDomain.Query[ListRoutesData] {
	return listRoutesQuery{data: data}
}

type GetRouteData struct {
	RouteID string
}

type getRouteQuery struct {
	data GetRouteData
}

func (q getRouteQuery) QueryName() string {
	return GetRouteQuery
}

func (q getRouteQuery) Payload() GetRouteData {
	return q.data
}

func NewGetRouteQuery(data GetRouteData) pkgDomain.Query[GetRouteData] {
	return getRouteQuery{data: data}
}

// RouteView é a rota com a ocupação efetiva (projeção ∪ claims) já calculada.
type RouteView struct {
	domain.Route
	OccupiedSeats []int             `json:"occupiedSeats"`
	Layout        domain.SeatLayout `json:"layout"`
	Available     int               `json:"available"`
}

// ListTicketsData seleciona tickets. UserID vazio só é aceito pelas consultas administrativas.
type ListTicketsData struct {
	UserID    string
	Reference string
}

type ticketsQuery struct {
	name string
	data ListTicketsData
}

func (q ticketsQuery) QueryName() string {
	return q.name
}

func (q ticketsQuery) Payload() ListTicketsData {
	return q.data
}

func NewMyTicketsQuery(userID string) pkgDomain.Query[ListTicketsData] {
	return ticketsQuery{name: MyTicketsQuery, data: ListTicketsData{UserID: userID}}
}

func NewAllTicketsQuery() pkgDomain.Query[ListTicketsData] {
	return ticketsQuery{name: AllTicketsQuery}
}

func NewFlaggedTicketsQuery() pkgDomain.Query[ListTicketsData] {
	return ticketsQuery{name: FlaggedTicketsQuery}
}

func NewFindTicketByReferenceQuery(reference string) pkgDomain.Query[ListTicketsData] {
	return ticketsQuery{name: FindTicketByRefQuery, data: ListTicketsData{Reference: reference}}
}

// TicketView é o ticket como aparece nas listagens, com o passageiro para a visão de admin.
type TicketView struct {
	domain.Ticket
	Passenger *domain.Passenger `json:"passenger,omitempty"`
}
