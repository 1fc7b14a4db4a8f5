package application

import (
	"time"

	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

const (
	SeatsBookedEvent       = "SeatsBooked"
	TicketCancelledEvent   = "TicketCancelled"
	SeatCommitFailedEvent  = "SeatCommitFailed"
	SeatReleaseFailedEvent = "SeatReleaseFailed"
)

// BookingEventData é o payload comum dos eventos do fluxo de reserva.
type BookingEventData struct {
	TicketID    string    `json:"ticketId"`
	Reference   string    `json:"reference"`
	RouteID     string    `json:"routeId"`
	UserID      string    `json:"userId"`
	SeatNumbers string    `json:"seatNumbers"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

type bookingEvent struct {
	name string
	data BookingEventData
}

func (e bookingEvent) EventName() string {
	return e.name
}

func (e bookingEvent) Payload() BookingEventData {
	return e.data
}

func NewSeatsBookedEvent(data BookingEventData) pkgDomain.Event[BookingEventData] {
	return bookingEvent{name: SeatsBookedEvent, data: data}
}

func NewTicketCancelledEvent(data BookingEventData) pkgDomain.Event[BookingEventData] {
	return bookingEvent{name: TicketCancelledEvent, data: data}
}

// NewSeatCommitFailedEvent sinaliza um ticket criado cujos assentos não chegaram à rota.
func NewSeatCommitFailedEvent(data BookingEventData) pkgDomain.Event[BookingEventData] {
	return bookingEvent{name: SeatCommitFailedEvent, data: data}
}

func NewSeatReleaseFailedEvent(data BookingEventData) pkgDomain.Event[BookingEventData] {
	return bookingEvent{name: SeatReleaseFailedEvent, data: data}
}
