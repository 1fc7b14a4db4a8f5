package domain

import (
	"context"
	"time"
)

type TicketStatus string

const (
	TicketActive              TicketStatus = "active"
	TicketNeedsReconciliation TicketStatus = "needs_reconciliation"
	// TicketCancelling fica gravado até os assentos serem liberados; o cancelamento pode ser repetido.
	TicketCancelling TicketStatus = "cancelling"
)

// Ticket liga um usuário, uma rota e os assentos comprados. Reference é gerada pelo cliente
// antes da reserva e identifica a tentativa de compra (idempotência e dono das seat claims).
type Ticket struct {
	ID          string       `json:"id"`
	Reference   string       `json:"reference"`
	SeatNumbers string       `json:"seatNumbers"`
	UserID      string       `json:"userId"`
	RouteID     string       `json:"routeId"`
	Status      TicketStatus `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
}

func (t Ticket) Seats() ([]int, error) {
	return ParseSeats(t.SeatNumbers)
}

type NewTicket struct {
	Reference   string
	SeatNumbers []int
	UserID      string
	RouteID     string
}

type TicketRepository interface {
	Create(ctx context.Context, ticket NewTicket) (Ticket, error)
	ListByUser(ctx context.Context, userID string) ([]Ticket, error)
	ListAll(ctx context.Context) ([]Ticket, error)
	Find(ctx context.Context, ticketID string) (Ticket, error)
	FindByReference(ctx context.Context, reference string) (Ticket, error)
	Delete(ctx context.Context, ticketID string) error
	MarkStatus(ctx context.Context, ticketID string, status TicketStatus) error
}
