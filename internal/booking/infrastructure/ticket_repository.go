package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	"github.com/mateusmacedo/go-busbooking/internal/infrastructure/recordstore"
	"github.com/mateusmacedo/go-busbooking/pkg/application"
)

var ticketFieldNames = []string{"reference", "seatNumbers", "userId", "routeId", "status", "created_At"}

type recordTicketRepository struct {
	store    recordstore.Store
	pageSize int
	now      func() time.Time
	logger   application.AppLogger
}

func NewRecordTicketRepository(store recordstore.Store, pageSize int, logger application.AppLogger) domain.TicketRepository {
	if pageSize <= 0 {
		pageSize = recordstore.DefaultPageSize
	}
	return &recordTicketRepository{
		store:    store,
		pageSize: pageSize,
		now:      time.Now,
		logger:   logger,
	}
}

func (r *recordTicketRepository) Create(ctx context.Context, t domain.NewTicket) (domain.Ticket, error) {
	fields := recordstore.Fields{
		"reference":   t.Reference,
		"seatNumbers": domain.FormatSeats(t.SeatNumbers),
		"userId":      []string{t.UserID},
		"routeId":     []string{t.RouteID},
		"status":      string(domain.TicketActive),
		"created_At":  r.now().UTC().Format(time.RFC3339),
	}

	id, err := r.store.CreateRecord(ctx, ticketTable, fields)
	if err != nil {
		application.LogError(ctx, r.logger, "failed to create ticket", err, map[string]interface{}{"reference": t.Reference})
		return domain.Ticket{}, storeError(err)
	}

	application.LogInfo(ctx, r.logger, "ticket created", map[string]interface{}{"id": id, "reference": t.Reference})
	return decodeTicket(recordstore.Record{ID: id, Fields: fields})
}

func (r *recordTicketRepository) ListByUser(ctx context.Context, userID string) ([]domain.Ticket, error) {
	records, err := r.store.FindRecordsBy(ctx, ticketTable, "userId", userID)
	if err != nil {
		application.LogError(ctx, r.logger, "failed to list user tickets", err, map[string]interface{}{"user_id": userID})
		return nil, storeError(err)
	}
	return decodeTickets(records)
}

func (r *recordTicketRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	records, err := recordstore.ListAll(ctx, r.store, ticketTable, ticketFieldNames, r.pageSize)
	if err != nil {
		application.LogError(ctx, r.logger, "failed to list tickets", err, nil)
		return nil, storeError(err)
	}
	return decodeTickets(records)
}

func (r *recordTicketRepository) Find(ctx context.Context, ticketID string) (domain.Ticket, error) {
	rec, err := r.store.FindRecord(ctx, ticketTable, ticketID)
	if err != nil {
		return domain.Ticket{}, storeError(err)
	}
	return decodeTicket(rec)
}

func (r *recordTicketRepository) FindByReference(ctx context.Context, reference string) (domain.Ticket, error) {
	records, err := r.store.FindRecordsBy(ctx, ticketTable, "reference", reference)
	if err != nil {
		return domain.Ticket{}, storeError(err)
	}
	if len(records) == 0 {
		return domain.Ticket{}, fmt.Errorf("%w: ticket with reference %s", domain.ErrNotFound, reference)
	}
	return decodeTicket(records[0])
}

func (r *recordTicketRepository) Delete(ctx context.Context, ticketID string) error {
	if _, err := r.store.FindRecord(ctx, ticketTable, ticketID); err != nil {
		return storeError(err)
	}
	if err := r.store.DeleteRecords(ctx, ticketTable, []string{ticketID}); err != nil {
		application.LogError(ctx, r.logger, "failed to delete ticket", err, map[string]interface{}{"id": ticketID})
		return storeError(err)
	}
	application.LogInfo(ctx, r.logger, "ticket deleted", map[string]interface{}{"id": ticketID})
	return nil
}

func (r *recordTicketRepository) MarkStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error {
	if err := r.store.UpdateRecord(ctx, ticketTable, ticketID, recordstore.Fields{"status": string(status)}); err != nil {
		application.LogError(ctx, r.logger, "failed to update ticket status", err, map[string]interface{}{"id": ticketID, "status": status})
		return storeError(err)
	}
	return nil
}

func decodeTickets(records []recordstore.Record) ([]domain.Ticket, error) {
	tickets := make([]domain.Ticket, 0, len(records))
	for _, rec := range records {
		t, err := decodeTicket(rec)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

func decodeTicket(rec recordstore.Record) (domain.Ticket, error) {
	t := domain.Ticket{ID: rec.ID}
	wrap := func(err error) (domain.Ticket, error) {
		return domain.Ticket{}, fmt.Errorf("%w: ticket %s: %w", domain.ErrStore, rec.ID, err)
	}

	var err error
	if t.SeatNumbers, err = rec.Fields.String("seatNumbers"); err != nil {
		return wrap(err)
	}
	if t.UserID, err = rec.Fields.Reference("userId"); err != nil {
		return wrap(err)
	}
	if t.RouteID, err = rec.Fields.Reference("routeId"); err != nil {
		return wrap(err)
	}
	if t.Reference, err = rec.Fields.OptionalString("reference"); err != nil {
		return wrap(err)
	}

	status, err := rec.Fields.OptionalString("status")
	if err != nil {
		return wrap(err)
	}
	t.Status = domain.TicketStatus(status)
	if t.Status == "" {
		t.Status = domain.TicketActive
	}

	created, err := rec.Fields.OptionalString("created_At")
	if err != nil {
		return wrap(err)
	}
	if created != "" {
		if t.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return wrap(err)
		}
	}

	if _, err := t.Seats(); err != nil {
		return domain.Ticket{}, fmt.Errorf("ticket %s: %w", rec.ID, err)
	}
	return t, nil
}
