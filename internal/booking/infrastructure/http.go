package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mateusmacedo/go-busbooking/internal/booking/application"
	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	identity "github.com/mateusmacedo/go-busbooking/internal/identity/domain"
	pkgApp "github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

const requestTimeout = 10 * time.Second

// AccessGuards são os middlewares de sessão fornecidos pelo módulo de identidade.
type AccessGuards struct {
	RequireUser  func(http.Handler) http.Handler
	RequireAdmin func(http.Handler) http.Handler
}

type BookingBuses struct {
	BookSeats      application.BookSeatsBus
	TicketCommands application.TicketCommandBus
	RouteCommands  application.RouteCommandBus
	ListRoutes     application.ListRoutesBus
	GetRoute       application.GetRouteBus
	Tickets        application.TicketsQueryBus
}

type BookingHTTPHandler struct {
	buses          BookingBuses
	validate       *validator.Validate
	idGenerator    pkgDomain.IDGenerator[string]
	bookingTimeout time.Duration
	logger         pkgApp.AppLogger
}

// NewBookingHTTPHandler dá à reserva a janela de pagamento mais o prazo normal de uma requisição.
func NewBookingHTTPHandler(buses BookingBuses, idGenerator pkgDomain.IDGenerator[string], paymentWindow time.Duration, logger pkgApp.AppLogger) *BookingHTTPHandler {
	return &BookingHTTPHandler{
		buses:          buses,
		validate:       validator.New(),
		idGenerator:    idGenerator,
		bookingTimeout: paymentWindow + requestTimeout,
		logger:         logger,
	}
}

type bookSeatsRequest struct {
	SeatNumbers  []int  `json:"seatNumbers" validate:"required,min=1,dive,min=1"`
	Reference    string `json:"reference" validate:"omitempty,max=64"`
	PaymentToken string `json:"paymentToken"`
}

func (h *BookingHTTPHandler) HandleListRoutes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	query := application.NewListRoutesQuery(application.ListRoutesData{
		Filter: domain.RouteFilter{
			Query:   r.URL.Query().Get("q"),
			RouteID: r.URL.Query().Get("routeId"),
		},
	})
	routes, err := h.buses.ListRoutes.Dispatch(ctx, query)
	if err != nil {
		h.respondListError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": routes})
}

func (h *BookingHTTPHandler) HandleGetRoute(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	view, err := h.buses.GetRoute.Dispatch(ctx, application.NewGetRouteQuery(application.GetRouteData{
		RouteID: chi.URLParam(r, "routeID"),
	}))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": view})
}

func (h *BookingHTTPHandler) HandleCreateRoute(w http.ResponseWriter, r *http.Request) {
	var fields domain.RouteFields
	if !h.decode(w, r, &fields) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	fields.RouteID = h.idGenerator()
	if err := h.buses.RouteCommands.Dispatch(ctx, application.NewCreateRouteCommand(application.RouteData{Fields: fields})); err != nil {
		handleError(w, err)
		return
	}

	routes, err := h.buses.ListRoutes.Dispatch(ctx, application.NewListRoutesQuery(application.ListRoutesData{
		Filter: domain.RouteFilter{RouteID: fields.RouteID},
	}))
	if err != nil || len(routes) != 1 {
		pkgApp.LogError(ctx, h.logger, "created route not readable", err, map[string]interface{}{"route_id": fields.RouteID, "matches": len(routes)})
		writeJSON(w, http.StatusAccepted, map[string]interface{}{"message": "Route accepted", "data": map[string]interface{}{"routeId": fields.RouteID}})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"message": "Route created", "data": routes[0]})
}

func (h *BookingHTTPHandler) HandleUpdateRoute(w http.ResponseWriter, r *http.Request) {
	var fields domain.RouteFields
	if !h.decode(w, r, &fields) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	command := application.NewUpdateRouteCommand(application.RouteData{RouteID: chi.URLParam(r, "routeID"), Fields: fields})
	if err := h.buses.RouteCommands.Dispatch(ctx, command); err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Route updated", "data": fields})
}

func (h *BookingHTTPHandler) HandleDeleteRoute(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.buses.RouteCommands.Dispatch(ctx, application.NewDeleteRouteCommand(chi.URLParam(r, "routeID"))); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BookingHTTPHandler) HandleBookSeats(w http.ResponseWriter, r *http.Request) {
	user, _ := identity.FromContext(r.Context())

	var req bookSeatsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Reference == "" {
		req.Reference = r.Header.Get("Idempotency-Key")
	}
	if req.Reference == "" {
		req.Reference = h.idGenerator()
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.bookingTimeout)
	defer cancel()

	command := application.NewBookSeatsCommand(application.BookSeatsData{
		Reference:    req.Reference,
		RouteID:      chi.URLParam(r, "routeID"),
		UserID:       user.UserID,
		SeatNumbers:  req.SeatNumbers,
		PaymentToken: req.PaymentToken,
	})
	if err := h.buses.BookSeats.Dispatch(ctx, command); err != nil {
		handleError(w, err)
		return
	}

	tickets, err := h.buses.Tickets.Dispatch(ctx, application.NewFindTicketByReferenceQuery(req.Reference))
	if err != nil || len(tickets) == 0 {
		pkgApp.LogError(ctx, h.logger, "booked ticket not readable", err, map[string]interface{}{"reference": req.Reference})
		writeJSON(w, http.StatusAccepted, map[string]interface{}{"message": "Booking accepted", "data": map[string]interface{}{"reference": req.Reference}})
		return
	}

	ticket := tickets[0].Ticket
	state := application.StateSeatsCommitted
	if ticket.Status == domain.TicketNeedsReconciliation {
		state = application.StateSeatCommitFailed
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Seats booked",
		"data":    application.BookingOutcome{State: state, Ticket: ticket},
	})
}

func (h *BookingHTTPHandler) HandleMyTickets(w http.ResponseWriter, r *http.Request) {
	user, _ := identity.FromContext(r.Context())
	h.listTickets(w, r, application.NewMyTicketsQuery(user.UserID))
}

func (h *BookingHTTPHandler) HandleAllTickets(w http.ResponseWriter, r *http.Request) {
	h.listTickets(w, r, application.NewAllTicketsQuery())
}

func (h *BookingHTTPHandler) HandleFlaggedTickets(w http.ResponseWriter, r *http.Request) {
	h.listTickets(w, r, application.NewFlaggedTicketsQuery())
}

func (h *BookingHTTPHandler) listTickets(w http.ResponseWriter, r *http.Request, query pkgDomain.Query[application.ListTicketsData]) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	tickets, err := h.buses.Tickets.Dispatch(ctx, query)
	if err != nil {
		h.respondListError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": tickets})
}

func (h *BookingHTTPHandler) HandleCancelTicket(w http.ResponseWriter, r *http.Request) {
	h.ticketCommand(w, r, application.NewCancelTicketCommand, "Ticket cancelled")
}

func (h *BookingHTTPHandler) HandleReconcileTicket(w http.ResponseWriter, r *http.Request) {
	h.ticketCommand(w, r, application.NewReconcileTicketCommand, "Ticket reconciled")
}

func (h *BookingHTTPHandler) ticketCommand(w http.ResponseWriter, r *http.Request, build func(application.TicketData) pkgDomain.Command[application.TicketData], message string) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	data := application.TicketData{TicketID: chi.URLParam(r, "ticketID")}
	if err := h.buses.TicketCommands.Dispatch(ctx, build(data)); err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": message, "data": data})
}

func (h *BookingHTTPHandler) RegisterRoutes(router chi.Router, guards AccessGuards) {
	router.Get("/routes", h.HandleListRoutes)
	router.Get("/routes/{routeID}", h.HandleGetRoute)

	router.Group(func(r chi.Router) {
		r.Use(guards.RequireUser)
		r.Post("/routes/{routeID}/bookings", h.HandleBookSeats)
		r.Get("/tickets/mine", h.HandleMyTickets)
	})

	router.Group(func(r chi.Router) {
		r.Use(guards.RequireAdmin)
		r.Post("/routes", h.HandleCreateRoute)
		r.Put("/routes/{routeID}", h.HandleUpdateRoute)
		r.Delete("/routes/{routeID}", h.HandleDeleteRoute)
		r.Get("/tickets", h.HandleAllTickets)
		r.Delete("/tickets/{ticketID}", h.HandleCancelTicket)
		r.Get("/admin/reconciliation", h.HandleFlaggedTickets)
		r.Post("/admin/tickets/{ticketID}/reconcile", h.HandleReconcileTicket)
	})
}

func (h *BookingHTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "Invalid request"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return false
	}
	return true
}

// respondListError segue a regra das listagens: falha do store vira lista vazia com aviso.
func (h *BookingHTTPHandler) respondListError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrStore) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data":      []interface{}{},
			"error":     err.Error(),
			"retryable": true,
		})
		return
	}
	handleError(w, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBookingInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSeatUnavailable):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidSeats), errors.Is(err, domain.ErrInvalidRoute):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrStore):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func handleError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]interface{}{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
