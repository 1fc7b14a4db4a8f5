package domain

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Route é uma viagem agendada. BookedSeats é a visão canônica dos assentos ocupados
// devolvida aos clientes, no formato "1,2,7".
type Route struct {
	ID                string    `json:"id"`
	RouteID           string    `json:"routeId"`
	Origin            string    `json:"origin"`
	Destination       string    `json:"destination"`
	DepartureTime     time.Time `json:"departureTime"`
	EstimatedDuration string    `json:"estimatedDuration"`
	Price             string    `json:"price"`
	BookedSeats       string    `json:"bookedSeats"`
	BusNumber         string    `json:"busNumber,omitempty"`
	PickupLocation    string    `json:"pickupLocation,omitempty"`
}

func (r Route) Occupied() ([]int, error) {
	return ParseSeats(r.BookedSeats)
}

// Fare é o preço vezes a quantidade de assentos.
func (r Route) Fare(seats int) (float64, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(r.Price), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: route %s has malformed price %q", ErrStore, r.ID, r.Price)
	}
	return price * float64(seats), nil
}

// RouteFields são os campos editáveis de uma rota. BookedSeats nunca passa por aqui.
// RouteID é o id de negócio, só lido na criação; vazio, o repositório gera um.
type RouteFields struct {
	RouteID           string    `json:"-"`
	Origin            string    `json:"origin" validate:"required"`
	Destination       string    `json:"destination" validate:"required"`
	DepartureTime     time.Time `json:"departureTime" validate:"required"`
	EstimatedDuration string    `json:"estimatedDuration" validate:"required,numeric"`
	Price             string    `json:"price" validate:"required,numeric"`
	BusNumber         string    `json:"busNumber,omitempty"`
	PickupLocation    string    `json:"pickupLocation,omitempty"`
}

func (f RouteFields) Validate() error {
	if strings.TrimSpace(f.Origin) == "" || strings.TrimSpace(f.Destination) == "" {
		return fmt.Errorf("%w: origin and destination are required", ErrInvalidRoute)
	}
	if f.DepartureTime.IsZero() {
		return fmt.Errorf("%w: departure time is required", ErrInvalidRoute)
	}
	if p, err := strconv.ParseFloat(f.Price, 64); err != nil || p < 0 {
		return fmt.Errorf("%w: price %q", ErrInvalidRoute, f.Price)
	}
	if d, err := strconv.ParseFloat(f.EstimatedDuration, 64); err != nil || d <= 0 {
		return fmt.Errorf("%w: estimated duration %q", ErrInvalidRoute, f.EstimatedDuration)
	}
	return nil
}

// RouteFilter é a busca por origem/destino, sem diferenciar maiúsculas, e opcionalmente
// pelo id de negócio da rota.
type RouteFilter struct {
	Query   string
	RouteID string
}

func (f RouteFilter) Match(r Route) bool {
	if f.RouteID != "" && r.RouteID != f.RouteID {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Origin), q) || strings.Contains(strings.ToLower(r.Destination), q)
}

type RouteRepository interface {
	List(ctx context.Context) ([]Route, error)
	Find(ctx context.Context, routeID string) (Route, error)
	Create(ctx context.Context, fields RouteFields) (Route, error)
	Update(ctx context.Context, routeID string, fields RouteFields) error
	Delete(ctx context.Context, routeID string) error

	// ApplyBookedSeats grava a união de route.BookedSeats com seatNumbersToAdd, relendo a rota
	// sob o RouteLocker. Um addend vazio não altera nada.
	ApplyBookedSeats(ctx context.Context, route Route, seatNumbersToAdd string) (Route, error)
	// ReleaseBookedSeats remove apenas os assentos informados.
	ReleaseBookedSeats(ctx context.Context, routeID string, seatNumbers string) (Route, error)
}

// RouteLocker serializa as escritas de assentos de uma mesma rota.
type RouteLocker interface {
	Lock(ctx context.Context, routeID string) (unlock func(), err error)
}
