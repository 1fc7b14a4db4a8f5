package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	"github.com/mateusmacedo/go-busbooking/internal/infrastructure/recordstore"
	"github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

var routeFieldNames = []string{
	"route_Id", "from", "to", "departure_Time", "estimated_Duration",
	"price", "bookedSeats", "bus_Number", "pickup_Location",
}

type recordRouteRepository struct {
	store       recordstore.Store
	locker      domain.RouteLocker
	pageSize    int
	idGenerator pkgDomain.IDGenerator[string]
	logger      application.AppLogger
}

func NewRecordRouteRepository(store recordstore.Store, locker domain.RouteLocker, pageSize int, idGenerator pkgDomain.IDGenerator[string], logger application.AppLogger) domain.RouteRepository {
	if pageSize <= 0 {
		pageSize = recordstore.DefaultPageSize
	}
	return &recordRouteRepository{
		store:       store,
		locker:      locker,
		pageSize:    pageSize,
		idGenerator: idGenerator,
		logger:      logger,
	}
}

func (r *recordRouteRepository) List(ctx context.Context) ([]domain.Route, error) {
	records, err := recordstore.ListAll(ctx, r.store, routeTable, routeFieldNames, r.pageSize)
	if err != nil {
		application.LogError(ctx, r.logger, "failed to list routes", err, nil)
		return nil, storeError(err)
	}

	routes := make([]domain.Route, 0, len(records))
	for _, rec := range records {
		route, err := decodeRoute(rec)
		if err != nil {
			application.LogError(ctx, r.logger, "malformed route record", err, map[string]interface{}{"id": rec.ID})
			return nil, err
		}
		routes = append(routes, route)
	}
	return routes, nil
}

func (r *recordRouteRepository) Find(ctx context.Context, routeID string) (domain.Route, error) {
	rec, err := r.store.FindRecord(ctx, routeTable, routeID)
	if err != nil {
		return domain.Route{}, storeError(err)
	}
	return decodeRoute(rec)
}

func (r *recordRouteRepository) Create(ctx context.Context, fields domain.RouteFields) (domain.Route, error) {
	if err := fields.Validate(); err != nil {
		return domain.Route{}, err
	}

	record := encodeRouteFields(fields)
	record["route_Id"] = fields.RouteID
	if fields.RouteID == "" {
		record["route_Id"] = r.idGenerator()
	}
	record["bookedSeats"] = ""

	id, err := r.store.CreateRecord(ctx, routeTable, record)
	if err != nil {
		application.LogError(ctx, r.logger, "failed to create route", err, map[string]interface{}{"fields": fields})
		return domain.Route{}, storeError(err)
	}

	application.LogInfo(ctx, r.logger, "route created", map[string]interface{}{"id": id, "route_id": record["route_Id"]})
	return decodeRoute(recordstore.Record{ID: id, Fields: record})
}

func (r *recordRouteRepository) Update(ctx context.Context, routeID string, fields domain.RouteFields) error {
	if err := fields.Validate(); err != nil {
		return err
	}
	if err := r.store.UpdateRecord(ctx, routeTable, routeID, encodeRouteFields(fields)); err != nil {
		application.LogError(ctx, r.logger, "failed to update route", err, map[string]interface{}{"id": routeID})
		return storeError(err)
	}
	return nil
}

// Delete não remove tickets da rota; eles ficam órfãos.
func (r *recordRouteRepository) Delete(ctx context.Context, routeID string) error {
	if _, err := r.store.FindRecord(ctx, routeTable, routeID); err != nil {
		return storeError(err)
	}
	if err := r.store.DeleteRecords(ctx, routeTable, []string{routeID}); err != nil {
		application.LogError(ctx, r.logger, "failed to delete route", err, map[string]interface{}{"id": routeID})
		return storeError(err)
	}
	application.LogInfo(ctx, r.logger, "route deleted", map[string]interface{}{"id": routeID})
	return nil
}

func (r *recordRouteRepository) ApplyBookedSeats(ctx context.Context, route domain.Route, seatNumbersToAdd string) (domain.Route, error) {
	add, err := domain.ParseSeats(seatNumbersToAdd)
	if err != nil {
		return domain.Route{}, err
	}
	if len(add) == 0 {
		return route, nil
	}
	return r.rewriteSeats(ctx, route.ID, func(current []int) []int {
		return domain.UnionSeats(current, add)
	})
}

func (r *recordRouteRepository) ReleaseBookedSeats(ctx context.Context, routeID string, seatNumbers string) (domain.Route, error) {
	remove, err := domain.ParseSeats(seatNumbers)
	if err != nil {
		return domain.Route{}, err
	}
	return r.rewriteSeats(ctx, routeID, func(current []int) []int {
		return domain.RemoveSeats(current, remove)
	})
}

// rewriteSeats relê a rota com o lock da rota e grava o resultado de change.
func (r *recordRouteRepository) rewriteSeats(ctx context.Context, routeID string, change func([]int) []int) (domain.Route, error) {
	unlock, err := r.locker.Lock(ctx, routeID)
	if err != nil {
		return domain.Route{}, fmt.Errorf("%w: lock route %s: %w", domain.ErrStore, routeID, err)
	}
	defer unlock()

	latest, err := r.Find(ctx, routeID)
	if err != nil {
		return domain.Route{}, err
	}
	current, err := latest.Occupied()
	if err != nil {
		return domain.Route{}, err
	}

	next := domain.FormatSeats(change(current))
	if next == latest.BookedSeats {
		return latest, nil
	}

	if err := r.store.UpdateRecord(ctx, routeTable, routeID, recordstore.Fields{"bookedSeats": next}); err != nil {
		application.LogError(ctx, r.logger, "failed to write booked seats", err, map[string]interface{}{"id": routeID, "bookedSeats": next})
		return domain.Route{}, storeError(err)
	}

	application.LogDebug(ctx, r.logger, "booked seats written", map[string]interface{}{"id": routeID, "bookedSeats": next})
	latest.BookedSeats = next
	return latest, nil
}

func encodeRouteFields(f domain.RouteFields) recordstore.Fields {
	return recordstore.Fields{
		"from":               f.Origin,
		"to":                 f.Destination,
		"departure_Time":     f.DepartureTime.Format(time.RFC3339),
		"estimated_Duration": f.EstimatedDuration,
		"price":              f.Price,
		"bus_Number":         f.BusNumber,
		"pickup_Location":    f.PickupLocation,
	}
}

func decodeRoute(rec recordstore.Record) (domain.Route, error) {
	var (
		route = domain.Route{ID: rec.ID}
		err   error
	)

	read := func(key string, dst *string, optional bool) {
		if err != nil {
			return
		}
		if optional {
			*dst, err = rec.Fields.OptionalString(key)
		} else {
			*dst, err = rec.Fields.String(key)
		}
	}

	var departure string
	read("route_Id", &route.RouteID, true)
	read("from", &route.Origin, false)
	read("to", &route.Destination, false)
	read("departure_Time", &departure, false)
	read("estimated_Duration", &route.EstimatedDuration, false)
	read("price", &route.Price, false)
	read("bookedSeats", &route.BookedSeats, true)
	read("bus_Number", &route.BusNumber, true)
	read("pickup_Location", &route.PickupLocation, true)
	if err != nil {
		return domain.Route{}, fmt.Errorf("%w: route %s: %w", domain.ErrStore, rec.ID, err)
	}

	route.DepartureTime, err = time.Parse(time.RFC3339, departure)
	if err != nil {
		return domain.Route{}, fmt.Errorf("%w: route %s departure: %w", domain.ErrStore, rec.ID, err)
	}
	if _, err := route.Occupied(); err != nil {
		return domain.Route{}, fmt.Errorf("route %s: %w", rec.ID, err)
	}
	return route, nil
}
