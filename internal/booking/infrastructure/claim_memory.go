package infrastructure

import (
	"context"
	"fmt"
	"sync"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	"github.com/mateusmacedo/go-busbooking/pkg/application"
)

type inMemorySeatClaimRepository struct {
	mu     sync.Mutex
	claims map[string]map[int]string
	// references liga cada reference à rota em que ela tem claims.
	references map[string]string
	logger     application.AppLogger
}

func NewInMemorySeatClaimRepository(logger application.AppLogger) domain.SeatClaimRepository {
	return &inMemorySeatClaimRepository{
		claims:     make(map[string]map[int]string),
		references: make(map[string]string),
		logger:     logger,
	}
}

func (r *inMemorySeatClaimRepository) Claim(ctx context.Context, routeID, reference string, seats []int) error {
	return r.claim(ctx, routeID, reference, seats, false)
}

func (r *inMemorySeatClaimRepository) Reclaim(ctx context.Context, routeID, reference string, seats []int) error {
	return r.claim(ctx, routeID, reference, seats, true)
}

func (r *inMemorySeatClaimRepository) claim(ctx context.Context, routeID, reference string, seats []int, reuse bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.references[reference]; ok && (!reuse || owner != routeID) {
		return fmt.Errorf("%w: %s", domain.ErrReferenceInUse, reference)
	}

	route, ok := r.claims[routeID]
	if !ok {
		route = make(map[int]string)
		r.claims[routeID] = route
	}

	var taken []int
	for _, s := range seats {
		if owner, ok := route[s]; ok && owner != reference {
			taken = append(taken, s)
		}
	}
	if len(taken) > 0 {
		return fmt.Errorf("%w: seats %s on route %s", domain.ErrSeatUnavailable, domain.FormatSeats(taken), routeID)
	}

	for _, s := range seats {
		route[s] = reference
	}
	r.references[reference] = routeID
	application.LogTrace(ctx, r.logger, "seats claimed", map[string]interface{}{"route_id": routeID, "reference": reference, "seats": seats})
	return nil
}

func (r *inMemorySeatClaimRepository) Release(ctx context.Context, routeID, reference string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for seat, owner := range r.claims[routeID] {
		if owner == reference {
			delete(r.claims[routeID], seat)
		}
	}
	if r.references[reference] == routeID {
		delete(r.references, reference)
	}
	return nil
}

func (r *inMemorySeatClaimRepository) Claimed(ctx context.Context, routeID string) (map[int]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[int]string, len(r.claims[routeID]))
	for seat, owner := range r.claims[routeID] {
		out[seat] = owner
	}
	return out, nil
}
