package infrastructure

import (
	"errors"
	"fmt"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	"github.com/mateusmacedo/go-busbooking/internal/infrastructure/recordstore"
)

const (
	routeTable  = "Route"
	ticketTable = "Ticket"
)

// storeError traduz falhas do record store para a taxonomia do domínio.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, recordstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrStore, err)
}
