package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{fmt.Errorf("%w: route r9", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: seats 1", domain.ErrSeatUnavailable), http.StatusConflict},
		{fmt.Errorf("%w: %w: reference r1", domain.ErrBookingFailed, domain.ErrBookingInProgress), http.StatusConflict},
		{domain.ErrInvalidSeats, http.StatusBadRequest},
		{domain.ErrInvalidRoute, http.StatusBadRequest},
		{fmt.Errorf("%w: %w", domain.ErrBookingFailed, domain.ErrPaymentDeclined), http.StatusPaymentRequired},
		{fmt.Errorf("%w: %w", domain.ErrBookingFailed, domain.ErrStore), http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{domain.ErrBookingFailed, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
