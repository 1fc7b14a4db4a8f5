package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRouteFields() RouteFields {
	return RouteFields{
		Origin:            "Kuala Lumpur",
		Destination:       "Penang",
		DepartureTime:     time.Date(2024, 5, 1, 8, 0, 0, 0, time.FixedZone("MYT", 8*3600)),
		EstimatedDuration: "4.5",
		Price:             "45.50",
	}
}

func TestRouteFieldsValidate(t *testing.T) {
	require.NoError(t, validRouteFields().Validate())

	tests := []struct {
		name   string
		mutate func(*RouteFields)
	}{
		{"missing origin", func(f *RouteFields) { f.Origin = " " }},
		{"missing departure", func(f *RouteFields) { f.DepartureTime = time.Time{} }},
		{"negative price", func(f *RouteFields) { f.Price = "-1" }},
		{"price not a number", func(f *RouteFields) { f.Price = "free" }},
		{"zero duration", func(f *RouteFields) { f.EstimatedDuration = "0" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := validRouteFields()
			tt.mutate(&fields)
			assert.ErrorIs(t, fields.Validate(), ErrInvalidRoute)
		})
	}
}

func TestRouteFareAndOccupancy(t *testing.T) {
	route := Route{ID: "r1", Price: "12.5", BookedSeats: "1,2"}

	fare, err := route.Fare(3)
	require.NoError(t, err)
	assert.InDelta(t, 37.5, fare, 0.0001)

	occupied, err := route.Occupied()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, occupied)

	_, err = Route{ID: "r2", Price: "n/a"}.Fare(1)
	assert.ErrorIs(t, err, ErrStore)
}

func TestRouteFilterMatch(t *testing.T) {
	route := Route{RouteID: "KL-PEN", Origin: "Kuala Lumpur", Destination: "Penang"}
	assert.True(t, RouteFilter{}.Match(route))
	assert.True(t, RouteFilter{Query: "kuala"}.Match(route))
	assert.True(t, RouteFilter{Query: "PEN"}.Match(route))
	assert.False(t, RouteFilter{Query: "johor"}.Match(route))
	assert.True(t, RouteFilter{RouteID: "KL-PEN"}.Match(route))
	assert.False(t, RouteFilter{RouteID: "KL-JB"}.Match(route))
	assert.False(t, RouteFilter{RouteID: "KL-PEN", Query: "johor"}.Match(route))
}
