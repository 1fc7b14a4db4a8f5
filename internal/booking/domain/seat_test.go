package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeatLayoutValidate(t *testing.T) {
	layout := DefaultSeatLayout()
	require.Equal(t, 40, layout.Capacity())

	tests := []struct {
		name    string
		seats   []int
		wantErr bool
	}{
		{"single seat", []int{1}, false},
		{"last seat", []int{40}, false},
		{"empty", nil, true},
		{"zero", []int{0}, true},
		{"beyond layout", []int{41}, true},
		{"duplicate", []int{3, 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := layout.Validate(tt.seats)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSeats)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseSeats(t *testing.T) {
	seats, err := ParseSeats(" 1, 2,,7 ")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 7}, seats)

	seats, err = ParseSeats("")
	require.NoError(t, err)
	assert.Empty(t, seats)

	_, err = ParseSeats("1,two")
	assert.ErrorIs(t, err, ErrStore)
}

func TestSeatSetOperations(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3, 4}, UnionSeats([]int{1, 2, 3}, []int{3, 4}))
	assert.Equal(t, []int{1, 2}, UnionSeats([]int{1, 2}, nil))
	assert.Equal(t, []int{1, 4}, RemoveSeats([]int{1, 2, 3, 4}, []int{2, 3, 9}))
	assert.Equal(t, "3,4", FormatSeats([]int{3, 4}))
	assert.Equal(t, "", FormatSeats(nil))

	occupied := SeatSet([]int{5, 1}, []int{9})
	assert.Equal(t, []int{1, 5, 9}, SortedSeats(occupied))
	assert.Equal(t, []int{1, 9}, Conflicts(occupied, []int{9, 2, 1}))
	assert.Empty(t, Conflicts(occupied, []int{2, 3}))
}
