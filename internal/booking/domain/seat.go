package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SeatLayout descreve a planta do ônibus. Os assentos são numerados de 1 a Rows*SeatsPerRow.
type SeatLayout struct {
	Rows        int `json:"rows" yaml:"rows"`
	SeatsPerRow int `json:"seatsPerRow" yaml:"seats_per_row"`
}

func DefaultSeatLayout() SeatLayout {
	return SeatLayout{Rows: 10, SeatsPerRow: 4}
}

func (l SeatLayout) Capacity() int {
	return l.Rows * l.SeatsPerRow
}

func (l SeatLayout) Contains(seat int) bool {
	return seat >= 1 && seat <= l.Capacity()
}

// Validate rejeita seleções vazias, repetidas ou fora da planta.
func (l SeatLayout) Validate(seats []int) error {
	if len(seats) == 0 {
		return fmt.Errorf("%w: no seats selected", ErrInvalidSeats)
	}

	seen := make(map[int]struct{}, len(seats))
	for _, s := range seats {
		if !l.Contains(s) {
			return fmt.Errorf("%w: seat %d outside layout of %d seats", ErrInvalidSeats, s, l.Capacity())
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("%w: seat %d selected twice", ErrInvalidSeats, s)
		}
		seen[s] = struct{}{}
	}
	return nil
}

// ParseSeats lê a lista de assentos separada por vírgula usada pelo record store.
// Entradas vazias são ignoradas; qualquer outra coisa que não seja inteiro é ErrStore.
func ParseSeats(csv string) ([]int, error) {
	var seats []int
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed seat number %q", ErrStore, part)
		}
		seats = append(seats, n)
	}
	return seats, nil
}

func FormatSeats(seats []int) string {
	parts := make([]string, len(seats))
	for i, s := range seats {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ",")
}

// UnionSeats mantém a ordem de existing e acrescenta os assentos novos que ainda não estão lá.
func UnionSeats(existing, add []int) []int {
	seen := make(map[int]struct{}, len(existing)+len(add))
	out := make([]int, 0, len(existing)+len(add))
	for _, group := range [][]int{existing, add} {
		for _, s := range group {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func RemoveSeats(existing, remove []int) []int {
	drop := make(map[int]struct{}, len(remove))
	for _, s := range remove {
		drop[s] = struct{}{}
	}
	out := make([]int, 0, len(existing))
	for _, s := range existing {
		if _, ok := drop[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

// Conflicts devolve, em ordem crescente, os assentos pedidos que já estão em occupied.
func Conflicts(occupied map[int]struct{}, requested []int) []int {
	var taken []int
	for _, s := range requested {
		if _, ok := occupied[s]; ok {
			taken = append(taken, s)
		}
	}
	sort.Ints(taken)
	return taken
}

func SeatSet(groups ...[]int) map[int]struct{} {
	set := make(map[int]struct{})
	for _, g := range groups {
		for _, s := range g {
			set[s] = struct{}{}
		}
	}
	return set
}

func SortedSeats(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}
