package domain

import "context"

type Passenger struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PassengerLookup resolve o dono de um ticket para as telas administrativas.
type PassengerLookup func(ctx context.Context, userID string) (Passenger, error)
