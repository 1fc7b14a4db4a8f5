package domain

import "context"

// SeatClaimRepository guarda a ocupação como claims (routeID, seatNumber) únicas.
// É a fonte de verdade contra venda dupla; BookedSeats na rota é uma projeção.
type SeatClaimRepository interface {
	// Claim é tudo ou nada e reserva a reference: se ela já tem claims, retorna ErrReferenceInUse.
	Claim(ctx context.Context, routeID, reference string, seats []int) error
	// Reclaim reaplica as claims de uma reference existente; assentos dela mesma contam como sucesso.
	Reclaim(ctx context.Context, routeID, reference string, seats []int) error
	Release(ctx context.Context, routeID, reference string) error
	Claimed(ctx context.Context, routeID string) (map[int]string, error)
}
