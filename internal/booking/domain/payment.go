package domain

import "context"

type PaymentRequest struct {
	Reference string
	UserID    string
	RouteID   string
	Amount    float64
	Token     string
}

// PaymentGate é o sinal externo de confirmação do pagamento. Não é um protocolo de pagamento.
type PaymentGate interface {
	Confirm(ctx context.Context, request PaymentRequest) (bool, error)
}
