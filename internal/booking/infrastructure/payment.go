package infrastructure

import (
	"context"
	"strings"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	"github.com/mateusmacedo/go-busbooking/pkg/application"
)

type autoPaymentGate struct {
	logger application.AppLogger
}

// NewAutoPaymentGate confirma todo pagamento. Usado quando não há provedor configurado.
func NewAutoPaymentGate(logger application.AppLogger) domain.PaymentGate {
	return &autoPaymentGate{logger: logger}
}

func (g *autoPaymentGate) Confirm(ctx context.Context, req domain.PaymentRequest) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	application.LogInfo(ctx, g.logger, "payment auto-confirmed", map[string]interface{}{"reference": req.Reference, "amount": req.Amount})
	return true, nil
}

type tokenPaymentGate struct {
	logger application.AppLogger
}

// NewTokenPaymentGate confirma apenas quando o cliente apresenta o token devolvido pelo
// provedor de pagamento. Tokens ausentes ou prefixados com "declined" são recusados.
func NewTokenPaymentGate(logger application.AppLogger) domain.PaymentGate {
	return &tokenPaymentGate{logger: logger}
}

func (g *tokenPaymentGate) Confirm(ctx context.Context, req domain.PaymentRequest) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	token := strings.TrimSpace(req.Token)
	confirmed := token != "" && !strings.HasPrefix(strings.ToLower(token), "declined")

	application.LogInfo(ctx, g.logger, "payment confirmation checked", map[string]interface{}{
		"reference": req.Reference,
		"amount":    req.Amount,
		"confirmed": confirmed,
	})
	return confirmed, nil
}
