package application

import (
	"context"

	"github.com/mateusmacedo/go-busbooking/internal/identity/domain"
	pkgApp "github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

type registerUserHandler struct {
	service *Service
	logger  pkgApp.AppLogger
}

func (h *registerUserHandler) Handle(ctx context.Context, command pkgDomain.Command[RegisterUserData]) error {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "Contexto cancelado", ctx.Err(), nil)
		return ctx.Err()
	}

	user, err := h.service.Register(ctx, command.Payload())
	if err != nil {
		return err
	}

	pkgApp.LogInfo(ctx, h.logger, "Usuário cadastrado", map[string]interface{}{"user_id": user.ID})
	return nil
}

func NewRegisterUserHandler(service *Service, logger pkgApp.AppLogger) pkgApp.CommandHandler[pkgDomain.Command[RegisterUserData], RegisterUserData] {
	return &registerUserHandler{
		service: service,
		logger:  logger,
	}
}

type loginHandler struct {
	service *Service
	logger  pkgApp.AppLogger
}

func (h *loginHandler) Handle(ctx context.Context, query pkgDomain.Query[LoginData]) (domain.Session, error) {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "Contexto cancelado", ctx.Err(), nil)
		return domain.Session{}, ctx.Err()
	}

	session, err := h.service.Login(ctx, query.Payload())
	if err != nil {
		pkgApp.LogError(ctx, h.logger, "Erro ao autenticar", err, nil)
		return domain.Session{}, err
	}

	pkgApp.LogInfo(ctx, h.logger, "Sessão emitida", map[string]interface{}{"user_id": session.Identity.UserID})
	return session, nil
}

func NewLoginHandler(service *Service, logger pkgApp.AppLogger) pkgApp.QueryHandler[pkgDomain.Query[LoginData], LoginData, domain.Session] {
	return &loginHandler{
		service: service,
		logger:  logger,
	}
}
