package identity

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mateusmacedo/go-busbooking/internal/identity/application"
	"github.com/mateusmacedo/go-busbooking/internal/identity/domain"
	"github.com/mateusmacedo/go-busbooking/internal/identity/infrastructure"
	pkgApp "github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
	pkgInfra "github.com/mateusmacedo/go-busbooking/pkg/infrastructure"
)

type IdentitySlice struct {
	service     *application.Service
	httpHandler *infrastructure.IdentityHTTPHandler
}

func NewIdentitySlice(users domain.UserRepository, tokens domain.TokenIssuer, logger pkgApp.AppLogger) *IdentitySlice {
	service := application.NewService(users, tokens, logger)

	commandBus := pkgInfra.NewSimpleCommandBus[pkgDomain.Command[application.RegisterUserData], application.RegisterUserData](logger)
	queryBus := pkgInfra.NewSimpleQueryBus[pkgDomain.Query[application.LoginData], application.LoginData, domain.Session](logger)

	commandBus.RegisterHandler(application.RegisterUserCommand, application.NewRegisterUserHandler(service, logger))
	queryBus.RegisterHandler(application.LoginQuery, application.NewLoginHandler(service, logger))

	return &IdentitySlice{
		service:     service,
		httpHandler: infrastructure.NewIdentityHTTPHandler(commandBus, queryBus, tokens, logger),
	}
}

func (s *IdentitySlice) Service() *application.Service {
	return s.service
}

// Authenticate deve envolver todas as rotas; RequireUser e RequireAdmin dependem dele.
func (s *IdentitySlice) Authenticate(next http.Handler) http.Handler {
	return s.httpHandler.Authenticate(next)
}

func (s *IdentitySlice) RequireUser(next http.Handler) http.Handler {
	return infrastructure.RequireUser(next)
}

func (s *IdentitySlice) RequireAdmin(next http.Handler) http.Handler {
	return infrastructure.RequireAdmin(next)
}

// Passenger resolve nome e e-mail de um usuário, no formato esperado pelo módulo de reservas.
func (s *IdentitySlice) Passenger(ctx context.Context, userID string) (string, string, error) {
	user, err := s.service.Passenger(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return user.Name, user.Email, nil
}

func (s *IdentitySlice) RegisterRoutes(router chi.Router) {
	s.httpHandler.RegisterRoutes(router)
}
