package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mateusmacedo/go-busbooking/internal/identity/domain"
	pkgApp "github.com/mateusmacedo/go-busbooking/pkg/application"
)

// Service cadastra usuários, valida credenciais com bcrypt e emite sessões.
type Service struct {
	users  domain.UserRepository
	tokens domain.TokenIssuer
	cost   int
	logger pkgApp.AppLogger
}

func NewService(users domain.UserRepository, tokens domain.TokenIssuer, logger pkgApp.AppLogger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
		logger: logger,
	}
}

func (s *Service) Register(ctx context.Context, data RegisterUserData) (domain.User, error) {
	return s.create(ctx, data, domain.Customer)
}

// EnsureAdmin cria a conta de administrador configurada se ela ainda não existir.
func (s *Service) EnsureAdmin(ctx context.Context, data RegisterUserData) error {
	_, err := s.users.FindByEmail(ctx, data.Email)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	if _, err := s.create(ctx, data, domain.Admin); err != nil {
		return err
	}
	pkgApp.LogInfo(ctx, s.logger, "admin account created", map[string]interface{}{"email": domain.NormalizeEmail(data.Email)})
	return nil
}

func (s *Service) create(ctx context.Context, data RegisterUserData, userType domain.UserType) (domain.User, error) {
	if strings.TrimSpace(data.Name) == "" || domain.NormalizeEmail(data.Email) == "" || data.Password == "" {
		return domain.User{}, fmt.Errorf("%w: name, email and password are required", domain.ErrInvalidUser)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(data.Password), s.cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %w", domain.ErrInvalidUser, err)
	}

	user, err := s.users.Create(ctx, domain.NewUser{
		Name:         strings.TrimSpace(data.Name),
		Email:        domain.NormalizeEmail(data.Email),
		PasswordHash: string(hash),
		Type:         userType,
		Phone:        data.Phone,
		Address:      data.Address,
	})
	if err != nil {
		pkgApp.LogError(ctx, s.logger, "failed to register user", err, map[string]interface{}{"email": domain.NormalizeEmail(data.Email)})
		return domain.User{}, err
	}
	return user, nil
}

// Login busca o usuário pelo e-mail e compara o hash. E-mail desconhecido e senha errada
// devolvem o mesmo erro.
func (s *Service) Login(ctx context.Context, data LoginData) (domain.Session, error) {
	user, err := s.users.FindByEmail(ctx, data.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Session{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.Session{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(data.Password)); err != nil {
		pkgApp.LogInfo(ctx, s.logger, "login rejected", map[string]interface{}{"user_id": user.ID})
		return domain.Session{}, domain.ErrInvalidCredentials
	}

	return s.tokens.Issue(domain.IdentityOf(user))
}

func (s *Service) Authenticate(token string) (domain.Identity, error) {
	return s.tokens.Parse(token)
}

// Passenger expõe nome e e-mail de um usuário para outros módulos.
func (s *Service) Passenger(ctx context.Context, userID string) (domain.User, error) {
	return s.users.Find(ctx, userID)
}
