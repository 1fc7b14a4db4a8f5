package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mateusmacedo/go-busbooking/internal/identity/application"
	"github.com/mateusmacedo/go-busbooking/internal/identity/domain"
	pkgApp "github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

type (
	RegisterUserBus = pkgApp.CommandBus[pkgDomain.Command[application.RegisterUserData], application.RegisterUserData]
	LoginBus        = pkgApp.QueryBus[pkgDomain.Query[application.LoginData], application.LoginData, domain.Session]
)

type IdentityHTTPHandler struct {
	commandBus RegisterUserBus
	queryBus   LoginBus
	tokens     domain.TokenIssuer
	validate   *validator.Validate
	logger     pkgApp.AppLogger
}

func NewIdentityHTTPHandler(commandBus RegisterUserBus, queryBus LoginBus, tokens domain.TokenIssuer, logger pkgApp.AppLogger) *IdentityHTTPHandler {
	return &IdentityHTTPHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		tokens:     tokens,
		validate:   validator.New(),
		logger:     logger,
	}
}

// HandleRegister cadastra e já devolve uma sessão, como o login logo após o cadastro.
func (h *IdentityHTTPHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var data application.RegisterUserData
	if !h.decode(w, r, &data) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.commandBus.Dispatch(ctx, application.NewRegisterUserCommand(data)); err != nil {
		handleError(w, err)
		return
	}

	session, err := h.queryBus.Dispatch(ctx, application.NewLoginQuery(application.LoginData{Email: data.Email, Password: data.Password}))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"message": "User registered", "data": session})
}

func (h *IdentityHTTPHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var data application.LoginData
	if !h.decode(w, r, &data) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	session, err := h.queryBus.Dispatch(ctx, application.NewLoginQuery(data))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": session})
}

func (h *IdentityHTTPHandler) RegisterRoutes(router chi.Router) {
	router.Post("/users", h.HandleRegister)
	router.Post("/sessions", h.HandleLogin)
}

// Authenticate lê o Bearer token, quando houver, e coloca a Identity no contexto.
// Token inválido responde 401; ausência de token segue como anônimo.
func (h *IdentityHTTPHandler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			handleError(w, domain.ErrUnauthenticated)
			return
		}
		identity, err := h.tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			pkgApp.LogDebug(r.Context(), h.logger, "rejected session token", map[string]interface{}{"error": err.Error()})
			handleError(w, domain.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r.WithContext(domain.WithIdentity(r.Context(), identity)))
	})
}

func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := domain.FromContext(r.Context()); !ok {
			handleError(w, domain.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := domain.FromContext(r.Context())
		if !ok {
			handleError(w, domain.ErrUnauthenticated)
			return
		}
		if !identity.IsAdmin() {
			handleError(w, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *IdentityHTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "Invalid request"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidUser):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func handleError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]interface{}{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
