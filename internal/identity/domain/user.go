package domain

import (
	"context"
	"strings"
)

type UserType string

const (
	Customer UserType = "Customer"
	Admin    UserType = "Admin"
)

// User nunca guarda a senha em texto; PasswordHash é bcrypt.
type User struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Type         UserType `json:"type"`
	Phone        string   `json:"phone,omitempty"`
	Address      string   `json:"address,omitempty"`
}

type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	Type         UserType
	Phone        string
	Address      string
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserRepository é append-only: usuários não são alterados depois do cadastro.
type UserRepository interface {
	Create(ctx context.Context, user NewUser) (User, error)
	Find(ctx context.Context, userID string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
}
