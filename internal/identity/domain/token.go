package domain

import "time"

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Identity  Identity  `json:"user"`
}

// TokenIssuer assina e valida os tokens de sessão.
type TokenIssuer interface {
	Issue(identity Identity) (Session, error)
	Parse(token string) (Identity, error)
}
