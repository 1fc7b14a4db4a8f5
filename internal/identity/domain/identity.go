package domain

import "context"

// Identity é o usuário da sessão atual, como entregue aos outros módulos.
type Identity struct {
	UserID  string   `json:"userId"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Type    UserType `json:"type"`
	Phone   string   `json:"phone,omitempty"`
	Address string   `json:"address,omitempty"`
}

func (i Identity) IsAdmin() bool {
	return i.Type == Admin
}

func IdentityOf(u User) Identity {
	return Identity{
		UserID:  u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Type:    u.Type,
		Phone:   u.Phone,
		Address: u.Address,
	}
}

type identityKey struct{}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func FromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok && identity.UserID != ""
}
