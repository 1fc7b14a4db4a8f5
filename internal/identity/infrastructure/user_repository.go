package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mateusmacedo/go-busbooking/internal/identity/domain"
	"github.com/mateusmacedo/go-busbooking/internal/infrastructure/recordstore"
	"github.com/mateusmacedo/go-busbooking/pkg/application"
)

const userTable = "User"

type recordUserRepository struct {
	// serializa a checagem de e-mail duplicado com a criação
	createMu sync.Mutex
	store    recordstore.Store
	logger   application.AppLogger
}

func NewRecordUserRepository(store recordstore.Store, logger application.AppLogger) domain.UserRepository {
	return &recordUserRepository{store: store, logger: logger}
}

func (r *recordUserRepository) Create(ctx context.Context, user domain.NewUser) (domain.User, error) {
	r.createMu.Lock()
	defer r.createMu.Unlock()

	email := domain.NormalizeEmail(user.Email)
	existing, err := r.store.FindRecordsBy(ctx, userTable, "Email", email)
	if err != nil {
		return domain.User{}, storeError(err)
	}
	if len(existing) > 0 {
		return domain.User{}, fmt.Errorf("%w: %s", domain.ErrEmailTaken, email)
	}

	fields := recordstore.Fields{
		"Name":     user.Name,
		"Email":    email,
		"Password": user.PasswordHash,
		"Type":     string(user.Type),
		"Phone":    user.Phone,
		"Address":  user.Address,
	}
	id, err := r.store.CreateRecord(ctx, userTable, fields)
	if err != nil {
		application.LogError(ctx, r.logger, "failed to create user", err, map[string]interface{}{"email": email})
		return domain.User{}, storeError(err)
	}

	application.LogInfo(ctx, r.logger, "user created", map[string]interface{}{"id": id})
	return decodeUser(recordstore.Record{ID: id, Fields: fields})
}

func (r *recordUserRepository) Find(ctx context.Context, userID string) (domain.User, error) {
	rec, err := r.store.FindRecord(ctx, userTable, userID)
	if err != nil {
		return domain.User{}, storeError(err)
	}
	return decodeUser(rec)
}

func (r *recordUserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	records, err := r.store.FindRecordsBy(ctx, userTable, "Email", domain.NormalizeEmail(email))
	if err != nil {
		return domain.User{}, storeError(err)
	}
	if len(records) == 0 {
		return domain.User{}, domain.ErrNotFound
	}
	return decodeUser(records[0])
}

func decodeUser(rec recordstore.Record) (domain.User, error) {
	u := domain.User{ID: rec.ID}
	var (
		userType string
		err      error
	)
	for _, f := range []struct {
		key      string
		dst      *string
		optional bool
	}{
		{"Name", &u.Name, false},
		{"Email", &u.Email, false},
		{"Password", &u.PasswordHash, false},
		{"Type", &userType, true},
		{"Phone", &u.Phone, true},
		{"Address", &u.Address, true},
	} {
		if f.optional {
			*f.dst, err = rec.Fields.OptionalString(f.key)
		} else {
			*f.dst, err = rec.Fields.String(f.key)
		}
		if err != nil {
			return domain.User{}, fmt.Errorf("%w: user %s: %w", domain.ErrStore, rec.ID, err)
		}
	}

	u.Type = domain.UserType(userType)
	if u.Type != domain.Admin {
		u.Type = domain.Customer
	}
	return u, nil
}

func storeError(err error) error {
	if errors.Is(err, recordstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrStore, err)
}
