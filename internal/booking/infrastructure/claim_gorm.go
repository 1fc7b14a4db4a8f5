package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	"github.com/mateusmacedo/go-busbooking/pkg/application"
)

// seatClaim tem chave primária composta (route_id, seat_number): o banco rejeita a venda dupla.
type seatClaim struct {
	RouteID    string `gorm:"primaryKey"`
	SeatNumber int    `gorm:"primaryKey;autoIncrement:false"`
	Reference  string `gorm:"index;not null"`
	CreatedAt  time.Time
}

func (seatClaim) TableName() string {
	return "seat_claims"
}

// claimReference tem a reference como chave primária: duas reservas com a mesma reference
// não seguram assentos ao mesmo tempo.
type claimReference struct {
	Reference string `gorm:"primaryKey"`
	RouteID   string `gorm:"not null"`
	CreatedAt time.Time
}

func (claimReference) TableName() string {
	return "seat_claim_references"
}

type gormSeatClaimRepository struct {
	db     *gorm.DB
	logger application.AppLogger
}

// NewGormSeatClaimRepository espera um *gorm.DB aberto com TranslateError, para que conflitos
// de chave cheguem como gorm.ErrDuplicatedKey.
func NewGormSeatClaimRepository(db *gorm.DB, logger application.AppLogger) (domain.SeatClaimRepository, error) {
	if err := db.AutoMigrate(&seatClaim{}, &claimReference{}); err != nil {
		return nil, err
	}
	return &gormSeatClaimRepository{db: db, logger: logger}, nil
}

func (r *gormSeatClaimRepository) Claim(ctx context.Context, routeID, reference string, seats []int) error {
	return r.claim(ctx, routeID, reference, seats, func(tx *gorm.DB) error {
		err := tx.Create(&claimReference{Reference: reference, RouteID: routeID}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", domain.ErrReferenceInUse, reference)
		}
		return err
	})
}

func (r *gormSeatClaimRepository) Reclaim(ctx context.Context, routeID, reference string, seats []int) error {
	return r.claim(ctx, routeID, reference, seats, func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&claimReference{Reference: reference, RouteID: routeID}).Error
		if err != nil {
			return err
		}

		var owner claimReference
		if err := tx.Where("reference = ?", reference).Take(&owner).Error; err != nil {
			return err
		}
		if owner.RouteID != routeID {
			return fmt.Errorf("%w: %s", domain.ErrReferenceInUse, reference)
		}
		return nil
	})
}

// claim reserva a reference com reserve e grava os assentos ainda não seus, na mesma transação.
func (r *gormSeatClaimRepository) claim(ctx context.Context, routeID, reference string, seats []int, reserve func(tx *gorm.DB) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := reserve(tx); err != nil {
			return err
		}

		var existing []seatClaim
		if err := tx.Where("route_id = ? AND seat_number IN ?", routeID, seats).Find(&existing).Error; err != nil {
			return err
		}

		mine := make(map[int]struct{}, len(existing))
		var taken []int
		for _, c := range existing {
			if c.Reference != reference {
				taken = append(taken, c.SeatNumber)
				continue
			}
			mine[c.SeatNumber] = struct{}{}
		}
		if len(taken) > 0 {
			return fmt.Errorf("%w: seats %s on route %s", domain.ErrSeatUnavailable, domain.FormatSeats(taken), routeID)
		}

		rows := make([]seatClaim, 0, len(seats))
		for _, s := range seats {
			if _, ok := mine[s]; ok {
				continue
			}
			rows = append(rows, seatClaim{RouteID: routeID, SeatNumber: s, Reference: reference})
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})

	switch {
	case err == nil:
		application.LogTrace(ctx, r.logger, "seats claimed", map[string]interface{}{"route_id": routeID, "reference": reference, "seats": seats})
		return nil
	case errors.Is(err, domain.ErrSeatUnavailable), errors.Is(err, domain.ErrReferenceInUse):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: concurrent claim on route %s", domain.ErrSeatUnavailable, routeID)
	default:
		application.LogError(ctx, r.logger, "failed to claim seats", err, map[string]interface{}{"route_id": routeID, "reference": reference})
		return fmt.Errorf("%w: %w", domain.ErrStore, err)
	}
}

func (r *gormSeatClaimRepository) Release(ctx context.Context, routeID, reference string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("route_id = ? AND reference = ?", routeID, reference).Delete(&seatClaim{}).Error; err != nil {
			return err
		}
		return tx.Where("route_id = ? AND reference = ?", routeID, reference).Delete(&claimReference{}).Error
	})
	if err != nil {
		application.LogError(ctx, r.logger, "failed to release seats", err, map[string]interface{}{"route_id": routeID, "reference": reference})
		return fmt.Errorf("%w: %w", domain.ErrStore, err)
	}
	return nil
}

func (r *gormSeatClaimRepository) Claimed(ctx context.Context, routeID string) (map[int]string, error) {
	var claims []seatClaim
	if err := r.db.WithContext(ctx).Where("route_id = ?", routeID).Find(&claims).Error; err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStore, err)
	}

	out := make(map[int]string, len(claims))
	for _, c := range claims {
		out[c.SeatNumber] = c.Reference
	}
	return out, nil
}
