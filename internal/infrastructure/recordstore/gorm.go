package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

// recordRow guarda todos os tipos de entidade em uma tabela; os campos ficam numa coluna JSONB.
type recordRow struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Entity    string    `gorm:"size:64;not null;index:idx_records_entity_created,priority:1"`
	Fields    string    `gorm:"type:jsonb;not null"`
	CreatedAt time.Time `gorm:"not null;index:idx_records_entity_created,priority:2"`
}

func (recordRow) TableName() string {
	return "records"
}

type gormStore struct {
	db          *gorm.DB
	idGenerator pkgDomain.IDGenerator[string]
	timeout     time.Duration
	logger      application.AppLogger
}

// NewGormStore migra a tabela de registros e devolve o Store sobre ela.
// timeout limita cada operação individual; zero desativa o limite.
func NewGormStore(db *gorm.DB, idGenerator pkgDomain.IDGenerator[string], timeout time.Duration, logger application.AppLogger) (Store, error) {
	if err := db.AutoMigrate(&recordRow{}); err != nil {
		return nil, err
	}

	return &gormStore{
		db:          db,
		idGenerator: idGenerator,
		timeout:     timeout,
		logger:      logger,
	}, nil
}

func (s *gormStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *gormStore) CreateRecord(ctx context.Context, table string, fields Fields) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	encoded, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedField, err)
	}

	row := recordRow{ID: s.idGenerator(), Entity: table, Fields: string(encoded)}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		application.LogError(ctx, s.logger, "failed to create record", err, map[string]interface{}{"table": table})
		return "", err
	}
	return row.ID, nil
}

func (s *gormStore) ListRecords(ctx context.Context, table string, fields []string, pageSize int, handle PageHandler) error {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	for offset := 0; ; offset += pageSize {
		page, err := s.fetchPage(ctx, table, offset, pageSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}

		records, err := decodeRows(page, fields)
		if err != nil {
			return err
		}
		if err := handle(records); err != nil {
			if errors.Is(err, ErrStopPaging) {
				return nil
			}
			return err
		}
		if len(page) < pageSize {
			return nil
		}
	}
}

func (s *gormStore) fetchPage(ctx context.Context, table string, offset, limit int) ([]recordRow, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []recordRow
	err := s.db.WithContext(ctx).
		Where("entity = ?", table).
		Order("created_at, id").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		application.LogError(ctx, s.logger, "failed to list records", err, map[string]interface{}{
			"table":  table,
			"offset": offset,
		})
		return nil, err
	}
	return rows, nil
}

func (s *gormStore) FindRecord(ctx context.Context, table, id string) (Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var row recordRow
	err := s.db.WithContext(ctx).Where("entity = ? AND id = ?", table, id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		application.LogError(ctx, s.logger, "failed to find record", err, map[string]interface{}{"table": table, "id": id})
		return Record{}, err
	}

	records, err := decodeRows([]recordRow{row}, nil)
	if err != nil {
		return Record{}, err
	}
	return records[0], nil
}

// FindRecordsBy compara o campo como escalar ou como primeiro elemento de um array de links.
func (s *gormStore) FindRecordsBy(ctx context.Context, table, field, value string) ([]Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []recordRow
	err := s.db.WithContext(ctx).
		Where("entity = ?", table).
		Where("(fields ->> ?) = ? OR (fields -> ? ->> 0) = ?", field, value, field, value).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		application.LogError(ctx, s.logger, "failed to filter records", err, map[string]interface{}{
			"table": table,
			"field": field,
		})
		return nil, err
	}
	return decodeRows(rows, nil)
}

// UpdateRecord faz o merge no próprio banco (jsonb ||), sem ler-modificar-escrever.
func (s *gormStore) UpdateRecord(ctx context.Context, table, id string, fields Fields) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedField, err)
	}

	result := s.db.WithContext(ctx).
		Model(&recordRow{}).
		Where("entity = ? AND id = ?", table, id).
		Update("fields", gorm.Expr("fields || ?::jsonb", string(patch)))
	if result.Error != nil {
		application.LogError(ctx, s.logger, "failed to update record", result.Error, map[string]interface{}{"table": table, "id": id})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) DeleteRecords(ctx context.Context, table string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Where("entity = ? AND id IN ?", table, ids).Delete(&recordRow{}).Error
	if err != nil {
		application.LogError(ctx, s.logger, "failed to delete records", err, map[string]interface{}{"table": table, "ids": ids})
	}
	return err
}

func decodeRows(rows []recordRow, fields []string) ([]Record, error) {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		var bag Fields
		if err := json.Unmarshal([]byte(row.Fields), &bag); err != nil {
			return nil, fmt.Errorf("%w: record %s: %v", ErrMalformedField, row.ID, err)
		}
		records = append(records, Record{ID: row.ID, Fields: bag.project(fields)})
	}
	return records, nil
}
