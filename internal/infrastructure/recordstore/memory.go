package recordstore

import (
	"context"
	"errors"
	"sync"

	"github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

type memoryTable struct {
	order []string
	rows  map[string]Fields
}

// MemoryStore é uma implementação em memória do record store, usada em testes e em
// instâncias únicas de desenvolvimento.
type MemoryStore struct {
	mu          sync.RWMutex
	tables      map[string]*memoryTable
	idGenerator pkgDomain.IDGenerator[string]
	logger      application.AppLogger
}

func NewMemoryStore(idGenerator pkgDomain.IDGenerator[string], logger application.AppLogger) *MemoryStore {
	return &MemoryStore{
		tables:      make(map[string]*memoryTable),
		idGenerator: idGenerator,
		logger:      logger,
	}
}

func (s *MemoryStore) table(name string) *memoryTable {
	t, ok := s.tables[name]
	if !ok {
		t = &memoryTable{rows: make(map[string]Fields)}
		s.tables[name] = t
	}
	return t
}

func (s *MemoryStore) CreateRecord(ctx context.Context, table string, fields Fields) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.idGenerator()
	t := s.table(table)
	t.rows[id] = fields.clone()
	t.order = append(t.order, id)

	application.LogTrace(ctx, s.logger, "record created", map[string]interface{}{"table": table, "id": id})
	return id, nil
}

func (s *MemoryStore) ListRecords(ctx context.Context, table string, fields []string, pageSize int, handle PageHandler) error {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	s.mu.RLock()
	var snapshot []Record
	if t, ok := s.tables[table]; ok {
		snapshot = make([]Record, 0, len(t.order))
		for _, id := range t.order {
			snapshot = append(snapshot, Record{ID: id, Fields: t.rows[id].project(fields)})
		}
	}
	s.mu.RUnlock()

	for start := 0; start < len(snapshot); start += pageSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + pageSize
		if end > len(snapshot) {
			end = len(snapshot)
		}
		if err := handle(snapshot[start:end]); err != nil {
			if errors.Is(err, ErrStopPaging) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (s *MemoryStore) FindRecord(ctx context.Context, table, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[table]
	if !ok {
		return Record{}, ErrNotFound
	}
	fields, ok := t.rows[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return Record{ID: id, Fields: fields.clone()}, nil
}

func (s *MemoryStore) FindRecordsBy(ctx context.Context, table, field, value string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[table]
	if !ok {
		return nil, nil
	}

	var found []Record
	for _, id := range t.order {
		if fields := t.rows[id]; fields.matches(field, value) {
			found = append(found, Record{ID: id, Fields: fields.clone()})
		}
	}
	return found, nil
}

func (s *MemoryStore) UpdateRecord(ctx context.Context, table, id string, fields Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		return ErrNotFound
	}
	current, ok := t.rows[id]
	if !ok {
		return ErrNotFound
	}

	merged := current.clone()
	for k, v := range fields {
		merged[k] = v
	}
	t.rows[id] = merged

	application.LogTrace(ctx, s.logger, "record updated", map[string]interface{}{"table": table, "id": id})
	return nil
}

// DeleteRecords ignora ids inexistentes, como o store remoto.
func (s *MemoryStore) DeleteRecords(ctx context.Context, table string, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		return nil
	}

	remove := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		remove[id] = struct{}{}
		delete(t.rows, id)
	}

	kept := t.order[:0]
	for _, id := range t.order {
		if _, gone := remove[id]; !gone {
			kept = append(kept, id)
		}
	}
	t.order = kept

	application.LogTrace(ctx, s.logger, "records deleted", map[string]interface{}{"table": table, "ids": ids})
	return nil
}
