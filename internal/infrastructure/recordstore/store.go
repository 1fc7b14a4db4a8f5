// Package recordstore é o cliente do record store tabular remoto.
// Registros são mapas de campos pouco tipados agrupados por tabela (tipo de entidade);
// os repositórios os convertem em entidades tipadas na borda.
package recordstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrStopPaging     = errors.New("stop paging")
	ErrMissingField   = errors.New("missing field")
	ErrMalformedField = errors.New("malformed field")
)

// DefaultPageSize é o tamanho de página do store hospedado usado pelo sistema.
const DefaultPageSize = 100

type Fields map[string]interface{}

type Record struct {
	ID     string
	Fields Fields
}

// PageHandler recebe uma página por vez, na ordem do store. Retornar
// ErrStopPaging encerra a varredura sem erro.
type PageHandler func(records []Record) error

type Store interface {
	CreateRecord(ctx context.Context, table string, fields Fields) (string, error)
	ListRecords(ctx context.Context, table string, fields []string, pageSize int, handle PageHandler) error
	FindRecord(ctx context.Context, table, id string) (Record, error)
	FindRecordsBy(ctx context.Context, table, field, value string) ([]Record, error)
	UpdateRecord(ctx context.Context, table, id string, fields Fields) error
	DeleteRecords(ctx context.Context, table string, ids []string) error
}

// ListAll junta todas as páginas de table em um único slice.
func ListAll(ctx context.Context, store Store, table string, fields []string, pageSize int) ([]Record, error) {
	var all []Record
	err := store.ListRecords(ctx, table, fields, pageSize, func(records []Record) error {
		all = append(all, records...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

func (f Fields) String(key string) (string, error) {
	raw, ok := f[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T", ErrMalformedField, key, raw)
	}
	return s, nil
}

// OptionalString devolve "" para campos ausentes, mas rejeita valores que não são string.
func (f Fields) OptionalString(key string) (string, error) {
	if raw, ok := f[key]; !ok || raw == nil {
		return "", nil
	}
	return f.String(key)
}

// Reference lê um campo de vínculo, que o store pode devolver como id escalar
// ou como array de ids vinculados. Só o primeiro vínculo é usado.
func (f Fields) Reference(key string) (string, error) {
	raw, ok := f[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}

	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return "", fmt.Errorf("%w: %s is empty", ErrMalformedField, key)
		}
		return v, nil
	case []string:
		if len(v) == 0 {
			return "", fmt.Errorf("%w: %s has no links", ErrMalformedField, key)
		}
		return v[0], nil
	case []interface{}:
		if len(v) == 0 {
			return "", fmt.Errorf("%w: %s has no links", ErrMalformedField, key)
		}
		s, ok := v[0].(string)
		if !ok {
			return "", fmt.Errorf("%w: %s link is %T", ErrMalformedField, key, v[0])
		}
		return s, nil
	default:
		return "", fmt.Errorf("%w: %s is %T", ErrMalformedField, key, raw)
	}
}

func (f Fields) clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func (f Fields) project(keys []string) Fields {
	if len(keys) == 0 {
		return f.clone()
	}
	out := make(Fields, len(keys))
	for _, k := range keys {
		if v, ok := f[k]; ok {
			out[k] = v
		}
	}
	return out
}

// matches informa se field é igual a value, seguindo arrays de vínculo até o primeiro elemento.
func (f Fields) matches(field, value string) bool {
	if _, ok := f[field]; !ok {
		return false
	}
	if s, err := f.Reference(field); err == nil {
		return s == value
	}
	return false
}
