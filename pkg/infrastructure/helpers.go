package infrastructure

import (
	"errors"

	"github.com/google/uuid"
)

var ErrNoHandler = errors.New("no handler registered")

func GenerateUUID() string {
	return uuid.New().String()
}
