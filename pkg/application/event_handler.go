package application

import (
	"context"

	"github.com/mateusmacedo/go-busbooking/pkg/domain"
)

type EventHandler[E domain.Event[T], T any] interface {
	Handle(ctx context.Context, event E) error
}

// EventHandlerFunc adapta uma função comum para EventHandler.
type EventHandlerFunc[E domain.Event[T], T any] func(ctx context.Context, event E) error

func (f EventHandlerFunc[E, T]) Handle(ctx context.Context, event E) error {
	return f(ctx, event)
}

type EventBus[E domain.Event[D], D any] interface {
	RegisterHandler(eventName string, handler EventHandler[E, D])
	Publish(ctx context.Context, event E) error
}
