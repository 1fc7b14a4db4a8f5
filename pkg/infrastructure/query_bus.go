package infrastructure

import (
	"context"
	"fmt"
	"sync"

	"github.com/mateusmacedo/go-busbooking/pkg/application"
	"github.com/mateusmacedo/go-busbooking/pkg/domain"
)

type simpleQueryBus[Q domain.Query[D], D any, R any] struct {
	handlers map[string]application.QueryHandler[Q, D, R]
	mu       sync.RWMutex
	logger   application.AppLogger
}

func NewSimpleQueryBus[Q domain.Query[D], D any, R any](logger application.AppLogger) application.QueryBus[Q, D, R] {
	return &simpleQueryBus[Q, D, R]{
		handlers: make(map[string]application.QueryHandler[Q, D, R]),
		logger:   logger,
	}
}

func (bus *simpleQueryBus[Q, D, R]) RegisterHandler(queryName string, handler application.QueryHandler[Q, D, R]) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.handlers[queryName] = handler
}

// Dispatch executa o handler em uma goroutine para que um contexto cancelado
// libere o chamador mesmo que o handler ainda esteja bloqueado em I/O.
func (bus *simpleQueryBus[Q, D, R]) Dispatch(ctx context.Context, query Q) (R, error) {
	bus.mu.RLock()
	handler, found := bus.handlers[query.QueryName()]
	bus.mu.RUnlock()

	var zero R
	if !found {
		err := fmt.Errorf("%w: %s", ErrNoHandler, query.QueryName())
		application.LogError(ctx, bus.logger, "no handler registered for query", err, nil)
		return zero, err
	}

	type outcome struct {
		result R
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := handler.Handle(ctx, query)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		application.LogError(ctx, bus.logger, "query cancelled", ctx.Err(), map[string]interface{}{
			"query_name": query.QueryName(),
		})
		return zero, ctx.Err()
	case out := <-done:
		return out.result, out.err
	}
}
