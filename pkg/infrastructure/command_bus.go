package infrastructure

import (
	"context"
	"fmt"
	"sync"

	"github.com/mateusmacedo/go-busbooking/pkg/application"
	"github.com/mateusmacedo/go-busbooking/pkg/domain"
)

type simpleCommandBus[C domain.Command[D], D any] struct {
	handlers map[string]application.CommandHandler[C, D]
	mu       sync.RWMutex
	logger   application.AppLogger
}

// NewSimpleCommandBus cria um barramento de comandos síncrono e em memória.
func NewSimpleCommandBus[C domain.Command[D], D any](logger application.AppLogger) application.CommandBus[C, D] {
	return &simpleCommandBus[C, D]{
		handlers: make(map[string]application.CommandHandler[C, D]),
		logger:   logger,
	}
}

func (bus *simpleCommandBus[C, D]) RegisterHandler(commandName string, handler application.CommandHandler[C, D]) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.handlers[commandName] = handler
}

func (bus *simpleCommandBus[C, D]) Dispatch(ctx context.Context, command C) error {
	bus.mu.RLock()
	handler, found := bus.handlers[command.CommandName()]
	bus.mu.RUnlock()

	if !found {
		err := fmt.Errorf("%w: %s", ErrNoHandler, command.CommandName())
		application.LogError(ctx, bus.logger, "no handler registered for command", err, nil)
		return err
	}

	if err := handler.Handle(ctx, command); err != nil {
		return err
	}

	application.LogDebug(ctx, bus.logger, "command handled", map[string]interface{}{
		"command_name": command.CommandName(),
	})
	return nil
}
