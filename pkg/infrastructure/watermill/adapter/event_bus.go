package adapter

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/mateusmacedo/go-busbooking/pkg/application"
	"github.com/mateusmacedo/go-busbooking/pkg/domain"
)

const eventNameMetadata = "event_name"

// WatermillEventBus publica eventos em qualquer transporte do Watermill
// (gochannel, Kafka, Redis Streams). Quando há subscriber, cada evento
// registrado ganha uma assinatura no tópico de mesmo nome.
type WatermillEventBus[E domain.Event[D], D any] struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	handlers   map[string][]application.EventHandler[E, D]
	mu         sync.RWMutex
	logger     application.AppLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWatermillEventBus[E domain.Event[D], D any](publisher message.Publisher, subscriber message.Subscriber, logger application.AppLogger) *WatermillEventBus[E, D] {
	ctx, cancel := context.WithCancel(context.Background())
	return &WatermillEventBus[E, D]{
		publisher:  publisher,
		subscriber: subscriber,
		handlers:   make(map[string][]application.EventHandler[E, D]),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (bus *WatermillEventBus[E, D]) RegisterHandler(eventName string, handler application.EventHandler[E, D]) {
	bus.mu.Lock()
	_, alreadySubscribed := bus.handlers[eventName]
	bus.handlers[eventName] = append(bus.handlers[eventName], handler)
	bus.mu.Unlock()

	if alreadySubscribed || bus.subscriber == nil {
		return
	}

	messages, err := bus.subscriber.Subscribe(bus.ctx, eventName)
	if err != nil {
		application.LogError(bus.ctx, bus.logger, "error subscribing to event", err, map[string]interface{}{
			"event_name": eventName,
		})
		return
	}

	bus.wg.Add(1)
	go func() {
		defer bus.wg.Done()
		for msg := range messages {
			bus.handleMessage(eventName, msg)
		}
	}()
}

func (bus *WatermillEventBus[E, D]) handleMessage(eventName string, msg *message.Message) {
	ctx := bus.ctx

	payload, err := application.UnmarshalPayload[D](msg.Payload)
	if err != nil {
		// Mensagem malformada nunca será processada; reconhecemos para não travar o tópico.
		application.LogError(ctx, bus.logger, "error unmarshalling event payload", err, map[string]interface{}{
			"event_name": eventName,
			"message_id": msg.UUID,
		})
		msg.Ack()
		return
	}

	event := &dynamicEvent[D]{eventName: eventName, payload: payload}
	typedEvent, ok := interface{}(event).(E)
	if !ok {
		application.LogError(ctx, bus.logger, "error casting event", nil, map[string]interface{}{
			"event_name": eventName,
		})
		msg.Ack()
		return
	}

	bus.mu.RLock()
	handlers := append([]application.EventHandler[E, D](nil), bus.handlers[eventName]...)
	bus.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler.Handle(ctx, typedEvent); err != nil {
			application.LogError(ctx, bus.logger, "error handling event", err, map[string]interface{}{
				"event_name": eventName,
				"message_id": msg.UUID,
			})
			msg.Nack()
			return
		}
	}

	application.LogDebug(ctx, bus.logger, "event handled", map[string]interface{}{
		"event_name": eventName,
		"message_id": msg.UUID,
	})
	msg.Ack()
}

func (bus *WatermillEventBus[E, D]) Publish(ctx context.Context, event E) error {
	eventName := event.EventName()

	payload, err := application.MarshalPayload(event.Payload())
	if err != nil {
		application.LogError(ctx, bus.logger, "error marshalling event payload", err, map[string]interface{}{
			"event_name": eventName,
		})
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(eventNameMetadata, eventName)
	if err := bus.publisher.Publish(eventName, msg); err != nil {
		application.LogError(ctx, bus.logger, "error publishing event", err, map[string]interface{}{
			"event_name": eventName,
		})
		return err
	}

	application.LogDebug(ctx, bus.logger, "event published", map[string]interface{}{
		"event_name": eventName,
		"message_id": msg.UUID,
	})
	return nil
}

// Close encerra as assinaturas e espera os consumidores terminarem.
// Publisher e subscriber continuam sendo responsabilidade de quem os criou.
func (bus *WatermillEventBus[E, D]) Close() error {
	bus.cancel()
	bus.wg.Wait()
	return nil
}

type dynamicEvent[D any] struct {
	eventName string
	payload   D
}

func (e *dynamicEvent[D]) EventName() string {
	return e.eventName
}

func (e *dynamicEvent[D]) Payload() D {
	return e.payload
}
