package event_bus

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"
)

type ProfilerEventBus[InputType any, OutputType any] interface {
	Subscribe(topic string, handler func(input InputType) error, transactional bool) error
	Unsubscribe(topic string) error
	Publish(topic string, arg OutputType) error
	// WaitAsync blocks until every asynchronous handler has returned.
	WaitAsync()
}

type ProfilerEventBusImpl[InputType any, OutputType any] struct {
	eventBus EventBus.Bus
	logger   *zap.Logger
	mu       sync.Mutex
	handlers map[string]func(arg string)
}

func NewProfilerEventBus[InputType any, OutputType any](
	eventBus EventBus.Bus,
	logger *zap.Logger,
) ProfilerEventBus[InputType, OutputType] {
	return &ProfilerEventBusImpl[InputType, OutputType]{
		eventBus: eventBus,
		logger:   logger,
		handlers: make(map[string]func(arg string)),
	}
}

func (ev *ProfilerEventBusImpl[InputType, OutputType]) Subscribe(
	topic string,
	handler func(input InputType) error,
	transactional bool,
) error {
	wrapped := func(arg string) {
		var input InputType
		err := json.Unmarshal([]byte(arg), &input)
		if err != nil {
			ev.logger.Error("Failed to unmarshal input during subscription of topic",
				zap.String("topic", topic),
				zap.Error(err),
			)
			return
		}
		err = handler(input)
		if err != nil {
			ev.logger.Error("Failed to handle input during subscription of topic",
				zap.String("topic", topic),
				zap.Error(err),
			)
		}
	}

	ev.mu.Lock()
	defer ev.mu.Unlock()
	if _, ok := ev.handlers[topic]; ok {
		return fmt.Errorf("topic %s already has a subscriber", topic)
	}
	err := ev.eventBus.SubscribeAsync(topic, wrapped, transactional)
	if err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}
	ev.handlers[topic] = wrapped
	return nil
}

func (ev *ProfilerEventBusImpl[InputType, OutputType]) Unsubscribe(topic string) error {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	handler, ok := ev.handlers[topic]
	if !ok {
		return nil
	}
	if err := ev.eventBus.Unsubscribe(topic, handler); err != nil {
		return fmt.Errorf("failed to unsubscribe from topic %s: %w", topic, err)
	}
	delete(ev.handlers, topic)
	return nil
}

func (ev *ProfilerEventBusImpl[InputType, OutputType]) Publish(
	topic string,
	arg OutputType,
) error {
	argBytes, err := json.Marshal(arg)
	if err != nil {
		return fmt.Errorf("failed to marshal output during publishing of topic %s: %w", topic, err)
	}
	ev.eventBus.Publish(topic, string(argBytes))
	return nil
}

func (ev *ProfilerEventBusImpl[InputType, OutputType]) WaitAsync() {
	ev.eventBus.WaitAsync()
}
