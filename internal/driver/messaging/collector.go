package messaging

import (
	"context"
	"fmt"

	"github.com/amadev/osprofiler/pkg/driver"
	"github.com/amadev/osprofiler/pkg/event_bus"
	"github.com/amadev/osprofiler/pkg/trace/model"
	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"
)

// Collector consumes notifications published on a topic and stores them with a target driver.
type Collector struct {
	topic  string
	target driver.Driver
	bus    event_bus.ProfilerEventBus[model.Notification, model.Notification]
	logger *zap.Logger
}

func NewCollector(bus EventBus.Bus, topic string, target driver.Driver, logger *zap.Logger) *Collector {
	return &Collector{
		topic:  topic,
		target: target,
		bus:    event_bus.NewProfilerEventBus[model.Notification, model.Notification](bus, logger),
		logger: logger,
	}
}

func (c *Collector) Start() error {
	err := c.bus.Subscribe(c.topic, c.handle, true)
	if err != nil {
		return fmt.Errorf("failed to start collector: %w", err)
	}
	c.logger.Info(
		"Collector started",
		zap.String("topic", c.topic),
		zap.String("target", c.target.Name()),
	)
	return nil
}

// Stop unsubscribes and waits for notifications already delivered to be stored.
func (c *Collector) Stop() error {
	if err := c.bus.Unsubscribe(c.topic); err != nil {
		return fmt.Errorf("failed to stop collector: %w", err)
	}
	c.bus.WaitAsync()
	return nil
}

func (c *Collector) handle(notification model.Notification) error {
	if err := c.target.Notify(context.Background(), notification); err != nil {
		return fmt.Errorf("failed to store collected notification for trace %s: %w", notification.BaseID, err)
	}
	return nil
}
