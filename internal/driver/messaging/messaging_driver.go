package messaging

import (
	"context"
	"fmt"
	"net/url"

	"github.com/amadev/osprofiler/pkg/driver"
	"github.com/amadev/osprofiler/pkg/event_bus"
	"github.com/amadev/osprofiler/pkg/trace/model"
	"github.com/amadev/osprofiler/pkg/trace/service"
	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"
)

const Name = "messaging"

const DefaultTopic = "profiler.notifications"

// Driver publishes notifications on an event bus. It cannot read them back; a Collector
// subscribed to the same topic hands them to a storage driver.
type Driver struct {
	driver.Base
	topic string
	bus   event_bus.ProfilerEventBus[model.Notification, model.Notification]
}

// NewConstructor returns a constructor publishing on bus.
func NewConstructor(bus EventBus.Bus) driver.Constructor {
	return func(connectionString string, opts driver.Options) (driver.Driver, error) {
		topic, err := ParseTopic(connectionString)
		if err != nil {
			return nil, err
		}
		base := driver.NewBase(Name, connectionString, opts)
		return &Driver{
			Base:  base,
			topic: topic,
			bus:   event_bus.NewProfilerEventBus[model.Notification, model.Notification](bus, base.Logger()),
		}, nil
	}
}

// ParseTopic reads the topic from messaging://<topic>.
func ParseTopic(connectionString string) (string, error) {
	u, err := url.Parse(driver.NormalizeConnectionString(connectionString))
	if err != nil {
		return "", fmt.Errorf("failed to parse messaging connection string: %w", err)
	}
	if u.Host == "" {
		return DefaultTopic, nil
	}
	return u.Host, nil
}

func (d *Driver) Topic() string {
	return d.topic
}

func (d *Driver) Notify(ctx context.Context, notification model.Notification) error {
	notification = d.WithDefaults(notification)
	if notification.BaseID == "" {
		return driver.ErrMissingBaseID
	}
	if _, err := service.ParseTimestamp(notification.Timestamp); err != nil {
		return err
	}
	if err := d.bus.Publish(d.topic, notification); err != nil {
		return fmt.Errorf("failed to publish notification for trace %s: %w", notification.BaseID, err)
	}
	return nil
}

func (d *Driver) Close(ctx context.Context) error {
	d.Logger().Debug("Waiting for in-flight notifications", zap.String("topic", d.topic))
	d.bus.WaitAsync()
	return nil
}
