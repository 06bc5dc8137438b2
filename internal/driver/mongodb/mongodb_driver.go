package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/amadev/osprofiler/pkg/driver"
	"github.com/amadev/osprofiler/pkg/trace/model"
	"github.com/amadev/osprofiler/pkg/trace/service"
	"go.uber.org/zap"
)

const Name = "mongodb"

const connectTimeOut = 10 * time.Second

// Driver stores one document per notification in a MongoDB collection.
type Driver struct {
	driver.Base
	store notificationStore
}

func New(connectionString string, opts driver.Options) (driver.Driver, error) {
	config, err := ParseConfig(connectionString)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeOut)
	defer cancel()
	store, err := newMongoStore(ctx, config)
	if err != nil {
		return nil, err
	}
	d := newDriver(connectionString, store, opts)
	d.Logger().Info(
		"Connected to MongoDB",
		zap.String("database", config.Database),
		zap.String("collection", config.Collection),
	)
	return d, nil
}

func newDriver(connectionString string, store notificationStore, opts driver.Options) *Driver {
	return &Driver{
		Base:  driver.NewBase(Name, connectionString, opts),
		store: store,
	}
}

func (d *Driver) Notify(ctx context.Context, notification model.Notification) error {
	notification = d.WithDefaults(notification)
	if notification.BaseID == "" {
		return driver.ErrMissingBaseID
	}
	if notification.TraceID == "" {
		return service.ErrMissingTraceID
	}
	if _, err := service.ParseTimestamp(notification.Timestamp); err != nil {
		return err
	}
	return d.store.Upsert(ctx, driver.NotificationID(notification), notification)
}

func (d *Driver) GetReport(ctx context.Context, baseID string) (*model.Node, error) {
	notifications, err := d.store.Find(ctx, map[string]string{driver.BaseIDField: baseID})
	if err != nil {
		return nil, fmt.Errorf("failed to get report for %s: %w", baseID, err)
	}
	return d.Assemble(notifications)
}

func (d *Driver) ListTraces(
	ctx context.Context,
	query map[string]string,
	fields []string,
) ([]map[string]interface{}, error) {
	if err := driver.ValidateQuery(query); err != nil {
		return nil, err
	}
	notifications, err := d.store.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list traces: %w", err)
	}
	return driver.TraceRecords(notifications, fields), nil
}

func (d *Driver) Evict(ctx context.Context, baseID string) error {
	deleted, err := d.store.Delete(ctx, map[string]string{driver.BaseIDField: baseID})
	if err != nil {
		return fmt.Errorf("failed to evict %s: %w", baseID, err)
	}
	d.Logger().Debug("Evicted trace", zap.String("base_id", baseID), zap.Int64("deleted", deleted))
	return nil
}

func (d *Driver) Close(ctx context.Context) error {
	if err := d.store.Close(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}
