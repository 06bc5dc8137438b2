package elasticsearch

import (
	"context"
	"fmt"
	"time"

	"github.com/amadev/osprofiler/pkg/driver"
	"github.com/amadev/osprofiler/pkg/elasticsearch/bootstrapper"
	"github.com/amadev/osprofiler/pkg/elasticsearch/client"
	"github.com/amadev/osprofiler/pkg/trace/model"
	"github.com/amadev/osprofiler/pkg/trace/service"
	"github.com/amadev/osprofiler/pkg/write_buffer"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const Name = "elasticsearch"

const sweepTimeOut = time.Minute

// Driver stores every notification as a document and assembles reports from search results.
type Driver struct {
	driver.Base
	config    Config
	pc        client.ProfilerClient
	buffer    write_buffer.DatabaseWriteBuffer[notificationDocument]
	retention *cron.Cron
	now       func() time.Time
}

func New(connectionString string, opts driver.Options) (driver.Driver, error) {
	config, err := ParseConfig(connectionString)
	if err != nil {
		return nil, err
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: config.Addresses})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bs := bootstrapper.NewBootstrapper(es, logger).WithRetries(config.BootstrapRetries, time.Second)
	if err := bs.BootstrapElasticsearch(config.Index); err != nil {
		return nil, fmt.Errorf("failed to bootstrap Elasticsearch: %w", err)
	}

	return NewDriver(connectionString, config, client.NewProfilerClientImpl(es, client.Wait), opts)
}

// NewDriver builds a driver on top of an existing client. Retention sweeps start when
// config.Retention is positive.
func NewDriver(
	connectionString string,
	config Config,
	pc client.ProfilerClient,
	opts driver.Options,
) (*Driver, error) {
	base := driver.NewBase(Name, connectionString, opts)
	d := &Driver{
		Base:   base,
		config: config,
		pc:     pc,
		buffer: write_buffer.NewDatabaseWriteBufferImpl[notificationDocument](
			pc,
			config.Index,
			config.BufferSize,
			base.Logger(),
		),
		now: time.Now,
	}
	if config.Retention > 0 {
		d.retention = cron.New(cron.WithLogger(cronLogger{logger: base.Logger()}))
		if _, err := d.retention.AddFunc(config.RetentionSchedule, d.sweep); err != nil {
			return nil, fmt.Errorf("invalid retention schedule %q: %w", config.RetentionSchedule, err)
		}
		d.retention.Start()
	}
	return d, nil
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
	d.buffer.WriteToBuffer([]notificationDocument{toDocument(notification, d.now())})
	return nil
}

func (d *Driver) GetReport(ctx context.Context, baseID string) (*model.Node, error) {
	notifications, err := d.search(ctx, baseIDQuery(baseID))
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
	notifications, err := d.search(ctx, listQuery(query))
	if err != nil {
		return nil, fmt.Errorf("failed to list traces: %w", err)
	}
	return driver.TraceRecords(notifications, fields), nil
}

func (d *Driver) Evict(ctx context.Context, baseID string) error {
	if err := d.buffer.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush before evicting %s: %w", baseID, err)
	}
	queryJSON, err := marshalQuery(baseIDQuery(baseID))
	if err != nil {
		return err
	}
	deleted, err := d.pc.DeleteByQuery(ctx, queryJSON, []string{d.config.Index})
	if err != nil {
		return fmt.Errorf("failed to evict %s: %w", baseID, err)
	}
	d.Logger().Debug("Evicted trace", zap.String("base_id", baseID), zap.Int64("deleted", deleted))
	return nil
}

func (d *Driver) Close(ctx context.Context) error {
	if d.retention != nil {
		stopped := d.retention.Stop()
		select {
		case <-stopped.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := d.buffer.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	d.Logger().Info(
		"Closed Elasticsearch driver",
		zap.Int64("written", d.buffer.Written()),
		zap.Int64("failed", d.buffer.Failed()),
	)
	return nil
}

// search flushes buffered notifications so a report sees everything notified before it.
func (d *Driver) search(ctx context.Context, query map[string]interface{}) ([]model.Notification, error) {
	if err := d.buffer.Flush(ctx); err != nil {
		return nil, fmt.Errorf("failed to flush buffered notifications: %w", err)
	}
	queryJSON, err := marshalQuery(query)
	if err != nil {
		return nil, err
	}
	size := maxResultWindow
	results, err := d.pc.Search(ctx, queryJSON, []string{d.config.Index}, &size)
	if err != nil {
		return nil, err
	}
	if len(results) == maxResultWindow {
		d.Logger().Warn("Search hit the result window, notifications may be missing", zap.Int("size", size))
	}
	return fromSearchResults(results)
}

func (d *Driver) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeOut)
	defer cancel()
	cutoff := d.now().Add(-d.config.Retention)
	queryJSON, err := marshalQuery(olderThanQuery(cutoff))
	if err != nil {
		d.Logger().Error("Failed to build retention query", zap.Error(err))
		return
	}
	deleted, err := d.pc.DeleteByQuery(ctx, queryJSON, []string{d.config.Index})
	if err != nil {
		d.Logger().Error("Failed to delete expired notifications", zap.Error(err))
		return
	}
	d.Logger().Info("Deleted expired notifications", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
}

type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
