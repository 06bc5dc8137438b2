package memory

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/amadev/osprofiler/pkg/cache"
	"github.com/amadev/osprofiler/pkg/driver"
	"github.com/amadev/osprofiler/pkg/trace/model"
	"github.com/amadev/osprofiler/pkg/trace/service"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const Name = "memory"

const (
	defaultTTL       = time.Hour
	defaultMaxTraces = 10000
)

type Config struct {
	// TTL counts from the latest notification of a trace.
	TTL           time.Duration
	MaxTraces     int64
	EvictOnReport bool
}

type trace struct {
	mu            sync.Mutex
	assembler     *service.AssemblerImpl
	notifications []model.Notification
}

// Driver keeps each trace's assembler in process memory, bounded by count and age.
type Driver struct {
	driver.Base
	config   Config
	traces   cache.TraceCache[*trace]
	notified *atomic.Int64
	rejected *atomic.Int64
}

func New(connectionString string, opts driver.Options) (driver.Driver, error) {
	config, err := ParseConfig(connectionString)
	if err != nil {
		return nil, err
	}
	return NewDriver(connectionString, config, opts)
}

func NewDriver(connectionString string, config Config, opts driver.Options) (*Driver, error) {
	base := driver.NewBase(Name, connectionString, opts)
	traces, err := cache.NewTraceCacheImpl[*trace](config.MaxTraces, config.TTL, base.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create memory driver: %w", err)
	}
	return &Driver{
		Base:     base,
		config:   config,
		traces:   traces,
		notified: atomic.NewInt64(0),
		rejected: atomic.NewInt64(0),
	}, nil
}

// ParseConfig reads memory://?ttl=&max_traces=&evict_on_report= options.
func ParseConfig(connectionString string) (Config, error) {
	config := Config{TTL: defaultTTL, MaxTraces: defaultMaxTraces}
	u, err := url.Parse(driver.NormalizeConnectionString(connectionString))
	if err != nil {
		return config, fmt.Errorf("failed to parse memory connection string: %w", err)
	}
	query := u.Query()
	if ttl := query.Get("ttl"); ttl != "" {
		config.TTL, err = time.ParseDuration(ttl)
		if err != nil || config.TTL < 0 {
			return config, fmt.Errorf("invalid ttl %q", ttl)
		}
	}
	if maxTraces := query.Get("max_traces"); maxTraces != "" {
		config.MaxTraces, err = strconv.ParseInt(maxTraces, 10, 64)
		if err != nil || config.MaxTraces <= 0 {
			return config, fmt.Errorf("invalid max_traces %q", maxTraces)
		}
	}
	if evict := query.Get("evict_on_report"); evict != "" {
		config.EvictOnReport, err = strconv.ParseBool(evict)
		if err != nil {
			return config, fmt.Errorf("invalid evict_on_report %q: %w", evict, err)
		}
	}
	return config, nil
}

func (d *Driver) Notify(ctx context.Context, notification model.Notification) error {
	notification = d.WithDefaults(notification)
	if notification.BaseID == "" {
		d.rejected.Inc()
		return driver.ErrMissingBaseID
	}
	if notification.TraceID == "" {
		d.rejected.Inc()
		return service.ErrMissingTraceID
	}
	if _, err := service.ParseTimestamp(notification.Timestamp); err != nil {
		d.rejected.Inc()
		return err
	}

	t, err := d.traces.GetOrCreate(notification.BaseID, func() *trace {
		return &trace{assembler: service.NewAssemblerImpl()}
	})
	if err != nil {
		d.rejected.Inc()
		return fmt.Errorf("failed to store trace %s: %w", notification.BaseID, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.assembler.Ingest(notification); err != nil {
		d.rejected.Inc()
		return err
	}
	t.notifications = append(t.notifications, notification)
	d.notified.Inc()
	if err := d.traces.Touch(notification.BaseID); err != nil {
		d.Logger().Debug("Failed to refresh trace ttl", zap.String("base_id", notification.BaseID), zap.Error(err))
	}
	return nil
}

func (d *Driver) GetReport(ctx context.Context, baseID string) (*model.Node, error) {
	t, err := d.traces.Get(baseID)
	if err != nil {
		return d.Finalize(service.NewAssemblerImpl())
	}
	report, err := d.Finalize(t.assembler)
	if d.config.EvictOnReport {
		d.traces.Delete(baseID)
		d.Logger().Debug("Evicted reported trace", zap.String("base_id", baseID))
	}
	return report, err
}

func (d *Driver) ListTraces(
	ctx context.Context,
	query map[string]string,
	fields []string,
) ([]map[string]interface{}, error) {
	if err := driver.ValidateQuery(query); err != nil {
		return nil, err
	}
	var matched []model.Notification
	for _, baseID := range d.traces.Keys() {
		t, err := d.traces.Get(baseID)
		if err != nil {
			continue
		}
		t.mu.Lock()
		for _, notification := range t.notifications {
			if driver.Matches(notification, query) {
				matched = append(matched, notification)
			}
		}
		t.mu.Unlock()
	}
	return driver.TraceRecords(matched, fields), nil
}

func (d *Driver) Evict(ctx context.Context, baseID string) error {
	d.traces.Delete(baseID)
	return nil
}

func (d *Driver) Close(ctx context.Context) error {
	d.Logger().Info(
		"Closing memory driver",
		zap.Int64("notified", d.notified.Load()),
		zap.Int64("rejected", d.rejected.Load()),
	)
	d.traces.Close()
	return nil
}
