package driver

import (
	"context"

	"github.com/amadev/osprofiler/pkg/trace/model"
	"github.com/amadev/osprofiler/pkg/trace/service"
	"go.uber.org/zap"
)

// Driver is a storage backend for profiler notifications.
type Driver interface {
	// Notify stores one notification. It is called concurrently for spans of the same
	// and of different traces.
	Notify(ctx context.Context, notification model.Notification) error
	// GetReport assembles every notification stored under baseID. A non-nil report may
	// come back together with a *service.MalformedTraceError naming excluded spans.
	GetReport(ctx context.Context, baseID string) (*model.Node, error)
	// ListTraces returns one record per trace matching query, restricted to fields.
	// "base_id" is always part of a record.
	ListTraces(ctx context.Context, query map[string]string, fields []string) ([]map[string]interface{}, error)
	// Name is the scheme the driver is registered under.
	Name() string
	Close(ctx context.Context) error
}

// Evicter is implemented by drivers that can drop a stored trace on request.
type Evicter interface {
	Evict(ctx context.Context, baseID string) error
}

// Options are the construction arguments passed through Resolve.
type Options struct {
	Project string
	Service string
	Host    string
	Logger  *zap.Logger
}

// Base gives a driver the not-supported defaults of every Driver method and the shared
// report building blocks. Concrete drivers embed it and override what they support.
type Base struct {
	name             string
	connectionString string
	opts             Options
	normalizer       *service.ReportNormalizer
}

func NewBase(name string, connectionString string, opts Options) Base {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return Base{
		name:             name,
		connectionString: connectionString,
		opts:             opts,
		normalizer:       service.NewReportNormalizer(service.NewTreeConstructorService(), opts.Logger),
	}
}

func (b *Base) Name() string {
	return b.name
}

func (b *Base) ConnectionString() string {
	return b.connectionString
}

func (b *Base) Logger() *zap.Logger {
	return b.opts.Logger
}

func (b *Base) Notify(ctx context.Context, notification model.Notification) error {
	return &NotSupportedError{Driver: b.name, Method: "Notify"}
}

func (b *Base) GetReport(ctx context.Context, baseID string) (*model.Node, error) {
	return nil, &NotSupportedError{Driver: b.name, Method: "GetReport"}
}

func (b *Base) ListTraces(
	ctx context.Context,
	query map[string]string,
	fields []string,
) ([]map[string]interface{}, error) {
	return nil, &NotSupportedError{Driver: b.name, Method: "ListTraces"}
}

func (b *Base) Close(ctx context.Context) error {
	return nil
}

// WithDefaults normalizes a legacy event name and fills the provenance tags a
// notification left empty with the driver's.
func (b *Base) WithDefaults(notification model.Notification) model.Notification {
	notification = notification.Normalize()
	if notification.Project == "" {
		notification.Project = b.opts.Project
	}
	if notification.Service == "" {
		notification.Service = b.opts.Service
	}
	if notification.Host == "" {
		notification.Host = b.opts.Host
	}
	return notification
}

// Assemble builds a report from notifications fetched from storage. Notifications that
// cannot be ingested are logged and skipped.
func (b *Base) Assemble(notifications []model.Notification) (*model.Node, error) {
	assembler := service.NewAssemblerImpl()
	for _, notification := range notifications {
		if err := assembler.Ingest(notification); err != nil {
			b.opts.Logger.Warn(
				"Skipping stored notification",
				zap.String("driver", b.name),
				zap.String("trace_id", notification.TraceID),
				zap.Error(err),
			)
		}
	}
	return b.Finalize(assembler)
}

func (b *Base) Finalize(assembler service.Assembler) (*model.Node, error) {
	return b.normalizer.BuildReport(assembler)
}
