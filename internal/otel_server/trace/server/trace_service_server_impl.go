package server

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/amadev/osprofiler/internal/metrics"
	"github.com/amadev/osprofiler/pkg/driver"
	"github.com/amadev/osprofiler/pkg/trace/model"
	"github.com/amadev/osprofiler/pkg/trace/service"
	protoTrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonv1 "go.opentelemetry.io/proto/otlp/common/v1"
	"go.opentelemetry.io/proto/otlp/trace/v1"
	"go.uber.org/zap"
)

// TraceServiceServerImpl turns exported OTLP spans into start and stop notifications.
// The OTLP trace id becomes the base id and the span id the trace id.
type TraceServiceServerImpl struct {
	protoTrace.UnimplementedTraceServiceServer
	driver  driver.Driver
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewTraceServiceServerImpl(
	logger *zap.Logger,
	d driver.Driver,
	m *metrics.Metrics,
) TraceServiceServerImpl {
	logger.Info("Creating new TraceServiceServerImpl", zap.String("driver", d.Name()))
	return TraceServiceServerImpl{
		logger:  logger,
		driver:  d,
		metrics: m,
	}
}

func (tss TraceServiceServerImpl) Export(
	ctx context.Context,
	req *protoTrace.ExportTraceServiceRequest,
) (*protoTrace.ExportTraceServiceResponse, error) {
	var rejected int64
	var lastErr error
	for _, resourceSpan := range req.ResourceSpans {
		resource := getResource(resourceSpan)
		if resource.service == "" {
			tss.logger.Warn("Service name not found in resource span")
		}

		for _, scopeSpan := range resourceSpan.ScopeSpans {
			for _, span := range scopeSpan.Spans {
				if err := tss.notifySpan(ctx, span, resource); err != nil {
					rejected++
					lastErr = err
				}
			}
		}
	}

	response := &protoTrace.ExportTraceServiceResponse{}
	if rejected > 0 {
		tss.logger.Warn("Rejected spans during export", zap.Int64("rejected", rejected), zap.Error(lastErr))
		response.PartialSuccess = &protoTrace.ExportTracePartialSuccess{
			RejectedSpans: rejected,
			ErrorMessage:  lastErr.Error(),
		}
	}
	return response, nil
}

func (tss TraceServiceServerImpl) notifySpan(ctx context.Context, span *v1.Span, resource resourceInfo) error {
	for _, notification := range toNotifications(span, resource) {
		err := tss.driver.Notify(ctx, notification)
		if tss.metrics != nil {
			tss.metrics.RecordNotification(metrics.SourceOTLP, err)
		}
		if err != nil {
			return fmt.Errorf("failed to notify span %s: %w", notification.TraceID, err)
		}
	}
	return nil
}

type resourceInfo struct {
	service string
	project string
	host    string
}

func getResource(resourceSpan *v1.ResourceSpans) resourceInfo {
	var info resourceInfo
	if resourceSpan.Resource == nil {
		return info
	}
	for _, attr := range resourceSpan.Resource.Attributes {
		switch attr.Key {
		case "service.name":
			info.service = attr.Value.GetStringValue()
		case "service.namespace":
			info.project = attr.Value.GetStringValue()
		case "host.name":
			info.host = attr.Value.GetStringValue()
		}
	}
	return info
}

// toNotifications yields the start notification of span and, once the span has ended,
// its stop notification.
func toNotifications(span *v1.Span, resource resourceInfo) []model.Notification {
	start := model.Notification{
		BaseID:    hex.EncodeToString(span.TraceId),
		TraceID:   hex.EncodeToString(span.SpanId),
		ParentID:  hex.EncodeToString(span.ParentSpanId),
		Name:      span.Name,
		Phase:     model.PhaseStart,
		Project:   resource.project,
		Service:   resource.service,
		Host:      resource.host,
		Timestamp: service.FormatTimestamp(time.Unix(0, int64(span.StartTimeUnixNano))),
		RawPayload: map[string]interface{}{
			"kind":       span.Kind.String(),
			"attributes": getAttributes(span.Attributes),
		},
	}
	if span.EndTimeUnixNano == 0 {
		return []model.Notification{start}
	}

	stop := start
	stop.Phase = model.PhaseStop
	stop.Timestamp = service.FormatTimestamp(time.Unix(0, int64(span.EndTimeUnixNano)))
	stop.RawPayload = map[string]interface{}{
		"status": getStatus(span),
		"events": getEvents(span),
	}
	return []model.Notification{start, stop}
}

func getEvents(span *v1.Span) []map[string]interface{} {
	events := make([]map[string]interface{}, len(span.Events))
	for i, event := range span.Events {
		events[i] = map[string]interface{}{
			"name":       event.Name,
			"timestamp":  service.FormatTimestamp(time.Unix(0, int64(event.TimeUnixNano))),
			"attributes": getAttributes(event.Attributes),
		}
	}
	return events
}

func getAttributes(attributes []*commonv1.KeyValue) map[string]interface{} {
	result := make(map[string]interface{}, len(attributes))
	for _, attribute := range attributes {
		result[attribute.Key] = getValue(attribute.Value)
	}
	return result
}

func getValue(value *commonv1.AnyValue) interface{} {
	if value == nil {
		return nil
	}
	switch v := value.Value.(type) {
	case *commonv1.AnyValue_StringValue:
		return v.StringValue
	case *commonv1.AnyValue_BoolValue:
		return v.BoolValue
	case *commonv1.AnyValue_IntValue:
		return v.IntValue
	case *commonv1.AnyValue_DoubleValue:
		return v.DoubleValue
	case *commonv1.AnyValue_BytesValue:
		return hex.EncodeToString(v.BytesValue)
	case *commonv1.AnyValue_ArrayValue:
		values := make([]interface{}, len(v.ArrayValue.GetValues()))
		for i, item := range v.ArrayValue.GetValues() {
			values[i] = getValue(item)
		}
		return values
	case *commonv1.AnyValue_KvlistValue:
		return getAttributes(v.KvlistValue.GetValues())
	default:
		return nil
	}
}

func getStatus(span *v1.Span) map[string]interface{} {
	status := map[string]interface{}{"code": v1.Status_STATUS_CODE_UNSET.String()}
	if span.Status == nil {
		return status
	}
	status["code"] = span.Status.Code.String()
	if span.Status.Message != "" {
		status["message"] = span.Status.Message
	}
	return status
}
