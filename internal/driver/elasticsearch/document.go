package elasticsearch

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/amadev/osprofiler/pkg/driver"
	"github.com/amadev/osprofiler/pkg/trace/model"
)

type notificationDocument struct {
	ID         string                 `json:"_id"`
	BaseID     string                 `json:"base_id"`
	TraceID    string                 `json:"trace_id"`
	ParentID   string                 `json:"parent_id"`
	Name       string                 `json:"name"`
	Phase      model.Phase            `json:"phase"`
	Event      string                 `json:"event,omitempty"`
	Project    string                 `json:"project"`
	Service    string                 `json:"service"`
	Host       string                 `json:"host"`
	Timestamp  string                 `json:"timestamp"`
	RecordedAt int64                  `json:"recorded_at"`
	RawPayload map[string]interface{} `json:"raw_payload,omitempty"`
}

func toDocument(n model.Notification, recordedAt time.Time) notificationDocument {
	return notificationDocument{
		ID:         driver.NotificationID(n),
		BaseID:     n.BaseID,
		TraceID:    n.TraceID,
		ParentID:   n.ParentID,
		Name:       n.Name,
		Phase:      n.Phase,
		Event:      n.Event,
		Project:    n.Project,
		Service:    n.Service,
		Host:       n.Host,
		Timestamp:  n.Timestamp,
		RecordedAt: recordedAt.UnixMilli(),
		RawPayload: n.RawPayload,
	}
}

func fromSearchResults(results []map[string]interface{}) ([]model.Notification, error) {
	notifications := make([]model.Notification, 0, len(results))
	for _, result := range results {
		data, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal search result: %w", err)
		}
		var notification model.Notification
		if err := json.Unmarshal(data, &notification); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification from search result: %w", err)
		}
		notifications = append(notifications, notification)
	}
	return notifications, nil
}
