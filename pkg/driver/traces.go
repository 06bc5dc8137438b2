package driver

import (
	"fmt"
	"sort"

	"github.com/amadev/osprofiler/pkg/trace/model"
)

const BaseIDField = "base_id"

// DefaultTraceFields are returned by ListTraces when the caller names no fields.
var DefaultTraceFields = []string{BaseIDField, "timestamp"}

// TraceFields returns the fields to return for each trace, always including base_id.
func TraceFields(fields []string) []string {
	if len(fields) == 0 {
		return append([]string(nil), DefaultTraceFields...)
	}
	result := []string{BaseIDField}
	seen := map[string]bool{BaseIDField: true}
	for _, field := range fields {
		if !seen[field] {
			seen[field] = true
			result = append(result, field)
		}
	}
	return result
}

// FieldValue reads a named notification field. Unknown names report false.
func FieldValue(notification model.Notification, field string) (string, bool) {
	switch field {
	case BaseIDField:
		return notification.BaseID, true
	case "trace_id":
		return notification.TraceID, true
	case "parent_id":
		return notification.ParentID, true
	case "name":
		return notification.Name, true
	case "phase":
		return string(notification.Phase), true
	case "project":
		return notification.Project, true
	case "service":
		return notification.Service, true
	case "host":
		return notification.Host, true
	case "timestamp":
		return notification.Timestamp, true
	default:
		return "", false
	}
}

// ValidateQuery rejects filters on fields notifications do not have.
func ValidateQuery(query map[string]string) error {
	for field := range query {
		if _, ok := FieldValue(model.Notification{}, field); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
	}
	return nil
}

// Matches reports whether every filter in query equals the notification's field.
func Matches(notification model.Notification, query map[string]string) bool {
	for field, want := range query {
		got, ok := FieldValue(notification, field)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// TraceRecords reduces notifications to one record per base id, taken from the earliest
// notification of each trace. Records are ordered by that notification's timestamp.
func TraceRecords(notifications []model.Notification, fields []string) []map[string]interface{} {
	fields = TraceFields(fields)
	earliest := make(map[string]model.Notification)
	for _, notification := range notifications {
		current, ok := earliest[notification.BaseID]
		if !ok || notification.Timestamp < current.Timestamp {
			earliest[notification.BaseID] = notification
		}
	}

	firsts := make([]model.Notification, 0, len(earliest))
	for _, notification := range earliest {
		firsts = append(firsts, notification)
	}
	sort.Slice(firsts, func(i, j int) bool {
		if firsts[i].Timestamp != firsts[j].Timestamp {
			return firsts[i].Timestamp < firsts[j].Timestamp
		}
		return firsts[i].BaseID < firsts[j].BaseID
	})

	records := make([]map[string]interface{}, 0, len(firsts))
	for _, notification := range firsts {
		records = append(records, TraceRecord(notification, fields))
	}
	return records
}

func TraceRecord(notification model.Notification, fields []string) map[string]interface{} {
	record := make(map[string]interface{}, len(fields))
	for _, field := range fields {
		if value, ok := FieldValue(notification, field); ok {
			record[field] = value
		}
	}
	return record
}
