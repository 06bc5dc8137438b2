package model

import (
	"encoding/json"
	"strings"
)

type Phase string

const (
	PhaseStart Phase = "start"
	PhaseStop  Phase = "stop"
)

// RawPayloadPrefix namespaces raw payloads inside a report node's info.
const RawPayloadPrefix = "meta.raw_payload."

const eventNameSeparator = "-"

// Notification is one observed half (start or stop) of a span.
// BaseID groups every notification of one trace, TraceID identifies the span and
// ParentID the enclosing span.
type Notification struct {
	BaseID     string                 `json:"base_id"`
	TraceID    string                 `json:"trace_id"`
	ParentID   string                 `json:"parent_id"`
	Name       string                 `json:"name"`
	Phase      Phase                  `json:"phase"`
	// Event is the full event name as reported, e.g. "rpc-call-start". Empty when the
	// notification was built from Name and Phase alone.
	Event      string                 `json:"event,omitempty"`
	Project    string                 `json:"project"`
	Service    string                 `json:"service"`
	Host       string                 `json:"host"`
	Timestamp  string                 `json:"timestamp"`
	RawPayload map[string]interface{} `json:"raw_payload,omitempty"`
}

// EventName is the full event name, e.g. "db-stop", used to keep the payloads of
// different events of one span apart.
func (n Notification) EventName() string {
	if n.Event != "" {
		return n.Event
	}
	return n.Name + eventNameSeparator + string(n.Phase)
}

// Normalize derives Name and Phase from a legacy event name when no phase was given.
// The legacy name is kept in Event.
func (n Notification) Normalize() Notification {
	if n.Phase != "" {
		return n
	}
	if n.Event == "" {
		n.Event = n.Name
	}
	n.Name, n.Phase = ParseEventName(n.Event)
	return n
}

func (n Notification) IsStop() bool {
	return n.Phase == PhaseStop
}

// ParseEventName splits a legacy event name such as "wsgi-start" into its canonical
// operation name and lifecycle phase. Anything not ending in "stop" is a start.
func ParseEventName(event string) (string, Phase) {
	phase := PhaseStart
	if strings.HasSuffix(event, string(PhaseStop)) {
		phase = PhaseStop
	}
	name, _, _ := strings.Cut(event, eventNameSeparator)
	return name, phase
}

type notificationAlias Notification

// UnmarshalJSON accepts both the explicit {"name": "db", "phase": "stop"} form and the
// legacy {"name": "db-stop"} form.
func (n *Notification) UnmarshalJSON(data []byte) error {
	var alias notificationAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*n = Notification(alias).Normalize()
	return nil
}
