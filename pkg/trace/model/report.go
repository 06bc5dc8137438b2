package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TotalNodeName names the synthetic root that spans the whole window.
const TotalNodeName = "total"

// Node is one span of a finalized report. Started and Finished are millisecond offsets
// from the start of the report's window.
type Node struct {
	Info     NodeInfo `json:"info"`
	TraceID  string   `json:"trace_id,omitempty"`
	ParentID string   `json:"parent_id,omitempty"`
	Children []*Node  `json:"children"`
}

type NodeInfo struct {
	Name        string
	Project     string
	Service     string
	Host        string
	Started     int64
	Finished    *int64
	RawPayloads map[string]map[string]interface{}
}

// MarshalJSON flattens raw payloads into "meta.raw_payload.<event>" keys.
func (i NodeInfo) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"name":     i.Name,
		"started":  i.Started,
		"finished": i.Finished,
	}
	if i.Project != "" {
		out["project"] = i.Project
	}
	if i.Service != "" {
		out["service"] = i.Service
	}
	if i.Host != "" {
		out["host"] = i.Host
	}
	for event, payload := range i.RawPayloads {
		out[RawPayloadPrefix+event] = payload
	}
	return json.Marshal(out)
}

func (i *NodeInfo) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*i = NodeInfo{}
	for key, raw := range fields {
		var err error
		switch key {
		case "name":
			err = json.Unmarshal(raw, &i.Name)
		case "project":
			err = json.Unmarshal(raw, &i.Project)
		case "service":
			err = json.Unmarshal(raw, &i.Service)
		case "host":
			err = json.Unmarshal(raw, &i.Host)
		case "started":
			err = json.Unmarshal(raw, &i.Started)
		case "finished":
			err = json.Unmarshal(raw, &i.Finished)
		default:
			event, ok := strings.CutPrefix(key, RawPayloadPrefix)
			if !ok {
				continue
			}
			var payload map[string]interface{}
			err = json.Unmarshal(raw, &payload)
			if i.RawPayloads == nil {
				i.RawPayloads = make(map[string]map[string]interface{})
			}
			i.RawPayloads[event] = payload
		}
		if err != nil {
			return fmt.Errorf("failed to decode info field %s: %w", key, err)
		}
	}
	return nil
}

// Duration is Finished - Started, or zero for an open node.
func (i NodeInfo) Duration() int64 {
	if i.Finished == nil {
		return 0
	}
	return *i.Finished - i.Started
}
