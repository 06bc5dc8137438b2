package service

import (
	"sync"

	"github.com/amadev/osprofiler/pkg/trace/model"
)

// Assembler correlates start/stop notifications into one entry per trace id and tracks
// the window spanning every timestamp it has seen. Implementations are safe for
// concurrent use.
type Assembler interface {
	// Ingest merges one notification. A notification with an unparseable timestamp is
	// rejected without touching any state. A notification without a phase is classified
	// by its legacy event name.
	Ingest(notification model.Notification) error
	// Snapshot returns a point-in-time copy of all entries in discovery order, and the window.
	Snapshot() ([]*model.Entry, model.Window)
	// Remove drops entries. The window is left as is.
	Remove(traceIDs ...string)
	// Reset drops every entry and clears the window.
	Reset()
	Len() int
	Window() model.Window
}

type AssemblerImpl struct {
	mu      sync.Mutex
	entries map[string]*model.Entry
	order   []string
	window  model.Window
}

func NewAssemblerImpl() *AssemblerImpl {
	return &AssemblerImpl{
		entries: make(map[string]*model.Entry),
	}
}

func (a *AssemblerImpl) Ingest(notification model.Notification) error {
	notification = notification.Normalize()
	if notification.TraceID == "" {
		return ErrMissingTraceID
	}
	timestamp, err := ParseTimestamp(notification.Timestamp)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.entries[notification.TraceID]
	if !ok {
		entry = &model.Entry{
			TraceID:  notification.TraceID,
			ParentID: notification.ParentID,
			Info: model.Info{
				Name:        notification.Name,
				Project:     notification.Project,
				Service:     notification.Service,
				Host:        notification.Host,
				RawPayloads: make(map[string]map[string]interface{}),
			},
		}
		a.entries[notification.TraceID] = entry
		a.order = append(a.order, notification.TraceID)
	} else {
		mergeMissingFields(entry, notification)
	}

	payload := notification.RawPayload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	entry.Info.RawPayloads[notification.EventName()] = payload
	if notification.IsStop() {
		entry.Info.Finished = &timestamp
	} else {
		entry.Info.Started = &timestamp
	}
	a.window.Widen(timestamp)
	return nil
}

// mergeMissingFields fills fields the first notification of a trace id left blank.
func mergeMissingFields(entry *model.Entry, notification model.Notification) {
	if entry.ParentID == "" {
		entry.ParentID = notification.ParentID
	}
	if entry.Info.Project == "" {
		entry.Info.Project = notification.Project
	}
	if entry.Info.Service == "" {
		entry.Info.Service = notification.Service
	}
	if entry.Info.Host == "" {
		entry.Info.Host = notification.Host
	}
}

func (a *AssemblerImpl) Snapshot() ([]*model.Entry, model.Window) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entries := make([]*model.Entry, len(a.order))
	for i, traceID := range a.order {
		entries[i] = a.entries[traceID].Clone()
	}
	return entries, a.window
}

func (a *AssemblerImpl) Remove(traceIDs ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	removed := false
	for _, traceID := range traceIDs {
		if _, ok := a.entries[traceID]; ok {
			delete(a.entries, traceID)
			removed = true
		}
	}
	if !removed {
		return
	}
	order := a.order[:0]
	for _, traceID := range a.order {
		if _, ok := a.entries[traceID]; ok {
			order = append(order, traceID)
		}
	}
	a.order = order
}

func (a *AssemblerImpl) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries = make(map[string]*model.Entry)
	a.order = nil
	a.window = model.Window{}
}

func (a *AssemblerImpl) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

func (a *AssemblerImpl) Window() model.Window {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.window
}
