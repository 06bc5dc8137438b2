package model

import "time"

// Entry accumulates every notification seen for one trace id.
type Entry struct {
	TraceID  string
	ParentID string
	Info     Info
}

type Info struct {
	Name     string
	Project  string
	Service  string
	Host     string
	Started  *time.Time
	Finished *time.Time
	// RawPayloads is keyed by the full event name.
	RawPayloads map[string]map[string]interface{}
}

func (e *Entry) Clone() *Entry {
	clone := *e
	if e.Info.Started != nil {
		started := *e.Info.Started
		clone.Info.Started = &started
	}
	if e.Info.Finished != nil {
		finished := *e.Info.Finished
		clone.Info.Finished = &finished
	}
	clone.Info.RawPayloads = make(map[string]map[string]interface{}, len(e.Info.RawPayloads))
	for event, payload := range e.Info.RawPayloads {
		clone.Info.RawPayloads[event] = payload
	}
	return &clone
}

// Window is the absolute time range covered by every notification an assembler has seen.
// The zero value is unset.
type Window struct {
	StartedAt  time.Time
	FinishedAt time.Time
	set        bool
}

// NewWindow returns a set window spanning startedAt to finishedAt.
func NewWindow(startedAt time.Time, finishedAt time.Time) Window {
	return Window{StartedAt: startedAt, FinishedAt: finishedAt, set: true}
}

func (w Window) IsSet() bool {
	return w.set
}

func (w *Window) Widen(t time.Time) {
	if !w.set {
		*w = NewWindow(t, t)
		return
	}
	if t.Before(w.StartedAt) {
		w.StartedAt = t
	}
	if t.After(w.FinishedAt) {
		w.FinishedAt = t
	}
}

func (w Window) Contains(t time.Time) bool {
	return w.set && !t.Before(w.StartedAt) && !t.After(w.FinishedAt)
}

func (w Window) Duration() time.Duration {
	if !w.set {
		return 0
	}
	return w.FinishedAt.Sub(w.StartedAt)
}
