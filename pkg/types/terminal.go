package types

import "time"

// SessionStatus represents the lifecycle status of a terminal session
type SessionStatus string

const (
	SessionStatusActive     SessionStatus = "active"
	SessionStatusSuspended  SessionStatus = "suspended"
	SessionStatusTerminated SessionStatus = "terminated"
)

// Session represents a persistent terminal session tied to one sandbox
// container. JSON field names are camelCase to stay byte-compatible with
// the records an existing deployment already holds in the key-value store.
type Session struct {
	ID          ID                `json:"id"`
	ContainerID ID                `json:"containerId"`
	UserID      string            `json:"userId,omitempty"`
	CreatedAt   Timestamp         `json:"createdAt"`
	LastActive  Timestamp         `json:"lastActive"`
	Cwd         string            `json:"cwd"`
	Env         map[string]string `json:"env"`
	History     []HistoryEntry    `json:"history"`
	Status      SessionStatus     `json:"status"`
	ProcessIDs  []string          `json:"processIds"`
	Recording   *Recording        `json:"recording,omitempty"`
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	copied := *s

	if s.Env != nil {
		copied.Env = make(map[string]string, len(s.Env))
		for k, v := range s.Env {
			copied.Env[k] = v
		}
	}

	if s.History != nil {
		copied.History = make([]HistoryEntry, len(s.History))
		copy(copied.History, s.History)
	}

	if s.ProcessIDs != nil {
		copied.ProcessIDs = make([]string, len(s.ProcessIDs))
		copy(copied.ProcessIDs, s.ProcessIDs)
	}

	if s.Recording != nil {
		copied.Recording = s.Recording.Clone()
	}

	return &copied
}

// HistoryEntry represents one executed command in a session's history
type HistoryEntry struct {
	ID        ID        `json:"id"`
	Command   string    `json:"command"`
	Timestamp Timestamp `json:"timestamp"`
	Output    string    `json:"output"`
	ExitCode  int       `json:"exitCode"`
	Duration  int64     `json:"duration"` // milliseconds
	Cwd       string    `json:"cwd"`
}

// Recording is a captured timeline of a session's commands, outputs, and
// environment/cwd changes. A session has at most one in-progress recording.
type Recording struct {
	ID        ID                `json:"id"`
	SessionID ID                `json:"sessionId"`
	StartTime Timestamp         `json:"startTime"`
	EndTime   *Timestamp        `json:"endTime,omitempty"`
	Events    []RecordingEvent  `json:"events"`
	Metadata  RecordingMetadata `json:"metadata"`
}

// Clone returns a deep copy of the recording
func (r *Recording) Clone() *Recording {
	copied := *r

	if r.EndTime != nil {
		end := *r.EndTime
		copied.EndTime = &end
	}

	if r.Events != nil {
		copied.Events = make([]RecordingEvent, len(r.Events))
		for i, ev := range r.Events {
			copied.Events[i] = ev.Clone()
		}
	}

	return &copied
}

// RecordingMetadata is incrementally updated as events are appended
type RecordingMetadata struct {
	TotalCommands int    `json:"totalCommands"`
	TotalDuration int64  `json:"totalDuration"` // milliseconds
	FinalStatus   string `json:"finalStatus"`
}

// RecordingEventType identifies the payload shape of a recording event
type RecordingEventType string

const (
	RecordingEventCommand   RecordingEventType = "command"
	RecordingEventOutput    RecordingEventType = "output"
	RecordingEventCwdChange RecordingEventType = "cwd_change"
	RecordingEventEnvChange RecordingEventType = "env_change"
)

// RecordingEvent is one entry in a recording's timeline. Timestamp is
// assigned when the event is appended, not when the underlying action ran.
type RecordingEvent struct {
	Type      RecordingEventType `json:"type"`
	Data      RecordingEventData `json:"data"`
	Timestamp Timestamp          `json:"timestamp"`
}

// Clone returns a deep copy of the event
func (e RecordingEvent) Clone() RecordingEvent {
	copied := e
	if e.Data.Env != nil {
		copied.Data.Env = make(map[string]string, len(e.Data.Env))
		for k, v := range e.Data.Env {
			copied.Data.Env[k] = v
		}
	}
	return copied
}

// RecordingEventData carries the payload of a recording event. Which fields
// are populated depends on the event type: command events carry Command,
// ExitCode and Duration; output events carry Output; cwd_change events carry
// Cwd; env_change events carry only the changed Env subset.
type RecordingEventData struct {
	Command  string            `json:"command,omitempty"`
	ExitCode *int              `json:"exitCode,omitempty"`
	Duration int64             `json:"duration,omitempty"` // milliseconds
	Output   string            `json:"output,omitempty"`
	Cwd      string            `json:"cwd,omitempty"`
	Env      map[string]string `json:"env,omitempty"`
}

// ResumeStatus distinguishes a freshly created session from a resumed one
type ResumeStatus string

const (
	ResumeStatusCreated ResumeStatus = "created"
	ResumeStatusResumed ResumeStatus = "resumed"
)

// SessionDescriptor is returned by CreateOrResumeSession. History holds the
// tail of the session's history (oldest first) when a session was resumed,
// and is empty for a fresh session.
type SessionDescriptor struct {
	SessionID ID                `json:"sessionId"`
	Status    ResumeStatus      `json:"status"`
	Cwd       string            `json:"cwd"`
	Env       map[string]string `json:"env"`
	History   []HistoryEntry    `json:"history"`
}

// HistorySearchOptions filters a command-history search. All supplied
// filters are combined as an AND-conjunction.
type HistorySearchOptions struct {
	Query    string     `json:"query,omitempty"`
	ExitCode *int       `json:"exitCode,omitempty"`
	DateFrom *time.Time `json:"dateFrom,omitempty"`
	DateTo   *time.Time `json:"dateTo,omitempty"`
	Cwd      string     `json:"cwd,omitempty"`
	Limit    int        `json:"limit,omitempty"`
}

// CommandCount pairs a base command with its occurrence count
type CommandCount struct {
	Command string `json:"command"`
	Count   int    `json:"count"`
}

// ReplayOptions controls recording replay pacing and filtering
type ReplayOptions struct {
	Speed        float64 `json:"speed,omitempty"`        // 2 replays twice as fast; defaults to 1
	SkipCommands bool    `json:"skipCommands,omitempty"` // drop command-typed events
	SkipOutput   bool    `json:"skipOutput,omitempty"`   // drop output-typed events
}
