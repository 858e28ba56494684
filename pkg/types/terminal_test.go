package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestSessionCloneIndependence(t *testing.T) {
	exitCode := 0
	original := &Session{
		ID:          GenerateID(),
		ContainerID: "c1",
		CreatedAt:   NewTimestamp(),
		LastActive:  NewTimestamp(),
		Cwd:         "/tmp",
		Env:         map[string]string{"PATH": "/usr/bin"},
		History: []HistoryEntry{
			{ID: GenerateID(), Command: "ls", Timestamp: NewTimestamp()},
		},
		Status:     SessionStatusActive,
		ProcessIDs: []string{"p1"},
		Recording: &Recording{
			ID:        GenerateID(),
			StartTime: NewTimestamp(),
			Events: []RecordingEvent{
				{
					Type:      RecordingEventCommand,
					Data:      RecordingEventData{Command: "ls", ExitCode: &exitCode},
					Timestamp: NewTimestamp(),
				},
				{
					Type:      RecordingEventEnvChange,
					Data:      RecordingEventData{Env: map[string]string{"A": "1"}},
					Timestamp: NewTimestamp(),
				},
			},
		},
	}

	clone := original.Clone()

	clone.Env["PATH"] = "/sbin"
	clone.History[0].Command = "pwd"
	clone.ProcessIDs[0] = "p2"
	clone.Recording.Events[1].Data.Env["A"] = "changed"

	if original.Env["PATH"] != "/usr/bin" {
		t.Error("clone shares env map with original")
	}
	if original.History[0].Command != "ls" {
		t.Error("clone shares history slice with original")
	}
	if original.ProcessIDs[0] != "p1" {
		t.Error("clone shares process id slice with original")
	}
	if original.Recording.Events[1].Data.Env["A"] != "1" {
		t.Error("clone shares recording event env map with original")
	}
}

func TestRecordingCloneEndTime(t *testing.T) {
	end := NewTimestamp()
	original := &Recording{ID: "r1", EndTime: &end}

	clone := original.Clone()
	*clone.EndTime = NewTimestampFromTime(time.Time{})

	if original.EndTime.IsZero() {
		t.Error("clone shares end time pointer with original")
	}
}

func TestSessionJSONShape(t *testing.T) {
	created := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	sess := Session{
		ID:          "s1",
		ContainerID: "c1",
		CreatedAt:   NewTimestampFromTime(created),
		LastActive:  NewTimestampFromTime(created),
		Cwd:         "/tmp",
		Env:         map[string]string{},
		History:     []HistoryEntry{},
		Status:      SessionStatusActive,
		ProcessIDs:  []string{},
	}

	data, err := json.Marshal(sess)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	got := string(data)

	// Field names are camelCase and timestamps serialize as RFC 3339.
	for _, want := range []string{
		`"containerId":"c1"`,
		`"createdAt":"2025-03-14T09:26:53Z"`,
		`"lastActive"`,
		`"processIds"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("serialized session missing %s: %s", want, got)
		}
	}
	if strings.Contains(got, `"recording"`) {
		t.Errorf("nil recording should be omitted: %s", got)
	}

	var back Session
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !back.CreatedAt.Equal(created) {
		t.Errorf("timestamp round trip = %v, want %v", back.CreatedAt, created)
	}
}

func TestErrorCodes(t *testing.T) {
	err := NewError(ErrCodeNotFound, "session not found")
	if !IsErrCode(err, ErrCodeNotFound) {
		t.Error("IsErrCode should match the error's code")
	}
	if IsErrCode(err, ErrCodeInternal) {
		t.Error("IsErrCode should not match a different code")
	}
	if IsErrCode(nil, ErrCodeNotFound) {
		t.Error("IsErrCode on nil should be false")
	}

	wrapped := WrapError(ErrCodeUnavailable, "store write failed", err)
	if wrapped.Unwrap() != err {
		t.Error("Unwrap should return the cause")
	}
	if !strings.Contains(wrapped.Error(), "UNAVAILABLE") {
		t.Errorf("error string missing code: %s", wrapped.Error())
	}
}
