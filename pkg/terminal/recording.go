package terminal

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/disco/terminald/pkg/types"
)

// recordingFinalStatus is the terminal status stamped on a recording's
// metadata.
const recordingFinalStatus = "completed"

// appendRecordingEvent appends an event to an in-progress recording,
// stamping the append time and keeping the metadata counters current.
func appendRecordingEvent(rec *types.Recording, eventType types.RecordingEventType, data types.RecordingEventData) {
	rec.Events = append(rec.Events, types.RecordingEvent{
		Type:      eventType,
		Data:      data,
		Timestamp: types.NewTimestamp(),
	})

	if eventType == types.RecordingEventCommand {
		rec.Metadata.TotalCommands++
		rec.Metadata.TotalDuration += data.Duration
	}
}

// StartRecording begins capturing a session's timeline and returns the new
// recording's id. Unlike the history and environment mutators, a missing
// session here is a hard failure: recording against a nonexistent session
// is a caller programming error, not an expected race. Starting while a
// recording is already in progress is rejected rather than silently
// discarding the in-flight events.
func (m *Manager) StartRecording(ctx context.Context, sessionID types.ID) (types.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.restoreLocked(ctx, sessionID)
	if sess == nil {
		return "", types.NewError(types.ErrCodeNotFound, fmt.Sprintf("session not found: %s", sessionID))
	}

	if sess.Recording != nil {
		return "", types.NewError(types.ErrCodeAlreadyExists,
			fmt.Sprintf("recording already in progress for session %s: %s", sessionID, sess.Recording.ID))
	}

	rec := &types.Recording{
		ID:        types.GenerateID(),
		SessionID: sessionID,
		StartTime: types.NewTimestamp(),
		Events:    []types.RecordingEvent{},
		Metadata: types.RecordingMetadata{
			FinalStatus: recordingFinalStatus,
		},
	}

	sess.Recording = rec
	sess.LastActive = types.NewTimestamp()
	m.persistSession(ctx, sess)

	m.logger.Info("Recording started", "session_id", sessionID, "recording_id", rec.ID)
	return rec.ID, nil
}

// StopRecording finalizes a session's active recording, persists the
// snapshot independently of the session, detaches it from the live session,
// and returns it. Returns nil when the session is missing or has no active
// recording: there is nothing to stop.
func (m *Manager) StopRecording(ctx context.Context, sessionID types.ID) (*types.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.restoreLocked(ctx, sessionID)
	if sess == nil || sess.Recording == nil {
		return nil, nil
	}

	rec := sess.Recording
	now := types.NewTimestamp()
	rec.EndTime = &now
	rec.Metadata.FinalStatus = recordingFinalStatus

	snapshot := rec.Clone()
	m.recordings[snapshot.ID] = snapshot
	m.persistRecording(ctx, snapshot)

	sess.Recording = nil
	sess.LastActive = now
	m.persistSession(ctx, sess)

	m.logger.Info("Recording stopped",
		"session_id", sessionID,
		"recording_id", snapshot.ID,
		"events", len(snapshot.Events),
		"commands", snapshot.Metadata.TotalCommands)

	return snapshot.Clone(), nil
}

// GetRecording retrieves a finalized recording by id, memory tier first,
// then the store. The returned recording is a copy.
func (m *Manager) GetRecording(ctx context.Context, recordingID types.ID) (*types.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.restoreRecordingLocked(ctx, recordingID)
	if rec == nil {
		return nil, types.NewError(types.ErrCodeNotFound, fmt.Sprintf("recording not found: %s", recordingID))
	}
	return rec.Clone(), nil
}

// SessionRecordings returns the finalized recordings of a session, newest
// first, merging the memory tier with the store's reverse index.
func (m *Manager) SessionRecordings(ctx context.Context, sessionID types.ID) []*types.Recording {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*types.Recording
	seen := map[types.ID]bool{}

	for id, rec := range m.recordings {
		if rec.SessionID == sessionID {
			result = append(result, rec.Clone())
			seen[id] = true
		}
	}

	for _, raw := range m.store.SMembers(ctx, sessionRecordingsKey(sessionID)) {
		id := types.NewID(raw)
		if seen[id] {
			continue
		}
		if rec := m.restoreRecordingLocked(ctx, id); rec != nil {
			result = append(result, rec.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.After(result[j].StartTime.Time)
	})

	return result
}

// ReplayRecording produces a finite, non-restartable sequence of the
// recording's events in original order, pacing successive yields by the
// real inter-event gap divided by speed (gaps that round to zero or less
// insert no delay). Command- and output-typed events can be skipped via the
// options. Each call creates an independent replay; the channel closes when
// the replay finishes or ctx is cancelled.
func (m *Manager) ReplayRecording(ctx context.Context, recordingID types.ID, opts types.ReplayOptions) (<-chan types.RecordingEvent, error) {
	rec, err := m.GetRecording(ctx, recordingID)
	if err != nil {
		return nil, err
	}

	speed := opts.Speed
	if speed <= 0 {
		speed = 1
	}

	out := make(chan types.RecordingEvent)

	go func() {
		defer close(out)

		var prev time.Time
		for _, ev := range rec.Events {
			if opts.SkipCommands && ev.Type == types.RecordingEventCommand {
				continue
			}
			if opts.SkipOutput && ev.Type == types.RecordingEventOutput {
				continue
			}

			if !prev.IsZero() {
				delay := time.Duration(float64(ev.Timestamp.Sub(prev)) / speed)
				if delay > 0 {
					select {
					case <-time.After(delay):
					case <-ctx.Done():
						return
					}
				}
			}

			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}

			prev = ev.Timestamp.Time
		}
	}()

	return out, nil
}

// restoreRecordingLocked returns the cached finalized recording or restores
// it from the store, populating the memory tier. Caller must hold m.mu.
func (m *Manager) restoreRecordingLocked(ctx context.Context, id types.ID) *types.Recording {
	if id.IsEmpty() {
		return nil
	}

	if rec, ok := m.recordings[id]; ok {
		return rec
	}

	rec := m.loadRecording(ctx, id)
	if rec == nil {
		return nil
	}

	m.recordings[id] = rec
	return rec
}
