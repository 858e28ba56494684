package terminal

import (
	"context"
	"encoding/json"

	"github.com/disco/terminald/pkg/types"
)

// Persisted key layout. The prefixes and TTLs match what existing
// deployments already hold in the store, so a restarted or migrated process
// can resume sessions written by an older one.
const (
	sessionKeyPrefix           = "terminal_session:"
	containerSessionsKeyPrefix = "container_sessions:"
	recordingKeyPrefix         = "terminal_recording:"
	sessionRecordingsKeyPrefix = "session_recordings:"
)

func sessionKey(id types.ID) string {
	return sessionKeyPrefix + id.String()
}

func containerSessionsKey(containerID types.ID) string {
	return containerSessionsKeyPrefix + containerID.String()
}

func recordingKey(id types.ID) string {
	return recordingKeyPrefix + id.String()
}

func sessionRecordingsKey(sessionID types.ID) string {
	return sessionRecordingsKeyPrefix + sessionID.String()
}

// persistSession writes the session record and its container reverse index,
// best-effort. The two writes are not atomic; a crash in between leaves the
// reverse index stale until the session record's TTL lapses.
func (m *Manager) persistSession(ctx context.Context, sess *types.Session) {
	data, err := json.Marshal(sess)
	if err != nil {
		m.logger.Warn("Failed to serialize session, skipping persist",
			"session_id", sess.ID, "error", err)
		return
	}

	m.store.Set(ctx, sessionKey(sess.ID), string(data), m.cfg.SessionTTL)
	m.store.SAdd(ctx, containerSessionsKey(sess.ContainerID), sess.ID.String())
}

// loadSession restores a session record from the store. All temporal fields
// (createdAt, lastActive, per-entry timestamps, recording times) come back
// as RFC 3339 strings and are reconstructed by the Timestamp type.
func (m *Manager) loadSession(ctx context.Context, id types.ID) *types.Session {
	raw, ok := m.store.Get(ctx, sessionKey(id))
	if !ok {
		return nil
	}

	var sess types.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		m.logger.Warn("Failed to deserialize persisted session, treating as miss",
			"session_id", id, "error", err)
		return nil
	}

	if sess.Env == nil {
		sess.Env = map[string]string{}
	}
	if sess.History == nil {
		sess.History = []types.HistoryEntry{}
	}
	if sess.ProcessIDs == nil {
		sess.ProcessIDs = []string{}
	}

	return &sess
}

// persistRecording writes a finalized recording and its session reverse
// index, best-effort.
func (m *Manager) persistRecording(ctx context.Context, rec *types.Recording) {
	data, err := json.Marshal(rec)
	if err != nil {
		m.logger.Warn("Failed to serialize recording, skipping persist",
			"recording_id", rec.ID, "error", err)
		return
	}

	m.store.Set(ctx, recordingKey(rec.ID), string(data), m.cfg.RecordingTTL)
	m.store.SAdd(ctx, sessionRecordingsKey(rec.SessionID), rec.ID.String())
}

// loadRecording restores a finalized recording from the store
func (m *Manager) loadRecording(ctx context.Context, id types.ID) *types.Recording {
	raw, ok := m.store.Get(ctx, recordingKey(id))
	if !ok {
		return nil
	}

	var rec types.Recording
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		m.logger.Warn("Failed to deserialize persisted recording, treating as miss",
			"recording_id", id, "error", err)
		return nil
	}

	if rec.Events == nil {
		rec.Events = []types.RecordingEvent{}
	}

	return &rec
}
