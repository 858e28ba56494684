// Package terminal implements the terminal session manager: persistent,
// reconnectable terminal sessions backed by an in-process cache with
// best-effort write-through to a key-value store, bounded command history,
// session recording/replay, and expiry-based garbage collection.
//
// The in-process cache is the authoritative view for the lifetime of the
// process; the store is consulted only on cache misses and written to
// best-effort, so a store outage never fails an operation.
package terminal

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disco/terminald/internal/config"
	"github.com/disco/terminald/internal/logger"
	"github.com/disco/terminald/pkg/kvstore"
	"github.com/disco/terminald/pkg/types"
)

const (
	// DefaultCwd is the working directory of a session created without one.
	DefaultCwd = "/tmp"

	// ResumeHistoryLimit is how many trailing history entries a resumed
	// session descriptor carries.
	ResumeHistoryLimit = 50

	// DefaultHistoryLimit bounds history queries with no explicit limit.
	DefaultHistoryLimit = 50

	// DefaultSuggestionLimit bounds command suggestion results.
	DefaultSuggestionLimit = 10

	// DefaultFrequentLimit bounds frequent-command results.
	DefaultFrequentLimit = 10
)

// Manager owns the lifecycle of terminal sessions: create/resume, history
// accumulation, recording, termination, expiry sweeps, and shutdown. It is
// safe for concurrent use; operations against one session id are expected
// to come from a single logical caller, but the manager serializes them
// regardless.
type Manager struct {
	mu         sync.RWMutex
	sessions   map[types.ID]*types.Session
	recordings map[types.ID]*types.Recording // finalized recordings, memory tier

	cfg    config.SessionConfig
	logger *logger.Logger
	store  *kvstore.BestEffort

	closed    bool
	stopSweep chan struct{}
	wg        sync.WaitGroup
}

// New creates a session manager on top of the given persistence adapter.
// A nil store falls back to an in-process one, and a nil logger to the
// default. The expiry sweep starts immediately unless the configured sweep
// interval is zero or negative.
func New(cfg config.SessionConfig, store kvstore.Store, log *logger.Logger) (*Manager, error) {
	if log == nil {
		var err error
		log, err = logger.NewDefault()
		if err != nil {
			return nil, types.WrapError(types.ErrCodeInternal, "failed to create default logger", err)
		}
	}

	if store == nil {
		store = kvstore.NewMemoryStore()
	}

	if cfg.MaxHistoryEntries <= 0 {
		cfg.MaxHistoryEntries = config.DefaultMaxHistoryEntries
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = config.DefaultSessionTTL
	}
	if cfg.RecordingTTL <= 0 {
		cfg.RecordingTTL = config.DefaultRecordingTTL
	}
	if cfg.InactivityTimeout <= 0 {
		cfg.InactivityTimeout = config.DefaultInactivityTimeout
	}

	m := &Manager{
		sessions:   make(map[types.ID]*types.Session),
		recordings: make(map[types.ID]*types.Recording),
		cfg:        cfg,
		logger:     log.With("component", "terminal_session_manager"),
		store:      kvstore.NewBestEffort(store, log),
		stopSweep:  make(chan struct{}),
	}

	if cfg.SweepInterval > 0 {
		m.wg.Add(1)
		go m.sweepLoop()
	}

	m.logger.Info("Terminal session manager initialized",
		"max_history_entries", cfg.MaxHistoryEntries,
		"inactivity_timeout", cfg.InactivityTimeout.String(),
		"sweep_interval", cfg.SweepInterval.String(),
		"session_ttl", cfg.SessionTTL.String())

	return m, nil
}

// NewDefault creates a session manager with default configuration and an
// in-process store
func NewDefault(log *logger.Logger) (*Manager, error) {
	return New(config.DefaultSessionConfig(), nil, log)
}

// CreateOrResumeSession resumes the session identified by sessionID when it
// exists and belongs to containerID, refreshing its activity clock and
// returning its current cwd, env, and the last ResumeHistoryLimit history
// entries (oldest first). A missing, expired, or foreign session id falls
// through silently to creating a fresh session: there is no distinct
// "session expired" failure, the caller simply receives a "created" result.
func (m *Manager) CreateOrResumeSession(ctx context.Context, containerID, sessionID types.ID, cwd string, env map[string]string) (*types.SessionDescriptor, error) {
	if containerID.IsEmpty() {
		return nil, types.NewError(types.ErrCodeInvalidArgument, "container id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !sessionID.IsEmpty() {
		sess := m.restoreLocked(ctx, sessionID)
		if sess != nil && sess.ContainerID == containerID {
			sess.Status = types.SessionStatusActive
			sess.LastActive = types.NewTimestamp()
			m.persistSession(ctx, sess)

			m.logger.Info("Session resumed",
				"session_id", sess.ID,
				"container_id", containerID,
				"history_len", len(sess.History))

			return &types.SessionDescriptor{
				SessionID: sess.ID,
				Status:    types.ResumeStatusResumed,
				Cwd:       sess.Cwd,
				Env:       copyEnv(sess.Env),
				History:   historyTail(sess.History, ResumeHistoryLimit),
			}, nil
		}
		// Stale or foreign session id: fall through to creation.
	}

	if cwd == "" {
		cwd = DefaultCwd
	}

	now := types.NewTimestamp()
	sess := &types.Session{
		ID:          types.GenerateID(),
		ContainerID: containerID,
		CreatedAt:   now,
		LastActive:  now,
		Cwd:         cwd,
		Env:         overlayEnv(processEnv(), env),
		History:     []types.HistoryEntry{},
		Status:      types.SessionStatusActive,
		ProcessIDs:  []string{},
	}

	m.sessions[sess.ID] = sess
	m.persistSession(ctx, sess)

	m.logger.Info("Session created",
		"session_id", sess.ID,
		"container_id", containerID,
		"cwd", cwd)

	return &types.SessionDescriptor{
		SessionID: sess.ID,
		Status:    types.ResumeStatusCreated,
		Cwd:       sess.Cwd,
		Env:       copyEnv(sess.Env),
		History:   []types.HistoryEntry{},
	}, nil
}

// GetSession retrieves a session by id, consulting the in-process cache
// first and falling back to the store. The returned session is a copy.
func (m *Manager) GetSession(ctx context.Context, sessionID types.ID) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.restoreLocked(ctx, sessionID)
	if sess == nil {
		return nil, types.NewError(types.ErrCodeNotFound, fmt.Sprintf("session not found: %s", sessionID))
	}

	return sess.Clone(), nil
}

// UpdateWorkingDirectory changes a session's working directory. A missing
// session is a benign no-op. When a recording is active a cwd_change event
// is emitted only if the value actually changed.
func (m *Manager) UpdateWorkingDirectory(ctx context.Context, sessionID types.ID, cwd string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.restoreLocked(ctx, sessionID)
	if sess == nil {
		m.logger.Warn("Working directory update for unknown session", "session_id", sessionID)
		return
	}

	changed := sess.Cwd != cwd
	sess.Cwd = cwd
	sess.LastActive = types.NewTimestamp()

	if changed && sess.Recording != nil {
		appendRecordingEvent(sess.Recording, types.RecordingEventCwdChange, types.RecordingEventData{
			Cwd: cwd,
		})
	}

	m.persistSession(ctx, sess)
}

// UpdateEnvironment merges patch into a session's environment: new keys
// overwrite, others are untouched. A missing session is a benign no-op.
// When a recording is active, a single env_change event carrying only the
// keys whose values actually changed is emitted, and none at all if the
// patch was a no-op.
func (m *Manager) UpdateEnvironment(ctx context.Context, sessionID types.ID, patch map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.restoreLocked(ctx, sessionID)
	if sess == nil {
		m.logger.Warn("Environment update for unknown session", "session_id", sessionID)
		return
	}

	changed := map[string]string{}
	for k, v := range patch {
		if sess.Env[k] != v {
			changed[k] = v
		}
		sess.Env[k] = v
	}
	sess.LastActive = types.NewTimestamp()

	if len(changed) > 0 && sess.Recording != nil {
		appendRecordingEvent(sess.Recording, types.RecordingEventEnvChange, types.RecordingEventData{
			Env: changed,
		})
	}

	m.persistSession(ctx, sess)
}

// UpdateSessionUser sets the caller-supplied owner of a session. A missing
// session is a benign no-op.
func (m *Manager) UpdateSessionUser(ctx context.Context, sessionID types.ID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.restoreLocked(ctx, sessionID)
	if sess == nil {
		m.logger.Warn("User update for unknown session", "session_id", sessionID)
		return
	}

	sess.UserID = userID
	sess.LastActive = types.NewTimestamp()
	m.persistSession(ctx, sess)
}

// RegisterProcess records a process id against a session. Bookkeeping only;
// the manager does not manage process lifecycles.
func (m *Manager) RegisterProcess(ctx context.Context, sessionID types.ID, processID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.restoreLocked(ctx, sessionID)
	if sess == nil {
		m.logger.Warn("Process registration for unknown session", "session_id", sessionID)
		return
	}

	for _, pid := range sess.ProcessIDs {
		if pid == processID {
			return
		}
	}

	sess.ProcessIDs = append(sess.ProcessIDs, processID)
	sess.LastActive = types.NewTimestamp()
	m.persistSession(ctx, sess)
}

// DeregisterProcess removes a process id from a session's bookkeeping set
func (m *Manager) DeregisterProcess(ctx context.Context, sessionID types.ID, processID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.restoreLocked(ctx, sessionID)
	if sess == nil {
		return
	}

	kept := sess.ProcessIDs[:0]
	for _, pid := range sess.ProcessIDs {
		if pid != processID {
			kept = append(kept, pid)
		}
	}
	sess.ProcessIDs = kept
	sess.LastActive = types.NewTimestamp()
	m.persistSession(ctx, sess)
}

// ContainerSessions returns the active sessions of a container: the
// in-process ones plus any the store still knows about, most recently
// active first. Sessions restored from the store populate the cache.
func (m *Manager) ContainerSessions(ctx context.Context, containerID types.ID) []*types.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*types.Session
	seen := map[types.ID]bool{}

	for id, sess := range m.sessions {
		if sess.ContainerID == containerID && sess.Status == types.SessionStatusActive {
			result = append(result, sess.Clone())
			seen[id] = true
		}
	}

	for _, raw := range m.store.SMembers(ctx, containerSessionsKey(containerID)) {
		id := types.NewID(raw)
		if seen[id] {
			continue
		}
		if _, inMemory := m.sessions[id]; inMemory {
			// In memory but not active; the store's index is stale for it.
			continue
		}

		restored := m.loadSession(ctx, id)
		if restored == nil || restored.Status != types.SessionStatusActive {
			continue
		}

		m.sessions[id] = restored
		result = append(result, restored.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].LastActive.After(result[j].LastActive.Time)
	})

	return result
}

// TerminateSession marks a session terminated, flushes it, and evicts it
// from the in-process cache. The persisted copy survives until its TTL
// lapses. A missing session is a benign no-op.
func (m *Manager) TerminateSession(ctx context.Context, sessionID types.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.restoreLocked(ctx, sessionID)
	if sess == nil {
		return
	}

	sess.Status = types.SessionStatusTerminated
	sess.LastActive = types.NewTimestamp()
	m.persistSession(ctx, sess)
	delete(m.sessions, sessionID)

	m.logger.Info("Session terminated", "session_id", sessionID)
}

// Shutdown stops the expiry sweep and suspends every active in-process
// session, flushing each to the store. Suspended (not terminated) status is
// deliberate: a future process can still resume them by id. Sessions stay
// in the cache so reads within this process keep working. Idempotent.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.stopSweep)
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()

	suspended := 0
	for _, sess := range m.sessions {
		if sess.Status != types.SessionStatusActive {
			continue
		}
		sess.Status = types.SessionStatusSuspended
		m.persistSession(ctx, sess)
		suspended++
	}

	m.logger.Info("Terminal session manager shut down", "suspended_sessions", suspended)
	return nil
}

// Stats returns session counts by status for the in-process cache
func (m *Manager) Stats() (active, suspended int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sess := range m.sessions {
		switch sess.Status {
		case types.SessionStatusActive:
			active++
		case types.SessionStatusSuspended:
			suspended++
		}
	}
	return
}

// String returns a diagnostic representation of the manager
func (m *Manager) String() string {
	active, suspended := m.Stats()
	m.mu.RLock()
	total := len(m.sessions)
	m.mu.RUnlock()
	return fmt.Sprintf("TerminalSessionManager{active: %d, suspended: %d, total: %d}",
		active, suspended, total)
}

// sweepLoop periodically terminates sessions idle past the inactivity
// timeout
func (m *Manager) sweepLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep(context.Background())
		case <-m.stopSweep:
			return
		}
	}
}

// Sweep terminates every in-process session whose last activity predates
// the inactivity timeout. It runs on the sweep timer but is exported so a
// host process (or test) can trigger a pass directly.
func (m *Manager) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-m.cfg.InactivityTimeout)

	m.mu.RLock()
	var expired []types.ID
	for id, sess := range m.sessions {
		if sess.LastActive.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range expired {
		m.logger.Info("Session expired by inactivity sweep", "session_id", id)
		m.TerminateSession(ctx, id)
	}
}

// restoreLocked returns the cached session or restores it from the store,
// populating the cache. Returns nil on a total miss. Caller must hold m.mu.
func (m *Manager) restoreLocked(ctx context.Context, id types.ID) *types.Session {
	if id.IsEmpty() {
		return nil
	}

	if sess, ok := m.sessions[id]; ok {
		return sess
	}

	sess := m.loadSession(ctx, id)
	if sess == nil {
		return nil
	}

	m.sessions[id] = sess
	m.logger.Debug("Session restored from store", "session_id", id, "status", sess.Status)
	return sess
}

// processEnv snapshots the process-wide environment as a map
func processEnv() map[string]string {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return env
}

// overlayEnv merges overrides onto base; overrides win on conflicts
func overlayEnv(base, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// copyEnv returns a copy of an environment map
func copyEnv(env map[string]string) map[string]string {
	copied := make(map[string]string, len(env))
	for k, v := range env {
		copied[k] = v
	}
	return copied
}

// historyTail copies the last n entries of history, oldest first
func historyTail(history []types.HistoryEntry, n int) []types.HistoryEntry {
	if len(history) > n {
		history = history[len(history)-n:]
	}
	tail := make([]types.HistoryEntry, len(history))
	copy(tail, history)
	return tail
}
