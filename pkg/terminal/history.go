package terminal

import (
	"context"
	"sort"
	"strings"

	"github.com/disco/terminald/pkg/types"
)

// commonCommands seeds command suggestions alongside the session's own
// history.
var commonCommands = []string{
	"ls -la",
	"cd ..",
	"pwd",
	"cat",
	"mkdir -p",
	"rm -rf",
	"cp -r",
	"mv",
	"grep -r",
	"find . -name",
	"git status",
	"git add .",
	"git commit -m",
	"git push",
	"git pull",
	"git log --oneline",
	"git diff",
	"npm install",
	"npm run dev",
	"npm run build",
	"npm test",
	"node",
	"python3",
	"pip install",
	"docker ps",
	"docker run",
	"docker build -t",
	"docker logs",
	"curl -s",
	"make",
}

// AddCommandToHistory appends an executed command to a session's history,
// snapshotting the session's current working directory. A missing session
// is a benign no-op (the session may have expired between the caller's last
// check and this call). While a recording is active the command and its
// output are appended to the recording, in that order, before the history
// is trimmed to the configured bound.
func (m *Manager) AddCommandToHistory(ctx context.Context, sessionID types.ID, command, output string, exitCode int, durationMs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.restoreLocked(ctx, sessionID)
	if sess == nil {
		m.logger.Warn("Command history append for unknown session", "session_id", sessionID)
		return
	}

	now := types.NewTimestamp()
	entry := types.HistoryEntry{
		ID:        types.GenerateID(),
		Command:   command,
		Timestamp: now,
		Output:    output,
		ExitCode:  exitCode,
		Duration:  durationMs,
		Cwd:       sess.Cwd,
	}

	sess.History = append(sess.History, entry)
	sess.LastActive = now

	if sess.Recording != nil {
		code := exitCode
		appendRecordingEvent(sess.Recording, types.RecordingEventCommand, types.RecordingEventData{
			Command:  command,
			ExitCode: &code,
			Duration: durationMs,
		})
		appendRecordingEvent(sess.Recording, types.RecordingEventOutput, types.RecordingEventData{
			Output: output,
		})
	}

	if len(sess.History) > m.cfg.MaxHistoryEntries {
		trimmed := make([]types.HistoryEntry, m.cfg.MaxHistoryEntries)
		copy(trimmed, sess.History[len(sess.History)-m.cfg.MaxHistoryEntries:])
		sess.History = trimmed
	}

	m.persistSession(ctx, sess)
}

// SessionHistory returns up to limit history entries, most recent first.
// A non-empty search term filters case-insensitively on the command text,
// and on the output too unless commandsOnly is set. A missing session
// yields an empty slice.
func (m *Manager) SessionHistory(ctx context.Context, sessionID types.ID, limit int, search string, commandsOnly bool) []types.HistoryEntry {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.restoreLocked(ctx, sessionID)
	if sess == nil {
		return []types.HistoryEntry{}
	}

	filtered := sess.History
	if search != "" {
		term := strings.ToLower(search)
		filtered = nil
		for _, entry := range sess.History {
			if strings.Contains(strings.ToLower(entry.Command), term) ||
				(!commandsOnly && strings.Contains(strings.ToLower(entry.Output), term)) {
				filtered = append(filtered, entry)
			}
		}
	}

	if len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}

	// Most recent first.
	result := make([]types.HistoryEntry, len(filtered))
	for i, entry := range filtered {
		result[len(filtered)-1-i] = entry
	}
	return result
}

// SearchCommandHistory applies every supplied filter as an AND-conjunction:
// case-insensitive query against command or output, exact exit code,
// inclusive timestamp range, and exact working directory. Results come back
// newest first, truncated to the limit (default 50). A missing session
// yields an empty slice.
func (m *Manager) SearchCommandHistory(ctx context.Context, sessionID types.ID, opts types.HistorySearchOptions) []types.HistoryEntry {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.restoreLocked(ctx, sessionID)
	if sess == nil {
		return []types.HistoryEntry{}
	}

	query := strings.ToLower(opts.Query)

	var matched []types.HistoryEntry
	for _, entry := range sess.History {
		if query != "" &&
			!strings.Contains(strings.ToLower(entry.Command), query) &&
			!strings.Contains(strings.ToLower(entry.Output), query) {
			continue
		}
		if opts.ExitCode != nil && entry.ExitCode != *opts.ExitCode {
			continue
		}
		if opts.DateFrom != nil && entry.Timestamp.Before(*opts.DateFrom) {
			continue
		}
		if opts.DateTo != nil && entry.Timestamp.After(*opts.DateTo) {
			continue
		}
		if opts.Cwd != "" && entry.Cwd != opts.Cwd {
			continue
		}
		matched = append(matched, entry)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp.Time)
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	if matched == nil {
		matched = []types.HistoryEntry{}
	}
	return matched
}

// CommandSuggestions returns up to limit distinct commands matching the
// partial input case-insensitively by prefix, drawn from the session's
// history and a fixed list of common dev-tool commands. A missing session
// yields an empty slice, consistent with the other history queries.
func (m *Manager) CommandSuggestions(ctx context.Context, sessionID types.ID, partial string, limit int) []string {
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.restoreLocked(ctx, sessionID)
	if sess == nil {
		return []string{}
	}

	prefix := strings.ToLower(partial)
	seen := map[string]bool{}
	suggestions := []string{}

	add := func(cmd string) {
		if len(suggestions) >= limit || seen[cmd] {
			return
		}
		if strings.HasPrefix(strings.ToLower(cmd), prefix) {
			seen[cmd] = true
			suggestions = append(suggestions, cmd)
		}
	}

	for _, entry := range sess.History {
		add(entry.Command)
	}
	for _, cmd := range commonCommands {
		add(cmd)
	}

	return suggestions
}

// FrequentCommands counts history entries by base command (the first
// whitespace-delimited token; an empty command counts as "unknown") and
// returns the top limit as command/count pairs, descending by count. Ties
// keep first-seen order.
func (m *Manager) FrequentCommands(ctx context.Context, sessionID types.ID, limit int) []types.CommandCount {
	if limit <= 0 {
		limit = DefaultFrequentLimit
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.restoreLocked(ctx, sessionID)
	if sess == nil {
		return []types.CommandCount{}
	}

	counts := map[string]int{}
	var order []string
	for _, entry := range sess.History {
		base := "unknown"
		if fields := strings.Fields(entry.Command); len(fields) > 0 {
			base = fields[0]
		}
		if _, ok := counts[base]; !ok {
			order = append(order, base)
		}
		counts[base]++
	}

	result := make([]types.CommandCount, 0, len(order))
	for _, base := range order {
		result = append(result, types.CommandCount{Command: base, Count: counts[base]})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result
}
