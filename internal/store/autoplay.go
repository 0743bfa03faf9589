package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// AutoplayRun summarizes one finished crash autoplay script.
type AutoplayRun struct {
	ID           uuid.UUID `json:"id"`
	SessionID    string    `json:"session_id"`
	Script       string    `json:"script"`
	State        string    `json:"state"`
	StopReason   string    `json:"stop_reason,omitempty"`
	Error        string    `json:"error,omitempty"`
	Rounds       int       `json:"rounds"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	Wagered      int       `json:"wagered"`
	Profit       int       `json:"profit"`
	StartBalance int       `json:"start_balance"`
	FinalBalance int       `json:"final_balance"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
}

func (r *AutoplayRun) fillDefaults() {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now().UTC()
	if r.StartedAt.IsZero() {
		r.StartedAt = now
	}
	if r.EndedAt.IsZero() {
		r.EndedAt = now
	}
}

// SaveAutoplayRun records a finished run.
func (m *Memory) SaveAutoplayRun(_ context.Context, r AutoplayRun) error {
	r.fillDefaults()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[r.SessionID] = append(m.runs[r.SessionID], r)
	return nil
}

// ListAutoplayRuns returns up to limit runs, newest first.
func (m *Memory) ListAutoplayRuns(_ context.Context, sessionID string, limit int) ([]AutoplayRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.runs[sessionID]
	out := make([]AutoplayRun, len(all))
	for i, r := range all {
		out[len(all)-1-i] = r
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SaveAutoplayRun records a finished run.
func (s *SQLite) SaveAutoplayRun(ctx context.Context, r AutoplayRun) error {
	r.fillDefaults()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO autoplay_runs(id, session_id, script, state, stop_reason, error, rounds, wins, losses,
			wagered, profit, start_balance, final_balance, started_at, ended_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.SessionID, r.Script, r.State, r.StopReason, r.Error, r.Rounds, r.Wins, r.Losses,
		r.Wagered, r.Profit, r.StartBalance, r.FinalBalance, r.StartedAt, r.EndedAt)
	if err != nil {
		return fmt.Errorf("save autoplay run: %w", err)
	}
	return nil
}

// ListAutoplayRuns returns up to limit runs, newest first.
func (s *SQLite) ListAutoplayRuns(ctx context.Context, sessionID string, limit int) ([]AutoplayRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, script, state, stop_reason, error, rounds, wins, losses,
			wagered, profit, start_balance, final_balance, started_at, ended_at
		FROM autoplay_runs WHERE session_id=?
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, sessionID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list autoplay runs: %w", err)
	}
	defer rows.Close()

	var out []AutoplayRun
	for rows.Next() {
		var (
			r                  AutoplayRun
			id                 string
			stopReason, errMsg sql.NullString
		)
		if err := rows.Scan(&id, &r.SessionID, &r.Script, &r.State, &stopReason, &errMsg, &r.Rounds, &r.Wins, &r.Losses,
			&r.Wagered, &r.Profit, &r.StartBalance, &r.FinalBalance, &r.StartedAt, &r.EndedAt); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("autoplay run id %q: %w", id, err)
		}
		r.ID = parsed
		r.StopReason = stopReason.String
		r.Error = errMsg.String
		out = append(out, r)
	}
	return out, rows.Err()
}
