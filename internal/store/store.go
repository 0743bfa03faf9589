// Package store persists session records, crash high scores, round
// history and autoplay run summaries. Records and high scores are stored
// as opaque JSON blobs so a damaged row can be decoded leniently by the
// session.
package store

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a session has nothing stored yet.
var ErrNotFound = errors.New("store: not found")

// Round is one settled game round.
type Round struct {
	ID           uuid.UUID `json:"id"`
	SessionID    string    `json:"session_id"`
	Game         string    `json:"game"`
	RoundID      string    `json:"round_id"`
	Bet          int       `json:"bet"`
	Payout       int       `json:"payout"`
	Outcome      string    `json:"outcome"`
	BalanceAfter int       `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

var csvHeader = []string{"id", "game", "round_id", "bet", "payout", "outcome", "balance_after", "created_at"}

func csvRecord(r Round) []string {
	return []string{
		r.ID.String(),
		r.Game,
		r.RoundID,
		strconv.Itoa(r.Bet),
		strconv.Itoa(r.Payout),
		r.Outcome,
		strconv.Itoa(r.BalanceAfter),
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Memory keeps everything in process memory. The zero value is not
// usable; call NewMemory.
type Memory struct {
	mu         sync.Mutex
	records    map[string][]byte
	highScores map[string][]byte
	rounds     map[string][]Round
	runs       map[string][]AutoplayRun
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records:    make(map[string][]byte),
		highScores: make(map[string][]byte),
		rounds:     make(map[string][]Round),
		runs:       make(map[string][]AutoplayRun),
	}
}

func (m *Memory) LoadRecord(_ context.Context, sessionID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.records[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) SaveRecord(_ context.Context, sessionID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[sessionID] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) LoadHighScores(_ context.Context, sessionID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.highScores[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) SaveHighScores(_ context.Context, sessionID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.highScores[sessionID] = append([]byte(nil), data...)
	return nil
}

// AppendRound stores r, filling in ID and CreatedAt when unset. A round
// that was already recorded is ignored.
func (m *Memory) AppendRound(_ context.Context, r Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rounds[r.SessionID] {
		if existing.RoundID == r.RoundID {
			return nil
		}
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	m.rounds[r.SessionID] = append(m.rounds[r.SessionID], r)
	return nil
}

// ListRounds returns up to limit rounds, newest first.
func (m *Memory) ListRounds(_ context.Context, sessionID string, limit int) ([]Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.rounds[sessionID]
	out := make([]Round, len(all))
	for i, r := range all {
		out[len(all)-1-i] = r
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ExportCSV writes every round of the session, oldest first.
func (m *Memory) ExportCSV(_ context.Context, w io.Writer, sessionID string) error {
	m.mu.Lock()
	rounds := append([]Round(nil), m.rounds[sessionID]...)
	m.mu.Unlock()

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rounds {
		if err := cw.Write(csvRecord(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (m *Memory) Close() error { return nil }

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }
