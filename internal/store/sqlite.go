package store

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// SQLite is the on-disk store.
type SQLite struct {
	db *sql.DB
}

// Open opens or creates the database at dbPath and runs migrations. Use
// ":memory:" for a throwaway database.
func Open(ctx context.Context, dbPath string) (*SQLite, error) {
	dsn := ":memory:"
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite is not concurrent for writes; a single connection also keeps
	// an in-memory database alive for the life of the store.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Ping checks that the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			record TEXT,
			high_scores TEXT,
			updated_at TIMESTAMP NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS rounds (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			game TEXT NOT NULL,
			round_id TEXT NOT NULL,
			bet INTEGER NOT NULL,
			payout INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			balance_after INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			UNIQUE(session_id, round_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_session_created ON rounds(session_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_session_game ON rounds(session_id, game);`,

		`CREATE TABLE IF NOT EXISTS autoplay_runs (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			script TEXT NOT NULL,
			state TEXT NOT NULL,
			stop_reason TEXT,
			error TEXT,
			rounds INTEGER NOT NULL,
			wins INTEGER NOT NULL,
			losses INTEGER NOT NULL,
			wagered INTEGER NOT NULL,
			profit INTEGER NOT NULL,
			start_balance INTEGER NOT NULL,
			final_balance INTEGER NOT NULL,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_autoplay_runs_session ON autoplay_runs(session_id, started_at DESC);`,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// --------- Session blobs ---------

func (s *SQLite) LoadRecord(ctx context.Context, sessionID string) ([]byte, error) {
	return s.loadColumn(ctx, "record", sessionID)
}

func (s *SQLite) SaveRecord(ctx context.Context, sessionID string, data []byte) error {
	return s.saveColumn(ctx, "record", sessionID, data)
}

func (s *SQLite) LoadHighScores(ctx context.Context, sessionID string) ([]byte, error) {
	return s.loadColumn(ctx, "high_scores", sessionID)
}

func (s *SQLite) SaveHighScores(ctx context.Context, sessionID string, data []byte) error {
	return s.saveColumn(ctx, "high_scores", sessionID, data)
}

// column is always one of the fixed names above, never user input.
func (s *SQLite) loadColumn(ctx context.Context, column, sessionID string) ([]byte, error) {
	var v sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT `+column+` FROM sessions WHERE id=?`, sessionID).Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("load %s: %w", column, err)
	case !v.Valid:
		return nil, ErrNotFound
	}
	return []byte(v.String), nil
}

func (s *SQLite) saveColumn(ctx context.Context, column, sessionID string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions(id, `+column+`, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			`+column+`=excluded.`+column+`,
			updated_at=excluded.updated_at`,
		sessionID, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save %s: %w", column, err)
	}
	return nil
}

// --------- Rounds ---------

// AppendRound stores r, filling in ID and CreatedAt when unset. A round
// that was already recorded is ignored.
func (s *SQLite) AppendRound(ctx context.Context, r Round) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rounds(id, session_id, game, round_id, bet, payout, outcome, balance_after, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.SessionID, r.Game, r.RoundID, r.Bet, r.Payout, r.Outcome, r.BalanceAfter, r.CreatedAt)
	if err != nil {
		if isConstraintErr(err) {
			return nil
		}
		return fmt.Errorf("append round: %w", err)
	}
	return nil
}

// ListRounds returns up to limit rounds, newest first.
func (s *SQLite) ListRounds(ctx context.Context, sessionID string, limit int) ([]Round, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, game, round_id, bet, payout, outcome, balance_after, created_at
		FROM rounds WHERE session_id=?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, sessionID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	var out []Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ExportCSV writes every round of the session to w, oldest first.
func (s *SQLite) ExportCSV(ctx context.Context, w io.Writer, sessionID string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, game, round_id, bet, payout, outcome, balance_after, created_at
		FROM rounds WHERE session_id=? ORDER BY created_at ASC, rowid ASC`, sessionID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return err
		}
		if err := cw.Write(csvRecord(r)); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func scanRound(rows *sql.Rows) (Round, error) {
	var (
		r  Round
		id string
	)
	if err := rows.Scan(&id, &r.SessionID, &r.Game, &r.RoundID, &r.Bet, &r.Payout, &r.Outcome, &r.BalanceAfter, &r.CreatedAt); err != nil {
		return Round{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Round{}, fmt.Errorf("round id %q: %w", id, err)
	}
	r.ID = parsed
	return r, nil
}

// --------- helpers ---------

func isConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "constraint failed") || strings.Contains(msg, "unique constraint")
}
