package api

import (
	"github.com/MJE43/casino-engine/internal/games"
	"github.com/MJE43/casino-engine/internal/session"
	"github.com/MJE43/casino-engine/internal/store"
	"github.com/MJE43/casino-engine/internal/table"
)

// EngineError represents a structured error response with context
type EngineError struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

const (
	ErrTypeValidation = "VALIDATION_ERROR"
	ErrTypeNotFound   = "NOT_FOUND"
	ErrTypeConflict   = "CONFLICT"
	ErrTypeTimeout    = "TIMEOUT"
	ErrTypeInternal   = "INTERNAL_ERROR"
)

// ErrorCategory groups error types for logging
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryClient     ErrorCategory = "client"
	CategorySystem     ErrorCategory = "system"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeValidation:
		return CategoryValidation
	case ErrTypeNotFound, ErrTypeConflict:
		return CategoryClient
	default:
		return CategorySystem
	}
}

// VersionInfo describes the running binary.
type VersionInfo struct {
	EngineVersion string `json:"engine_version"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildTime     string `json:"build_time,omitempty"`
	GoVersion     string `json:"go_version"`
	Dirty         bool   `json:"dirty,omitempty"`
}

// ActionResponse answers every mutating route. Accepted is false when the
// action was illegal in the current state; State is then unchanged.
type ActionResponse struct {
	Accepted bool         `json:"accepted"`
	State    session.View `json:"state"`
}

// GameRequest selects the active game
type GameRequest struct {
	Game string `json:"game"`
}

// BetRequest sets the blackjack bet
type BetRequest struct {
	Amount *int `json:"amount"`
}

// RouletteBetRequest places one roulette chip
type RouletteBetRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// CrashStartRequest starts a crash round
type CrashStartRequest struct {
	Difficulty string `json:"difficulty"`
	Bet        *int   `json:"bet"`
}

// AutoplayRequest runs a crash autoplay script
type AutoplayRequest struct {
	Script string `json:"script"`
	Rounds int    `json:"rounds,omitempty"`
}

// DifficultiesResponse lists the crash tiers
type DifficultiesResponse struct {
	Difficulties []games.Difficulty `json:"difficulties"`
}

// HighScoresResponse lists the best crash cash-outs
type HighScoresResponse struct {
	HighScores []session.HighScore `json:"high_scores"`
}

// HistoryResponse lists settled rounds, newest first
type HistoryResponse struct {
	Rounds []store.Round `json:"rounds"`
}

// AutoplayRunsResponse lists recorded autoplay runs, newest first
type AutoplayRunsResponse struct {
	Runs []store.AutoplayRun `json:"runs"`
}

// VerifyRequest re-derives a fair-mode round from revealed seeds
type VerifyRequest struct {
	ServerSeed string  `json:"server_seed"`
	ClientSeed string  `json:"client_seed"`
	Nonce      *uint64 `json:"nonce"`
	Game       string  `json:"game"`
	Difficulty string  `json:"difficulty,omitempty"`
}

// VerifyResponse carries the replayed outcome. MatchesCommitment reports
// whether the seed hashes to the hash this session published.
type VerifyResponse struct {
	table.Replay
	MatchesCommitment bool `json:"matches_commitment"`
}
