package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/MJE43/casino-engine/internal/engine"
	"github.com/MJE43/casino-engine/internal/games"
	"github.com/MJE43/casino-engine/internal/logger"
	"github.com/MJE43/casino-engine/internal/scripting"
	"github.com/MJE43/casino-engine/internal/session"
	"github.com/MJE43/casino-engine/internal/store"
	"github.com/MJE43/casino-engine/internal/table"
)

const maxBodyBytes = 1 << 20

// action adapts a body-less session action to a handler.
func (s *Server) action(fn func(context.Context) (session.View, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := fn(r.Context())
		s.respond(w, v, ok)
	}
}

// respond writes the action envelope and pushes accepted changes to the feed.
func (s *Server) respond(w http.ResponseWriter, v session.View, ok bool) {
	if ok {
		s.hub.Publish(EventState, v)
	}
	writeJSON(w, http.StatusOK, ActionResponse{Accepted: ok, State: v})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, NewError(ErrTypeValidation, "Validation failed: invalid JSON body").
			WithContext("field", "body").
			WithCause(err))
		return false
	}
	return true
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.View())
}

func (s *Server) handleSelectGame(w http.ResponseWriter, r *http.Request) {
	var req GameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !table.IsGame(req.Game) {
		writeError(w, r, NewError(ErrTypeValidation, fmt.Sprintf("Validation failed: unknown game %q", req.Game)).
			WithContext("field", "game").
			WithContext("allowed", table.Games))
		return
	}
	v, ok := s.session.SelectGame(r.Context(), req.Game)
	s.respond(w, v, ok)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	v, ok := s.session.Reset(r.Context())
	s.respond(w, v, ok)
}

func (s *Server) handleBlackjackBet(w http.ResponseWriter, r *http.Request) {
	var req BetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Amount == nil {
		validationError(w, r, "amount", "amount is required")
		return
	}
	v, ok := s.session.SetBlackjackBet(r.Context(), *req.Amount)
	s.respond(w, v, ok)
}

func (s *Server) handleRouletteBet(w http.ResponseWriter, r *http.Request) {
	var req RouletteBetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Type == "" {
		validationError(w, r, "type", "type is required")
		return
	}
	v, ok := s.session.PlaceRouletteBet(r.Context(), games.BetType(req.Type), req.Value)
	s.respond(w, v, ok)
}

func (s *Server) handleCrashStart(w http.ResponseWriter, r *http.Request) {
	var req CrashStartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Difficulty == "" {
		validationError(w, r, "difficulty", "difficulty is required")
		return
	}
	if req.Bet == nil {
		validationError(w, r, "bet", "bet is required")
		return
	}
	v, ok := s.session.StartCrash(r.Context(), req.Difficulty, *req.Bet)
	s.respond(w, v, ok)
}

func (s *Server) handleDifficulties(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DifficultiesResponse{Difficulties: s.session.Difficulties()})
}

func (s *Server) handleHighScores(w http.ResponseWriter, r *http.Request) {
	scores := s.session.HighScores()
	if scores == nil {
		scores = []session.HighScore{}
	}
	writeJSON(w, http.StatusOK, HighScoresResponse{HighScores: scores})
}

// queryLimit parses ?limit=, writing a validation error when malformed.
func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		validationError(w, r, "limit", "limit must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}

	rounds, err := s.session.History(r.Context(), limit)
	if err != nil {
		internalError(w, r, "Failed to load round history", err)
		return
	}
	if rounds == nil {
		rounds = []store.Round{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Rounds: rounds})
}

func (s *Server) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.session.ExportHistory(r.Context(), &buf); err != nil {
		internalError(w, r, "Failed to export round history", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-history.csv"`, s.session.ID()))
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Warn(r.Context()).Err(err).Msg("write history export")
	}
}

func (s *Server) handleAutoplay(w http.ResponseWriter, r *http.Request) {
	var req AutoplayRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Script == "" {
		validationError(w, r, "script", "script is required")
		return
	}
	if req.Rounds < 0 {
		validationError(w, r, "rounds", "rounds must be >= 0")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.autoplayTimeout)
	defer cancel()

	snap, err := s.autoplay.Run(ctx, req.Script, req.Rounds)
	switch {
	case errors.Is(err, scripting.ErrAlreadyRunning):
		writeError(w, r, NewError(ErrTypeConflict, "Autoplay is already running"))
	case err != nil:
		writeError(w, r, NewError(ErrTypeValidation, "Autoplay script failed").
			WithContext("field", "script").
			WithContext("rounds", snap.Rounds).
			WithCause(err))
	default:
		writeJSON(w, http.StatusOK, snap)
	}
}

func (s *Server) handleAutoplayState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.autoplay.Snapshot())
}

func (s *Server) handleAutoplayStop(w http.ResponseWriter, r *http.Request) {
	if err := s.autoplay.Stop(); err != nil {
		writeError(w, r, NewError(ErrTypeConflict, "Autoplay is not running").WithCause(err))
		return
	}
	writeJSON(w, http.StatusAccepted, s.autoplay.Snapshot())
}

func (s *Server) handleAutoplayRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, r, NewError(ErrTypeNotFound, "Autoplay runs are not recorded"))
		return
	}
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	runs, err := s.runs.ListAutoplayRuns(r.Context(), s.session.ID(), limit)
	if err != nil {
		internalError(w, r, "Failed to load autoplay runs", err)
		return
	}
	if runs == nil {
		runs = []store.AutoplayRun{}
	}
	writeJSON(w, http.StatusOK, AutoplayRunsResponse{Runs: runs})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	switch {
	case req.ServerSeed == "":
		validationError(w, r, "server_seed", "server_seed is required")
		return
	case req.Nonce == nil:
		validationError(w, r, "nonce", "nonce is required")
		return
	}

	seeds := engine.Seeds{Server: req.ServerSeed, Client: req.ClientSeed}
	replay, err := table.ReplayRound(seeds, *req.Nonce, req.Game, s.session.Rules(), req.Difficulty)
	if err != nil {
		eb := NewError(ErrTypeValidation, "Validation failed: "+err.Error())
		if errors.Is(err, table.ErrUnknownDifficulty) {
			eb.WithContext("field", "difficulty")
		} else {
			eb.WithContext("field", "game").WithContext("allowed", table.Games)
		}
		writeError(w, r, eb)
		return
	}

	resp := VerifyResponse{Replay: replay}
	if c := s.session.View().Fairness; c != nil {
		resp.MatchesCommitment = c.ServerSeedHash == replay.ServerSeedHash && c.ClientSeed == req.ClientSeed
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	first, err := json.Marshal(Event{Type: EventState, Data: s.session.View()})
	if err != nil {
		internalError(w, r, "Failed to encode state", err)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logger.Warn(r.Context()).Err(err).Msg("websocket upgrade failed")
		return
	}
	s.hub.Register(conn, first)
	logger.Debug(r.Context()).Int("clients", s.hub.Len()).Msg("ws client connected")
}
