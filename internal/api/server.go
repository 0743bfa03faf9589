package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/MJE43/casino-engine/internal/logger"
	"github.com/MJE43/casino-engine/internal/scripting"
	"github.com/MJE43/casino-engine/internal/session"
	"github.com/MJE43/casino-engine/internal/store"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunStore keeps autoplay run summaries.
type RunStore interface {
	SaveAutoplayRun(ctx context.Context, run store.AutoplayRun) error
	ListAutoplayRuns(ctx context.Context, sessionID string, limit int) ([]store.AutoplayRun, error)
}

// Options configures a Server.
type Options struct {
	// Store is checked by /health when set.
	Store             Pinger
	// Runs records autoplay runs and serves /autoplay/runs when set.
	Runs              RunStore
	AutoplayMaxRounds int
	AutoplayTimeout   time.Duration
	RequestTimeout    time.Duration
}

// Server exposes one session over HTTP and a websocket state feed.
type Server struct {
	session  *session.Session
	autoplay *scripting.Engine
	hub      *Hub
	store    Pinger
	runs     RunStore
	upgrader websocket.Upgrader

	autoplayTimeout time.Duration
	requestTimeout  time.Duration
	startTime       time.Time
}

// NewServer creates a new API server
func NewServer(sess *session.Session, opts Options) *Server {
	if opts.AutoplayTimeout <= 0 {
		opts.AutoplayTimeout = 30 * time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	s := &Server{
		session:         sess,
		hub:             NewHub(),
		store:           opts.Store,
		runs:            opts.Runs,
		autoplayTimeout: opts.AutoplayTimeout,
		requestTimeout:  opts.RequestTimeout,
		startTime:       time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	eopts := scripting.Options{
		MaxRounds: opts.AutoplayMaxRounds,
		Emitter:   s,
	}
	if opts.Runs != nil {
		eopts.Recorder = opts.Runs
	}
	s.autoplay = scripting.NewEngine(sess, eopts)
	return s
}

// Hub returns the websocket hub so callers can shut it down.
func (s *Server) Hub() *Hub { return s.hub }

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.HTTPMiddleware)
	r.Use(recoveryHandler)

	r.Get("/health", s.handleHealthCheck)
	r.Get("/health/live", s.handleLiveness)
	r.Get("/version", s.handleVersion)

	r.Route("/api/v1", func(r chi.Router) {
		// Long-lived routes manage their own deadlines.
		r.Get("/events", s.handleEvents)
		r.Post("/autoplay", s.handleAutoplay)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.requestTimeout))

			r.Get("/state", s.handleState)
			r.Post("/game", s.handleSelectGame)
			r.Post("/reset", s.handleReset)

			r.Route("/blackjack", func(r chi.Router) {
				r.Post("/bet", s.handleBlackjackBet)
				r.Post("/deal", s.action(s.session.Deal))
				r.Post("/hit", s.action(s.session.Hit))
				r.Post("/stand", s.action(s.session.Stand))
				r.Post("/double", s.action(s.session.Double))
			})

			r.Route("/roulette", func(r chi.Router) {
				r.Post("/bets", s.handleRouletteBet)
				r.Delete("/bets", s.action(s.session.ClearRouletteBets))
				r.Post("/spin", s.action(s.session.SpinRoulette))
				r.Post("/settle", s.action(s.session.SettleRoulette))
			})

			r.Route("/slots", func(r chi.Router) {
				r.Post("/spin", s.action(s.session.SpinSlots))
				r.Post("/settle", s.action(s.session.SettleSlots))
			})

			r.Route("/crash", func(r chi.Router) {
				r.Post("/start", s.handleCrashStart)
				r.Post("/step", s.action(s.session.StepCrash))
				r.Post("/cashout", s.action(s.session.CashOutCrash))
				r.Get("/difficulties", s.handleDifficulties)
				r.Get("/highscores", s.handleHighScores)
			})

			r.Post("/fair/verify", s.handleVerify)

			r.Get("/history", s.handleHistory)
			r.Get("/history/export", s.handleHistoryExport)

			r.Get("/autoplay", s.handleAutoplayState)
			r.Delete("/autoplay", s.handleAutoplayStop)
			r.Get("/autoplay/runs", s.handleAutoplayRuns)
		})
	})

	return r
}

// EmitScriptState forwards autoplay progress and the session state to
// websocket clients.
func (s *Server) EmitScriptState(snap scripting.Snapshot) {
	s.hub.Publish(EventAutoplay, snap)
	s.hub.Publish(EventState, s.session.View())
}

// writeJSON writes a JSON response with proper headers
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error(context.Background()).Err(err).Msg("encode response")
	}
}
