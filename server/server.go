package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/hupe1980/guesswho/core"
	"github.com/hupe1980/guesswho/logging"
	"github.com/hupe1980/guesswho/orchestrator"
	"github.com/julienschmidt/httprouter"
)

const requestTimeout = 10 * time.Second

// Game is the subset of the façade the HTTP layer depends on.
type Game interface {
	StartSession(ctx context.Context, owner string, image []byte) (string, error)
	AssignName(ctx context.Context, sessionID, candidateID, name string) error
	SubmitAnswer(ctx context.Context, sessionID string, answer core.Answer) error
	SubmitGuessVerification(ctx context.Context, sessionID string, correct bool) error
	Cancel(ctx context.Context, sessionID string) (core.Phase, error)
	Get(sessionID string) (*core.Session, error)
}

// Options configure the HTTP server.
type Options struct {
	Bind   string
	Port   int
	Logger logging.Logger

	// Hub is the event hub serving websocket subscribers. Supply one created
	// with NewEventHub when the game was constructed with it as sink; if nil
	// a fresh hub is created.
	Hub *EventHub
}

// Server wires the game façade to an httprouter mux and an event hub.
type Server struct {
	game   Game
	hub    *EventHub
	opts   Options
	logger logging.Logger
}

// New creates a Server around game. Subscribe the returned server's Hub as
// the game's event sink so websocket clients receive session events.
func New(game Game, optFns ...func(o *Options)) *Server {
	opts := Options{
		Bind:   "0.0.0.0",
		Port:   8080,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	hub := opts.Hub
	if hub == nil {
		hub = NewEventHub(opts.Logger)
	}

	return &Server{
		game:   game,
		hub:    hub,
		opts:   opts,
		logger: opts.Logger,
	}
}

// Hub returns the event hub, to be registered as the game's core.Sink.
func (s *Server) Hub() *EventHub { return s.hub }

// Router builds the route table.
func (s *Server) Router() *httprouter.Router {
	mux := httprouter.New()

	mux.POST("/sessions", s.handleStartSession)
	mux.GET("/sessions/:id", s.handleGetSession)
	mux.POST("/sessions/:id/names", s.handleAssignName)
	mux.POST("/sessions/:id/answers", s.handleSubmitAnswer)
	mux.POST("/sessions/:id/guess", s.handleGuessVerification)
	mux.DELETE("/sessions/:id", s.handleCancel)
	mux.GET("/sessions/:id/events", s.handleEvents)

	return mux
}

// ListenAndServe runs the HTTP server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(s.opts.Bind, fmt.Sprintf("%d", s.opts.Port)),
		Handler:           s.Router(),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       requestTimeout,
		ReadHeaderTimeout: requestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("http server listening", "addr", srv.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

type startSessionRequest struct {
	Owner       string `json:"owner"`
	ImageBase64 string `json:"imageBase64"`
}

type startSessionResponse struct {
	SessionID string `json:"sessionId"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req startSessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Owner == "" {
		s.writeError(w, http.StatusBadRequest, "bad_request", "owner is required")
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil || len(image) == 0 {
		s.writeError(w, http.StatusBadRequest, "bad_request", "imageBase64 must be a non-empty base64 string")
		return
	}

	id, err := s.game.StartSession(r.Context(), req.Owner, image)
	if err != nil {
		s.writeGameError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, startSessionResponse{SessionID: id})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	sess, err := s.game.Get(p.ByName("id"))
	if err != nil {
		s.writeGameError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, sess)
}

type assignNameRequest struct {
	CandidateID string `json:"candidateId"`
	Name        string `json:"name"`
}

func (s *Server) handleAssignName(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req assignNameRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.game.AssignName(r.Context(), p.ByName("id"), req.CandidateID, req.Name); err != nil {
		s.writeGameError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type submitAnswerRequest struct {
	Answer string `json:"answer"`
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req submitAnswerRequest
	if !s.decode(w, r, &req) {
		return
	}

	answer, ok := core.ParseAnswer(req.Answer)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "bad_request", "answer must be yes, no or unsure")
		return
	}

	if err := s.game.SubmitAnswer(r.Context(), p.ByName("id"), answer); err != nil {
		s.writeGameError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type guessVerificationRequest struct {
	Correct bool `json:"correct"`
}

func (s *Server) handleGuessVerification(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req guessVerificationRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.game.SubmitGuessVerification(r.Context(), p.ByName("id"), req.Correct); err != nil {
		s.writeGameError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type cancelResponse struct {
	Phase string `json:"phase"`
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	phase, err := s.game.Cancel(r.Context(), p.ByName("id"))
	if err != nil {
		s.writeGameError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, cancelResponse{Phase: phase.String()})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	id := p.ByName("id")
	if _, err := s.game.Get(id); err != nil {
		s.writeGameError(w, err)
		return
	}

	if err := s.hub.subscribe(w, r, id); err != nil {
		s.logger.Warn("websocket upgrade failed", "session_id", id, "error", err.Error())
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return false
	}
	return true
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) writeGameError(w http.ResponseWriter, err error) {
	s.writeError(w, statusFor(err), orchestrator.ErrorKind(err), err.Error())
}

func (s *Server) writeError(w http.ResponseWriter, status int, kind, message string) {
	s.writeJSON(w, status, errorResponse{Kind: kind, Message: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response write failed", "error", err.Error())
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrSessionExpired):
		return http.StatusGone
	case errors.Is(err, core.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, core.ErrDuplicateActiveSession):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidName),
		errors.Is(err, core.ErrUnknownCandidate),
		errors.Is(err, core.ErrNoCandidatesDetected),
		errors.Is(err, core.ErrNoFacesDetected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrOracleUnavailable),
		errors.Is(err, core.ErrAnalyzerUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrOracleProtocol):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
