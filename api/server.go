// Package api provides the HTTP REST and WebSocket surface for VectorSim.
//
// It exposes endpoints to submit a simulation (POST /simulate), fetch its
// status and metrics (GET /simulate/{id}), page through its order/log
// records (GET /simulate/{id}/records), and stream those records over a
// WebSocket (GET /simulate/{id}/stream). It is adapted one-to-one in shape
// from the teacher's api/server.go + api/websocket.go — same chi router,
// same CORS/middleware stack, same WSHub broadcast shape — rewired to the
// simulation domain instead of analysis/chat/broker endpoints.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kestrelquant/vectorsim/internal/config"
	"github.com/kestrelquant/vectorsim/internal/engine"
	"github.com/kestrelquant/vectorsim/pkg/models"
)

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	cfg    *config.Config
	wsHub  *WSHub

	mu   sync.RWMutex
	runs map[string]*simRun
}

// simRun is one simulation's lifecycle state, from submission through
// completion. Runs execute synchronously inside the handler that creates
// them — small enough grids (the common case for a backtest) finish before
// a client has a chance to subscribe to the WebSocket stream, which §12.3
// documents as acceptable rather than a bug.
type simRun struct {
	ID        string
	Strategy  string
	Status    string // "running", "done", "error"
	CreatedAt time.Time
	Result    *engine.Result
	Err       string
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config) (*Server, error) {
	srv := &Server{
		cfg:   cfg,
		wsHub: NewWSHub(),
		runs:  make(map[string]*simRun),
	}
	srv.router = srv.buildRouter()
	return srv, nil
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/simulate", s.handleCreateSimulation)
		r.Get("/simulate/{id}", s.handleGetSimulation)
		r.Get("/simulate/{id}/records", s.handleGetRecords)
		r.Get("/simulate/{id}/stream", s.handleStream)
		r.Get("/events", s.handleEvents)

		r.Get("/config", s.handleGetConfig)
		r.Get("/config/keys", s.handleGetConfigKeys)
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// BarInput is one OHLCV bar in a POST /simulate request body.
type BarInput struct {
	Date   string  `json:"date"` // YYYY-MM-DD or RFC3339
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume,omitempty"`
}

// SimulateRequest is the body for POST /api/v1/simulate: a strategy name
// (see internal/strategies.BuiltinStrategies) run against an inline bar
// series, with an optional initial-cash override.
type SimulateRequest struct {
	Strategy string     `json:"strategy"`
	Bars     []BarInput `json:"bars"`
	InitCash float64    `json:"init_cash,omitempty"`
}

// SimulateResponse is the body returned by POST /api/v1/simulate.
type SimulateResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// SimulationStatusResponse is the body returned by GET /api/v1/simulate/{id}.
type SimulationStatusResponse struct {
	RunID    string                  `json:"run_id"`
	Strategy string                  `json:"strategy"`
	Status   string                  `json:"status"`
	Summary  *models.BacktestSummary `json:"summary,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// RecordsResponse is the paginated body returned by GET
// /api/v1/simulate/{id}/records.
type RecordsResponse struct {
	Orders []models.OrderRecord `json:"orders"`
	Logs   []models.LogRecord   `json:"logs"`
	Offset int                  `json:"offset"`
	Limit  int                  `json:"limit"`
	Total  int                  `json:"total"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleCreateSimulation(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Strategy == "" {
		writeError(w, http.StatusBadRequest, "strategy is required")
		return
	}
	if len(req.Bars) == 0 {
		writeError(w, http.StatusBadRequest, "bars must be non-empty")
		return
	}

	bars, err := parseBars(req.Bars)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runCfg := *s.cfg
	if req.InitCash > 0 {
		runCfg.Sim.InitCash = req.InitCash
	}

	runID := fmt.Sprintf("run-%d", time.Now().UnixNano())
	run := &simRun{ID: runID, Strategy: req.Strategy, Status: "running", CreatedAt: time.Now()}
	s.mu.Lock()
	s.runs[runID] = run
	s.mu.Unlock()

	result, err := engine.RunSignalStrategy(bars, req.Strategy, &runCfg)

	s.mu.Lock()
	if err != nil {
		run.Status = "error"
		run.Err = err.Error()
	} else {
		run.Status = "done"
		run.Result = result
	}
	s.mu.Unlock()

	s.wsHub.Broadcast(WSMessage{
		Type: "simulation_complete",
		Data: map[string]interface{}{"run_id": runID, "status": run.Status},
	})

	writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    SimulateResponse{RunID: runID, Status: run.Status},
	})
}

func (s *Server) handleGetSimulation(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	resp := SimulationStatusResponse{
		RunID:    run.ID,
		Strategy: run.Strategy,
		Status:   run.Status,
		Error:    run.Err,
	}
	if run.Result != nil {
		resp.Summary = run.Result.Summary
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: resp})
}

func (s *Server) handleGetRecords(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	if run.Result == nil {
		writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: RecordsResponse{}})
		return
	}

	orders := run.Result.Sim.Records.AllOrders()
	var logs []models.LogRecord
	for col := 0; col < run.Result.Sim.Cols; col++ {
		logs = append(logs, run.Result.Sim.Records.Logs(col)...)
	}

	offset, limit := paginationParams(r, len(orders))
	end := offset + limit
	if end > len(orders) {
		end = len(orders)
	}
	page := orders[offset:end]

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: RecordsResponse{
			Orders: page,
			Logs:   logs,
			Offset: offset,
			Limit:  limit,
			Total:  len(orders),
		},
	})
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (*simRun, bool) {
	id := chi.URLParam(r, "id")
	s.mu.RLock()
	run, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no such run: %s", id))
		return nil, false
	}
	return run, true
}

func paginationParams(r *http.Request, total int) (offset, limit int) {
	limit = 500
	offset = 0
	if v := r.URL.Query().Get("offset"); v != "" {
		fmt.Sscanf(v, "%d", &offset)
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	if limit <= 0 {
		limit = 500
	}
	return offset, limit
}

// parseBars converts request bar payloads into models.OHLCV, accepting
// either a plain date (YYYY-MM-DD) or a full RFC3339 timestamp.
func parseBars(in []BarInput) ([]models.OHLCV, error) {
	bars := make([]models.OHLCV, len(in))
	for i, b := range in {
		ts, err := time.Parse("2006-01-02", b.Date)
		if err != nil {
			ts, err = time.Parse(time.RFC3339, b.Date)
			if err != nil {
				return nil, fmt.Errorf("bar %d: invalid date %q", i, b.Date)
			}
		}
		bars[i] = models.OHLCV{
			Timestamp: ts,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}
	return bars, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{Success: false, Error: msg})
}

// ============================================================
// WebSocket Hub
// ============================================================

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// WSHub manages WebSocket connections and message broadcasting.
type WSHub struct {
	mu         sync.RWMutex
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
}

// WSClient represents a single WebSocket connection.
type WSClient struct {
	hub  *WSHub
	send chan WSMessage
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
}

// Run starts the hub event loop.
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					h.mu.RUnlock()
					h.mu.Lock()
					delete(h.clients, client)
					close(client.send)
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast sends a message to all connected WebSocket clients.
func (h *WSHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		// Drop message if broadcast channel is full
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub.
func (h *WSHub) Register(client *WSClient) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(client *WSClient) {
	h.unregister <- client
}
