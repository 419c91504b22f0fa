// Package api exposes the conversation engine and customer store over
// a small REST surface used by dashboards and the ctl tool.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/deskrelay-io/deskrelay/internal/logbuf"
	"github.com/deskrelay-io/deskrelay/internal/store"
	"github.com/deskrelay-io/deskrelay/pkg/protocol"
)

// apologyResponse is returned when a conversation ends without a final
// answer.
const apologyResponse = "Sorry, something went wrong while handling your request. Please try again."

// LogTailer abstracts log access to avoid coupling to logbuf directly.
type LogTailer interface {
	Tail(minLevel slog.Level, limit int) []logbuf.Entry
}

// Service is the interface the API server needs from the engine and
// store.
type Service interface {
	RunQuery(utterance string) *protocol.ConversationState
	GetCustomer(id int64) (*protocol.Customer, error)
	ListCustomers(status string, limit int) ([]protocol.Customer, error)
	CustomerHistory(customerID int64) ([]protocol.Ticket, error)
	ListTickets(status string, limit int) ([]protocol.Ticket, error)
	CreateTicket(customerID int64, issue string, priority protocol.TicketPriority) (*protocol.Ticket, error)
}

// Config holds API server configuration.
type Config struct {
	Host string
	Port int
	Key  string // API key for Bearer auth
}

// Server is the deskrelay REST API server.
type Server struct {
	svc    Service
	cfg    Config
	logger *slog.Logger
	logs   LogTailer
	srv    *http.Server
}

// NewServer creates a new API server. logs may be nil.
func NewServer(svc Service, cfg Config, logger *slog.Logger, logs LogTailer) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:    svc,
		cfg:    cfg,
		logger: logger,
		logs:   logs,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/query", s.requireAuth(s.handleQuery))
	mux.HandleFunc("GET /api/customers", s.requireAuth(s.handleListCustomers))
	mux.HandleFunc("GET /api/customers/{id}", s.requireAuth(s.handleGetCustomer))
	mux.HandleFunc("GET /api/customers/{id}/history", s.requireAuth(s.handleCustomerHistory))
	mux.HandleFunc("GET /api/tickets", s.requireAuth(s.handleListTickets))
	mux.HandleFunc("POST /api/tickets", s.requireAuth(s.handleCreateTicket))
	mux.HandleFunc("GET /api/logs", s.requireAuth(s.handleGetLogs))

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Key == "" {
			next(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.cfg.Key {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	ConversationID string            `json:"conversation_id"`
	Response       string            `json:"response"`
	Resolved       bool              `json:"resolved"`
	Intents        []protocol.Intent `json:"intents,omitempty"`
	Log            []string          `json:"log,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	state := s.svc.RunQuery(req.Query)
	resp := queryResponse{
		ConversationID: state.ID,
		Response:       state.Final,
		Resolved:       state.Resolved(),
		Intents:        state.Intents,
	}
	if !state.Resolved() {
		resp.Response = apologyResponse
	}
	if r.URL.Query().Get("trace") == "true" {
		resp.Log = state.Log
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = "active"
	}
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	customers, err := s.svc.ListCustomers(status, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if customers == nil {
		customers = []protocol.Customer{}
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer id"})
		return
	}
	cust, err := s.svc.GetCustomer(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, cust)
}

func (s *Server) handleCustomerHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer id"})
		return
	}
	tickets, err := s.svc.CustomerHistory(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if tickets == nil {
		tickets = []protocol.Ticket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	tickets, err := s.svc.ListTickets(status, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if tickets == nil {
		tickets = []protocol.Ticket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}

type createTicketRequest struct {
	CustomerID int64  `json:"customer_id"`
	Issue      string `json:"issue"`
	Priority   string `json:"priority,omitempty"`
}

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req createTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.CustomerID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "customer_id is required"})
		return
	}
	if strings.TrimSpace(req.Issue) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "issue is required"})
		return
	}
	priority := protocol.TicketPriority(req.Priority)
	if priority == "" {
		priority = protocol.PriorityMedium
	}

	ticket, err := s.svc.CreateTicket(req.CustomerID, req.Issue, priority)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		writeJSON(w, http.StatusOK, []logbuf.Entry{})
		return
	}

	limit := 200
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	minLevel := slog.LevelDebug
	if lvl := r.URL.Query().Get("level"); lvl != "" {
		switch strings.ToLower(lvl) {
		case "info":
			minLevel = slog.LevelInfo
		case "warn":
			minLevel = slog.LevelWarn
		case "error":
			minLevel = slog.LevelError
		}
	}

	entries := s.logs.Tail(minLevel, limit)
	if entries == nil {
		entries = []logbuf.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
