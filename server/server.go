// Package server exposes the core operations as a thin HTTP JSON API plus a
// WebSocket endpoint for interactive question answering. All business rules
// live in pkg/rag; handlers only translate between wire shapes and the
// service.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/arogyaswarm/medrag/internal/models"
	"github.com/arogyaswarm/medrag/pkg/queue"
	"github.com/arogyaswarm/medrag/pkg/rag"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

type Server struct {
	service *rag.Service
	logger  *logrus.Entry
}

func New(service *rag.Service, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		service: service,
		logger:  logger.WithField("component", "server"),
	}
}

// Handler returns the route table for the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/rag/ingest", s.handleIngest)
	mux.HandleFunc("POST /api/rag/drain", s.handleDrain)
	mux.HandleFunc("POST /api/rag/query", s.handleQuery)
	mux.HandleFunc("GET /api/rag/status", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// ListenAndServe blocks serving the API on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.WithField("addr", addr).Info("starting server")
	return http.ListenAndServe(addr, s.Handler())
}

type ingestRequest struct {
	Documents []models.Document `json:"documents"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Documents) == 0 {
		s.writeError(w, http.StatusBadRequest, "documents must not be empty")
		return
	}

	summary, err := s.service.Ingest(r.Context(), req.Documents)
	if err != nil {
		s.logger.WithError(err).Error("ingest failed")
		s.writeError(w, http.StatusServiceUnavailable, "failed to enqueue documents")
		return
	}

	s.writeJSON(w, http.StatusAccepted, summary)
}

type drainRequest struct {
	RetryFailed bool `json:"retry_failed"`
}

func (s *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	var req drainRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	var opts []queue.DrainOption
	if req.RetryFailed {
		opts = append(opts, queue.WithRetryFailed())
	}

	summary, err := s.service.DrainQueue(r.Context(), opts...)
	if err != nil {
		s.logger.WithError(err).Error("drain failed")
		s.writeError(w, http.StatusServiceUnavailable, "failed to drain queue")
		return
	}

	s.writeJSON(w, http.StatusOK, summary)
}

type queryRequest struct {
	Question string               `json:"question"`
	Context  *models.QueryContext `json:"context,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// The service never errors; degraded outcomes arrive through the mode
	// field so the client always gets a well-formed result.
	result := s.service.Query(r.Context(), req.Question, req.Context)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.service.Status(r.Context()))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Message is the WebSocket frame shape in both directions.
type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Data    any    `json:"data,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendMessage(conn, Message{Type: "error", Content: "invalid message"})
			continue
		}

		s.sendMessage(conn, Message{Type: "status", Content: "thinking..."})

		result := s.service.Query(r.Context(), msg.Content, nil)
		s.sendMessage(conn, Message{
			Type:    "response",
			Content: result.Answer,
			Data:    result,
		})
	}
}

func (s *Server) sendMessage(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.WithError(err).Warn("failed to send websocket message")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Warn("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
