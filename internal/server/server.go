// Package server serves a live view of a repository's topological commit log
// over HTTP and WebSocket, re-rendering whenever branch heads move.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rybkr/gittopo/internal/config"
	"github.com/rybkr/gittopo/internal/domain"
	"github.com/rybkr/gittopo/internal/render"
)

const (
	writeWait       = 10 * time.Second
	shutdownTimeout = 5 * time.Second
	broadcastBuffer = 256
)

var upgrader = websocket.Upgrader{
	// The viewer is meant for localhost use; any origin may subscribe.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type MessageType string

const (
	MessageTypeInfo  MessageType = "info"
	MessageTypeLog   MessageType = "log"
	MessageTypeGraph MessageType = "graph"
)

type UpdateMessage struct {
	Type MessageType `json:"type"`
	Data any         `json:"data"`
}

// Repository is what the server reads from on every refresh.
type Repository interface {
	domain.Repository
	domain.CommitReader
	Name() string
	GitDir() string
}

type Info struct {
	Name   string `json:"name"`
	GitDir string `json:"gitDir"`
}

type Server struct {
	repo   Repository
	cfg    config.ServerConfig
	logger *slog.Logger

	wg        sync.WaitGroup
	refreshCh chan struct{}

	mu     sync.RWMutex
	cached struct {
		log   string
		graph *domain.GraphView
		json  []byte
	}

	clientsMu sync.RWMutex
	clients   map[*client]struct{}
	broadcast chan UpdateMessage
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg UpdateMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

func NewServer(repo Repository, cfg config.ServerConfig, logger *slog.Logger) *Server {
	return &Server{
		repo:      repo,
		cfg:       cfg,
		logger:    logger,
		refreshCh: make(chan struct{}, 1),
		clients:   make(map[*client]struct{}),
		broadcast: make(chan UpdateMessage, broadcastBuffer),
	}
}

// Run builds the initial snapshot, then serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if _, err := s.refresh(); err != nil {
		return fmt.Errorf("initial snapshot: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.wg.Wait()
	}()

	s.wg.Add(2)
	go s.handleBroadcast(ctx)
	go s.pollRepo(ctx)

	if err := s.startWatcher(ctx); err != nil {
		s.logger.Warn("filesystem watcher unavailable, relying on polling", "error", err)
	}

	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("serving commit log", "addr", s.cfg.Listen, "repo", s.repo.Name())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		s.closeClients()
		return srv.Shutdown(shutdownCtx)
	}
}

// Handler returns the HTTP routes of the viewer.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/info", s.handleInfo)
	mux.HandleFunc("GET /api/log", s.handleLog)
	mux.HandleFunc("GET /api/graph", s.handleGraph)
	mux.HandleFunc("GET /api/ws", s.handleWebSocket)
	return mux
}

func (s *Server) info() Info {
	return Info{Name: s.repo.Name(), GitDir: s.repo.GitDir()}
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.info()); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.cached.log))
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(s.cached.json)
}

// handleWebSocket registers a client, sends it the current state and keeps it
// until it disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn}

	s.clientsMu.Lock()
	s.clients[c] = struct{}{}
	total := len(s.clients)
	s.clientsMu.Unlock()
	s.logger.Info("websocket client connected", "clients", total)

	s.sendInitialState(c)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.removeClient(c)
}

func (s *Server) sendInitialState(c *client) {
	s.mu.RLock()
	messages := []UpdateMessage{
		{Type: MessageTypeInfo, Data: s.info()},
		{Type: MessageTypeLog, Data: s.cached.log},
		{Type: MessageTypeGraph, Data: s.cached.graph},
	}
	s.mu.RUnlock()

	for _, msg := range messages {
		if err := c.send(msg); err != nil {
			s.logger.Warn("error sending initial state", "error", err)
			return
		}
	}
}

func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	total := len(s.clients)
	s.clientsMu.Unlock()

	if ok {
		c.conn.Close()
		s.logger.Info("websocket client disconnected", "clients", total)
	}
}

func (s *Server) closeClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for c := range s.clients {
		c.conn.Close()
		delete(s.clients, c)
	}
}

// handleBroadcast fans queued updates out to every connected client.
func (s *Server) handleBroadcast(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.broadcast:
			s.clientsMu.RLock()
			targets := make([]*client, 0, len(s.clients))
			for c := range s.clients {
				targets = append(targets, c)
			}
			s.clientsMu.RUnlock()

			for _, c := range targets {
				if err := c.send(msg); err != nil {
					s.logger.Warn("error broadcasting to client", "error", err)
					s.removeClient(c)
				}
			}
		}
	}
}

// broadcastUpdate queues an update without blocking the refresh loop.
func (s *Server) broadcastUpdate(msgType MessageType, data any) {
	select {
	case s.broadcast <- UpdateMessage{Type: msgType, Data: data}:
	default:
		s.logger.Warn("broadcast channel full, dropping message", "type", msgType)
	}
}

// refresh rebuilds the snapshot and broadcasts whatever changed.
func (s *Server) refresh() (changed bool, err error) {
	snap, err := domain.BuildSnapshot(s.repo, s.logger)
	if err != nil {
		return false, err
	}

	var logBuf bytes.Buffer
	if err := snap.WriteLog(&logBuf, render.Options{}); err != nil {
		return false, err
	}
	view, err := snap.View(s.repo)
	if err != nil {
		return false, err
	}
	viewJSON, err := json.Marshal(view)
	if err != nil {
		return false, fmt.Errorf("encoding graph: %w", err)
	}

	logText := logBuf.String()

	s.mu.Lock()
	logChanged := s.cached.log != logText
	graphChanged := !bytes.Equal(s.cached.json, viewJSON)
	s.cached.log = logText
	s.cached.graph = view
	s.cached.json = viewJSON
	s.mu.Unlock()

	if logChanged {
		s.broadcastUpdate(MessageTypeLog, logText)
		s.logger.Debug("commit log changed, broadcasting update")
	}
	if graphChanged {
		s.broadcastUpdate(MessageTypeGraph, view)
		s.logger.Debug("commit graph changed, broadcasting update")
	}
	return logChanged || graphChanged, nil
}
