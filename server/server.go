package server

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"quantum-ratchet/common"
	"quantum-ratchet/configs"
	"quantum-ratchet/protocol/codec"
	"quantum-ratchet/store"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Server relays messages between pairs of connected users and keeps every
// relayed message in a HistoryStore. It never holds key material.
type Server struct {
	ctx       context.Context
	cancelCtx context.CancelFunc

	cfg            configs.Protocol
	store          store.HistoryStore
	connectedUsers map[connKey]*conn
	mutex          *sync.Mutex
	logger         *logrus.Logger

	// WebSocket upgrader settings
	upgrader *websocket.Upgrader
}

type connKey struct {
	from string
	to   string
}

// conn serialises writes; gorilla connections allow one writer at a time.
type conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (c *conn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

func NewServer(ctx context.Context, cfg configs.Protocol, historyStore store.HistoryStore, logger *logrus.Logger) *Server {
	ctx, cancelCtx := context.WithCancel(ctx)
	return &Server{
		ctx:            ctx,
		cancelCtx:      cancelCtx,
		cfg:            cfg,
		store:          historyStore,
		connectedUsers: make(map[connKey]*conn),
		mutex:          &sync.Mutex{},
		logger:         logger,
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router wires every endpoint of the relay.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(configs.WebSocketPath, s.HandleConnections)
	r.HandleFunc(configs.HistoryPath+"/{a}/{b}", s.HandleHistory).Methods(http.MethodGet)
	r.HandleFunc(configs.BeaconPath+"/{beacon}", s.HandleBeacon).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	return r
}

// Handle incoming WebSocket connections
func (s *Server) HandleConnections(w http.ResponseWriter, r *http.Request) {
	fromID := strings.ToLower(r.URL.Query().Get("from"))
	toID := strings.ToLower(r.URL.Query().Get("to"))
	if fromID == "" || toID == "" || fromID == toID {
		s.logger.Error("Connection without distinct from and to IDs")
		http.Error(w, "from and to are required", http.StatusBadRequest)
		return
	}

	// Upgrade HTTP request to WebSocket
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorf("Error upgrading to WebSocket: %v", err)
		return
	}
	defer ws.Close()

	c := &conn{ws: ws}
	key := connKey{from: fromID, to: toID}
	s.mutex.Lock()
	if old, ok := s.connectedUsers[key]; ok {
		old.ws.Close()
	}
	s.connectedUsers[key] = c
	s.mutex.Unlock()
	s.logger.Infof("User %s connected, talking to %s", fromID, toID)

	// Listen for incoming messages
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Errorf("Error reading message from user %s: %v", fromID, err)
			}
			break
		}

		var msg common.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Errorf("Invalid message format from user %s: %v", fromID, err)
			continue
		}
		msg.Sender = fromID
		msg.Recipient = toID

		if err := s.handleMessage(&msg); err != nil {
			s.logger.Errorf("Error relaying message from %s to %s: %v", fromID, toID, err)
		}
	}

	// Remove user from connectedUsers map when they disconnect
	s.mutex.Lock()
	if s.connectedUsers[key] == c {
		delete(s.connectedUsers, key)
	}
	s.mutex.Unlock()
	s.logger.Infof("User %s disconnected", fromID)
}

// handleMessage stamps msg, persists it and forwards it to the recipient
// when they are connected to this conversation.
func (s *Server) handleMessage(msg *common.Message) error {
	msg.ID = uuid.NewString()
	msg.Timestamp = time.Now().UnixMilli()
	msg.Beacon = s.beacon(msg.Message)

	if err := s.store.Append(s.ctx, *msg); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"id":     msg.ID,
		"from":   msg.Sender,
		"to":     msg.Recipient,
		"beacon": msg.Beacon,
	}).Info("Message stored")

	s.mutex.Lock()
	recipient, online := s.connectedUsers[connKey{from: msg.Recipient, to: msg.Sender}]
	s.mutex.Unlock()
	if !online {
		return nil
	}
	return recipient.writeJSON(msg)
}

// beacon returns the hex lookup token of an encrypted message. Plaintext
// and malformed envelopes have none.
func (s *Server) beacon(text string) string {
	payload, ok := s.cfg.Unwrap(text)
	if !ok {
		return ""
	}
	envelope, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return ""
	}
	b, err := codec.ExtractBeacon(envelope)
	if err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}

func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	a, b := vars["a"], vars["b"]

	msgs, err := s.store.Conversation(r.Context(), a, b)
	if err != nil {
		s.logger.Errorf("Error retrieving history of %s and %s: %v", a, b, err)
		http.Error(w, "Error retrieving history", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, msgs)
	s.logger.Infof("History of %s and %s retrieved (%d messages)", a, b, len(msgs))
}

func (s *Server) HandleBeacon(w http.ResponseWriter, r *http.Request) {
	beacon := strings.ToLower(mux.Vars(r)["beacon"])

	msg, err := s.store.FindByBeacon(r.Context(), beacon)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "No message with that beacon", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Errorf("Error looking up beacon %s: %v", beacon, err)
		http.Error(w, "Error looking up beacon", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, msg)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Errorf("Error encoding response: %v", err)
	}
}

func (s *Server) Close() {
	s.cancelCtx()
	// Close all WebSocket connections
	s.mutex.Lock()
	for _, c := range s.connectedUsers {
		c.ws.Close()
	}
	s.mutex.Unlock()
	if err := s.store.Close(); err != nil {
		s.logger.Errorf("Error closing store: %v", err)
	}
}
