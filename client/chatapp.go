package client

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"quantum-ratchet/common"
	"quantum-ratchet/configs"
	"quantum-ratchet/protocol/session"

	"github.com/gorilla/websocket"
	"github.com/jroimartin/gocui"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotConnected = errors.New("WebSocket connection not established")
	// ErrResyncRequired follows a failed send: the message consumed a send
	// key the peer will never see, so the chat must restart and replay.
	ErrResyncRequired = errors.New("send chain out of step with the relay; reconnect to resync")
)

type ChatApp struct {
	Gui         *gocui.Gui
	recipientID string
	messages    []string
	wsConn      *websocket.Conn
	writeLock   sync.Mutex // also orders Encrypt with the write
	broken      bool
	messageLock sync.Mutex
	userID      string
	wg          sync.WaitGroup
	logger      *logrus.Logger

	serverAddress string
	sharedSecret  string
	cfg           configs.Protocol

	// Live messages are held back until the history has been replayed.
	session *session.Session
	ready   bool
	pending []common.Message
	seen    map[string]struct{}
}

// NewChatApp initializes a new ChatApp for rt.Username. The session is
// created once the recipient is known.
func NewChatApp(rt configs.Runtime, cfg configs.Protocol, logger *logrus.Logger) *ChatApp {
	return &ChatApp{
		userID:        strings.ToLower(rt.Username),
		recipientID:   strings.ToLower(rt.Peer),
		serverAddress: rt.ServerAddress,
		sharedSecret:  rt.SharedSecret,
		cfg:           cfg,
		logger:        logger,
		seen:          make(map[string]struct{}),
	}
}

// Start opens the conversation with recipientID: it builds the session,
// connects to the relay, replays the stored history and then switches to
// live traffic.
func (app *ChatApp) Start(recipientID string) error {
	app.recipientID = strings.ToLower(strings.TrimSpace(recipientID))

	s, err := session.NewFromEncoded(app.cfg, app.sharedSecret, app.userID, app.recipientID, session.WithLogger(app.logger))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	app.session = s

	// Connect first so nothing sent while the history loads is missed.
	if err := app.connectToWebSocket(); err != nil {
		return err
	}

	history, err := app.fetchHistory()
	if err != nil {
		return err
	}
	return app.replay(history)
}

// connectToWebSocket connects to the WebSocket server.
// Already has recipientID set.
func (app *ChatApp) connectToWebSocket() error {
	serverUrl := fmt.Sprintf("ws://%s%s?from=%s&to=%s", app.serverAddress, configs.WebSocketPath, app.userID, app.recipientID)
	conn, _, err := websocket.DefaultDialer.Dial(serverUrl, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to WebSocket server: %w", err)
	}
	app.wsConn = conn

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.listenForMessages()
	}()

	return nil
}

// listenForMessages listens for incoming WebSocket messages
func (app *ChatApp) listenForMessages() {
	for {
		var msg common.Message
		if err := app.wsConn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				app.logger.Errorf("Error reading message: %v", err)
			}
			return
		}
		app.receive(msg)
	}
}

func (app *ChatApp) receive(msg common.Message) {
	app.messageLock.Lock()
	if !app.ready {
		app.pending = append(app.pending, msg)
		app.messageLock.Unlock()
		return
	}
	app.handleLive(msg)
	app.messageLock.Unlock()

	app.refresh()
}

// sendMessage encrypts message and sends it to the WebSocket server
func (app *ChatApp) sendMessage(message string) error {
	if app.wsConn == nil || app.session == nil {
		return ErrNotConnected
	}

	app.writeLock.Lock()
	defer app.writeLock.Unlock()
	if app.broken {
		return ErrResyncRequired
	}

	ciphertext, err := app.session.Encrypt(message)
	if err != nil {
		return fmt.Errorf("failed to encrypt message: %w", err)
	}
	if err := app.wsConn.WriteJSON(common.Message{Message: ciphertext}); err != nil {
		app.broken = true
		app.logger.Errorf("Send failed after the send key was used; reconnect required: %v", err)
		return fmt.Errorf("failed to send message: %w", errors.Join(err, ErrResyncRequired))
	}
	return nil
}

// Messages returns the rendered conversation.
func (app *ChatApp) Messages() []string {
	app.messageLock.Lock()
	defer app.messageLock.Unlock()
	return append([]string(nil), app.messages...)
}

func (app *ChatApp) refresh() {
	if app.Gui == nil {
		return
	}
	app.Gui.Update(func(g *gocui.Gui) error {
		return app.UpdateMessages(g)
	})
}

// Close disconnects from the relay and wipes the session keys.
func (app *ChatApp) Close() {
	if app.wsConn != nil {
		app.writeLock.Lock()
		app.wsConn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		app.writeLock.Unlock()
		app.wsConn.Close()
	}
	app.wg.Wait()
	if app.session != nil {
		app.session.Wipe()
	}
}

// quit handles quitting the application
func (app *ChatApp) quit(_ *gocui.Gui, _ *gocui.View) error {
	app.logger.Info("Shutting down gracefully...")
	app.Close()
	return gocui.ErrQuit
}
