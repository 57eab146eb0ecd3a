package client

import (
	"context"
	"encoding/base64"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quantum-ratchet/common"
	"quantum-ratchet/configs"
	"quantum-ratchet/protocol/session"
	"quantum-ratchet/server"
	"quantum-ratchet/store"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sharedSecret = base64.StdEncoding.EncodeToString(make([]byte, 32))

func newApp(t *testing.T, addr, user string) *ChatApp {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return NewChatApp(configs.Runtime{
		ServerAddress: addr,
		Username:      user,
		SharedSecret:  sharedSecret,
	}, configs.DefaultProtocol(), logger)
}

func startRelay(t *testing.T) string {
	t.Helper()
	logger, _ := test.NewNullLogger()
	s := server.NewServer(context.Background(), configs.DefaultProtocol(), store.NewMemoryStore(), logger)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return strings.TrimPrefix(ts.URL, "http://")
}

func waitForMessages(t *testing.T, app *ChatApp, want []string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(want, app.Messages())
	}, 2*time.Second, 10*time.Millisecond, "got %v", app.Messages())
}

func TestConversationSurvivesRestart(t *testing.T) {
	addr := startRelay(t)

	alice := newApp(t, addr, "alice")
	require.NoError(t, alice.Start("bob"))
	require.NoError(t, alice.sendMessage("first"))
	require.NoError(t, alice.sendMessage("second"))

	// Bob joins late and reads everything from history.
	bob := newApp(t, addr, "bob")
	require.Eventually(t, func() bool {
		h, err := (&ChatApp{serverAddress: addr, userID: "bob", recipientID: "alice"}).fetchHistory()
		return err == nil && len(h) == 2
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, bob.Start("alice"))
	defer bob.Close()
	assert.Equal(t, []string{"[alice] first", "[alice] second"}, bob.Messages())

	require.NoError(t, bob.sendMessage("reply"))
	waitForMessages(t, alice, []string{"[bob] reply"})
	alice.Close()

	// Alice restarts: her own messages are replayed through the send chain.
	alice = newApp(t, addr, "alice")
	require.NoError(t, alice.Start("bob"))
	defer alice.Close()
	assert.Equal(t, []string{"[You] first", "[You] second", "[bob] reply"}, alice.Messages())

	require.NoError(t, alice.sendMessage("after restart"))
	waitForMessages(t, bob, []string{"[alice] first", "[alice] second", "[alice] after restart"})
}

func TestLiveMessagesBufferedUntilReplay(t *testing.T) {
	cfg := configs.DefaultProtocol()
	peer, err := session.New(cfg, make([]byte, 32), "alice", "bob")
	require.NoError(t, err)

	app := newApp(t, "unused", "bob")
	app.recipientID = "alice"
	app.session, err = session.NewFromEncoded(cfg, sharedSecret, "bob", "alice")
	require.NoError(t, err)

	var history []common.Message
	for i, text := range []string{"one", "two", "three"} {
		ct, err := peer.Encrypt(text)
		require.NoError(t, err)
		history = append(history, common.Message{ID: string(rune('a' + i)), Sender: "alice", Recipient: "bob", Message: ct})
	}

	// "c" raced in live and is also in the stored history; "d" is new.
	ct, err := peer.Encrypt("four")
	require.NoError(t, err)
	app.receive(history[2])
	app.receive(common.Message{ID: "d", Sender: "alice", Recipient: "bob", Message: ct})
	assert.Empty(t, app.Messages())

	require.NoError(t, app.replay(history))
	assert.Equal(t, []string{"[alice] one", "[alice] two", "[alice] three", "[alice] four"}, app.Messages())

	// Replay is one-shot for a session.
	assert.ErrorIs(t, app.replay(history), session.ErrReplayStateMismatch)
}

func TestStartWithoutSecret(t *testing.T) {
	logger, _ := test.NewNullLogger()
	app := NewChatApp(configs.Runtime{Username: "alice"}, configs.DefaultProtocol(), logger)
	err := app.Start("bob")
	assert.ErrorIs(t, err, session.ErrSessionUnavailable)

	assert.ErrorIs(t, app.sendMessage("x"), ErrNotConnected)
}

func TestFailedSendRequiresResync(t *testing.T) {
	addr := startRelay(t)

	alice := newApp(t, addr, "alice")
	require.NoError(t, alice.Start("bob"))
	defer alice.Close()

	require.NoError(t, alice.wsConn.UnderlyingConn().Close())

	err := alice.sendMessage("lost")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResyncRequired)
	send, _ := alice.session.Steps()
	assert.Equal(t, uint64(1), send)

	// Later sends refuse to burn more keys the peer will never see.
	assert.ErrorIs(t, alice.sendMessage("also lost"), ErrResyncRequired)
	send, _ = alice.session.Steps()
	assert.Equal(t, uint64(1), send)
}
