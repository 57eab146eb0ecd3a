package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"quantum-ratchet/common"
	"quantum-ratchet/configs"
)

func (app *ChatApp) fetchHistory() ([]common.Message, error) {
	serverURL := fmt.Sprintf("http://%s%s/%s/%s", app.serverAddress, configs.HistoryPath, app.userID, app.recipientID)

	resp, err := http.Get(serverURL)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned non-OK status: %v", resp.Status)
	}

	var history []common.Message
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return history, nil
}

// replay decrypts the stored conversation, then drains live messages that
// arrived meanwhile and are not part of it.
func (app *ChatApp) replay(history []common.Message) error {
	plain, err := app.session.DecryptHistory(history)
	if err != nil {
		return fmt.Errorf("failed to replay history: %w", err)
	}

	app.messageLock.Lock()
	for _, msg := range plain {
		if msg.ID != "" {
			app.seen[msg.ID] = struct{}{}
		}
		app.messages = append(app.messages, app.format(msg.Sender, msg.Message))
	}
	for _, msg := range app.pending {
		app.handleLive(msg)
	}
	app.pending = nil
	app.ready = true
	app.messageLock.Unlock()

	app.logger.Infof("Replayed %d messages with %s", len(plain), app.recipientID)
	app.refresh()
	return nil
}

// handleLive renders one live message. The caller holds messageLock.
func (app *ChatApp) handleLive(msg common.Message) {
	if msg.ID != "" {
		if _, dup := app.seen[msg.ID]; dup {
			return
		}
		app.seen[msg.ID] = struct{}{}
	}

	text := msg.Message
	if app.cfg.IsEncrypted(text) {
		plaintext, err := app.session.Decrypt(text)
		if err != nil {
			app.logger.Errorf("Error decrypting message %s: %v", msg.ID, err)
			plaintext = app.cfg.FailurePlaceholder
		}
		text = plaintext
	}
	app.messages = append(app.messages, app.format(msg.Sender, text))
}

func (app *ChatApp) format(sender, text string) string {
	if strings.EqualFold(sender, app.userID) {
		return "[You] " + text
	}
	return fmt.Sprintf("[%s] %s", sender, text)
}
