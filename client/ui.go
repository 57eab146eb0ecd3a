package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jroimartin/gocui"
)

// InitGui initializes the gocui screen
func (app *ChatApp) InitGui() error {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return fmt.Errorf("failed to initialize gocui: %w", err)
	}
	app.Gui = g
	g.SetManagerFunc(app.layout)

	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, app.quit); err != nil {
		return err
	}
	return nil
}

// PromptRecipientID prompts for the recipient unless one is configured,
// then starts the conversation.
func (app *ChatApp) PromptRecipientID() error {
	if app.recipientID != "" {
		return app.startChat(app.recipientID)
	}
	return app.Gui.SetKeybinding("prompt", gocui.KeyEnter, gocui.ModNone, func(g *gocui.Gui, v *gocui.View) error {
		recipientID := strings.TrimSpace(v.Buffer())
		if recipientID == "" {
			return nil
		}
		g.DeleteView("prompt")
		return app.startChat(recipientID)
	})
}

func (app *ChatApp) startChat(recipientID string) error {
	if err := app.Gui.SetKeybinding("input", gocui.KeyEnter, gocui.ModNone, app.SendMessageHandler); err != nil {
		return fmt.Errorf("error setting keybinding for input: %w", err)
	}
	if err := app.Start(recipientID); err != nil {
		return fmt.Errorf("error starting chat with %s: %w", recipientID, err)
	}
	return nil
}

// UpdateMessages updates the message view
func (app *ChatApp) UpdateMessages(g *gocui.Gui) error {
	v, err := g.View("messages")
	if errors.Is(err, gocui.ErrUnknownView) {
		// Not laid out yet; layout renders the messages once it is.
		return nil
	}
	if err != nil {
		return err
	}
	v.Clear()
	for _, msg := range app.Messages() {
		fmt.Fprintln(v, msg)
	}
	return nil
}

// SendMessageHandler handles sending messages on Enter press
func (app *ChatApp) SendMessageHandler(g *gocui.Gui, v *gocui.View) error {
	message := strings.TrimSpace(v.Buffer())
	if message == "" {
		return nil
	}
	if err := app.sendMessage(message); err != nil {
		app.logger.Errorf("Error sending message: %v", err)
		return nil
	}

	app.messageLock.Lock()
	app.messages = append(app.messages, app.format(app.userID, message))
	app.messageLock.Unlock()
	v.Clear()
	v.SetCursor(0, 0)
	return app.UpdateMessages(g)
}

// Layout function for the UI
func (app *ChatApp) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	if app.session == nil && app.recipientID == "" {
		if v, err := g.SetView("prompt", maxX/4, maxY/4, 3*maxX/4, maxY/2); err != nil {
			if !errors.Is(err, gocui.ErrUnknownView) {
				return err
			}
			v.Title = "Enter recipient ID"
			v.Editable = true
			v.Wrap = true
			g.SetCurrentView("prompt")
		}
		return nil
	}

	if v, err := g.SetView("messages", 0, 0, maxX-1, maxY-5); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Title = "Chat with " + app.recipientID
		v.Autoscroll = true
		v.Wrap = true
		app.UpdateMessages(g)
	}

	if v, err := g.SetView("input", 0, maxY-4, maxX-1, maxY-2); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Title = "Type a message"
		v.Editable = true
		v.Wrap = true
		g.SetCurrentView("input")
	}

	return nil
}
