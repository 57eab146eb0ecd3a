package main

import (
	"errors"
	"fmt"
	"os"

	"quantum-ratchet/client"
	"quantum-ratchet/configs"

	"github.com/jroimartin/gocui"
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go <userID> [peerID]")
		return
	}
	userID := os.Args[1]

	// .env.<user> lets two local users share one checkout.
	rt := configs.LoadRuntime(".env."+userID, ".env")
	rt.Username = userID
	if len(os.Args) > 2 {
		rt.Peer = os.Args[2]
	}
	if rt.SharedSecret == "" {
		fmt.Println("RATCHET_SHARED_SECRET is not set; run ratchetctl encapsulate/decapsulate first")
		return
	}

	// The TUI owns the terminal.
	logFile, err := os.OpenFile("client-"+userID+".log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		fmt.Printf("Failed to open log file: %v\n", err)
		return
	}
	defer logFile.Close()
	logger.SetOutput(logFile)
	logger.SetLevel(rt.LogLevel)

	chatApp := client.NewChatApp(rt, configs.DefaultProtocol(), logger)

	if err := chatApp.InitGui(); err != nil {
		logger.Fatalf("Error initializing gocui interface: %v", err)
	}
	defer chatApp.Gui.Close()

	if err := chatApp.PromptRecipientID(); err != nil {
		logger.Fatalf("Error prompting recipient ID: %v", err)
	}

	if err := chatApp.Gui.MainLoop(); err != nil && !errors.Is(err, gocui.ErrQuit) {
		logger.Fatalf("Error in gocui main loop: %v", err)
	}

	logger.Info("Application exited.")
}
