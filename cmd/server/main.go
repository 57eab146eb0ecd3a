package main

import (
	"context"
	"net/http"

	"quantum-ratchet/configs"
	"quantum-ratchet/server"
	"quantum-ratchet/store"

	"github.com/sirupsen/logrus"
)

var (
	logger = logrus.New()
)

// Main function to start the server
func main() {
	rt := configs.LoadRuntime(".env")
	logger.SetLevel(rt.LogLevel)

	ctx := context.Background()
	historyStore, err := store.Open(ctx, rt)
	if err != nil {
		logger.Fatalf("Error opening %s store: %v", rt.StoreBackend, err)
	}

	s := server.NewServer(ctx, configs.DefaultProtocol(), historyStore, logger)
	defer s.Close()

	logger.Infof("Relay running on ws://%s%s with %s store", rt.ServerAddress, configs.WebSocketPath, rt.StoreBackend)
	if err := http.ListenAndServe(rt.ServerAddress, s.Router()); err != nil {
		logger.Errorf("Error starting server: %v", err)
	}

	logger.Info("Closing server...")
}
