package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"udpforum/protocol"
	"udpforum/terminal"
)

func main() {
	// Parse command line arguments and environment
	cfg, shouldExit, err := terminal.ParseFlags()
	if err != nil {
		terminal.HandleStartupError(err, "parse command line arguments")
		return
	}

	// Exit if help or version was shown
	if shouldExit {
		return
	}

	// Validate configuration
	if err := terminal.ValidateConfig(cfg); err != nil {
		terminal.HandleStartupError(err, "validate configuration")
		return
	}

	// Create server and stores
	server, err := protocol.NewServer(cfg)
	if err != nil {
		terminal.HandleStartupError(err, "initialize server")
		return
	}

	terminal.PrintStartupInfo(cfg)

	// Shut down cleanly on interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received %v, shutting down...", sig)
		server.Shutdown()
	}()

	if err := server.Start(); err != nil {
		terminal.HandleStartupError(err, "run server")
	}
	log.Printf("Server stopped")
}
