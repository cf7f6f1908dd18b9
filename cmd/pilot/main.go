// Package main provides the Pilot planning server. It turns natural language
// goals plus page snapshots into ordered browser action plans over HTTP,
// degrading to the rule-based strategy whenever a model provider fails.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/entrhq/pilot/pkg/config"
	"github.com/entrhq/pilot/pkg/logging"
	"github.com/entrhq/pilot/pkg/orchestrator"
	"github.com/entrhq/pilot/pkg/planner/factory"
	"github.com/entrhq/pilot/pkg/server"
	"github.com/entrhq/pilot/pkg/types"
)

const (
	version = "0.1.0"

	shutdownTimeout = 10 * time.Second
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile  string
	Host        string
	Port        int
	Provider    string
	ShowVersion bool
}

func main() {
	cliConfig := parseFlags()

	if cliConfig.ShowVersion {
		fmt.Printf("Pilot v%s\n", version)
		return
	}

	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, cliConfig); err != nil {
		cancel()
		log.Printf("Server failed: %v", err)
		os.Exit(1)
	}
	cancel()
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	cliConfig := &CLIConfig{}

	flag.StringVar(&cliConfig.ConfigFile, "config", "", "Path to configuration file (YAML)")
	flag.StringVar(&cliConfig.Host, "host", "", "Listen host (overrides config)")
	flag.IntVar(&cliConfig.Port, "port", 0, "Listen port (overrides config)")
	flag.StringVar(&cliConfig.Provider, "provider", "", "Default planning provider (overrides config)")
	flag.BoolVar(&cliConfig.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Pilot - Browser Automation Planning Server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: pilot [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Run with defaults (rule-based planning, port 8765)\n")
		fmt.Fprintf(os.Stderr, "  pilot\n\n")
		fmt.Fprintf(os.Stderr, "  # Run with a config file\n")
		fmt.Fprintf(os.Stderr, "  pilot -config pilot.yaml\n\n")
		fmt.Fprintf(os.Stderr, "  # Default to OpenAI planning\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY=sk-... pilot -provider openai\n\n")
	}

	flag.Parse()
	return cliConfig
}

// run loads configuration, wires the planning stack, and serves until the
// context is cancelled.
func run(ctx context.Context, cliConfig *CLIConfig) error {
	settings, err := config.Load(cliConfig.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// CLI args override config file and environment.
	if cliConfig.Host != "" {
		settings.Server.Host = cliConfig.Host
	}
	if cliConfig.Port != 0 {
		settings.Server.Port = cliConfig.Port
	}
	if cliConfig.Provider != "" {
		provider := types.Provider(cliConfig.Provider)
		if !provider.Valid() {
			return fmt.Errorf("invalid provider: %q (must be one of %v)", cliConfig.Provider, types.Providers())
		}
		settings.DefaultProvider = provider
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.NewLogger("pilot")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	planners := factory.New(settings)
	orch := orchestrator.New(planners, settings, logger)

	srv, err := server.New(orch, settings.Server, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	addr := net.JoinHostPort(settings.Server.Host, strconv.Itoa(settings.Server.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Printf("Pilot v%s listening on %s (default provider: %s)", version, addr, settings.DefaultProvider)
		logger.Infof("listening on %s, default provider %s, log file %s", addr, settings.DefaultProvider, logger.LogPath())
		errChan <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Infof("server stopped")
	log.Printf("Server stopped")
	return nil
}
