// Package cmd contains the corpusd entry points and process wiring.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/corpusd/corpusd/internal/config"
	"github.com/corpusd/corpusd/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the main entry point for corpusd.
// It handles flag parsing and command routing.
//
// Design: following the pattern of standard Go CLI tools, all application
// logic lives in the cmd package, leaving main.go as a minimal entry point.
func Execute() error {
	// Handle version/help before full initialization so they work even when
	// the configuration is invalid.
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			return printVersionInfo()
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "migrate":
			return executeMigrate()
		case "serve":
			return executeServe()
		default:
			printHelp()
			return fmt.Errorf("unknown command: %s", os.Args[1])
		}
	}

	// serve is the default behavior
	return executeServe()
}

// initLogger initializes the structured logger.
//
// Log level is controlled by the DEBUG environment variable:
//   - DEBUG set (any value): debug level logging
//   - DEBUG not set: info level logging
func initLogger() log.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	return log.New(cfg)
}

// checkRequiredEnv verifies provider credentials are present.
// Gemini reads GEMINI_API_KEY directly inside Genkit; failing here gives a
// readable error instead of a provider failure on the first request.
func checkRequiredEnv(cfg *config.Config) error {
	if cfg.Provider == config.ProviderGemini && os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "The gemini embedding provider requires an API key.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "To set your API key:")
		fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Or switch to a local provider: CORPUSD_PROVIDER=ollama")

		return fmt.Errorf("GEMINI_API_KEY not set")
	}
	return nil
}

// printVersionInfo displays version information.
func printVersionInfo() error {
	fmt.Printf("corpusd v%s\n", AppVersion)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
	return nil
}

// printHelp displays the help message.
func printHelp() {
	fmt.Println("corpusd - multi-tenant vector store and RAG service")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  corpusd              Start the HTTP server (default)")
	fmt.Println("  corpusd serve        Start the HTTP server")
	fmt.Println("  corpusd migrate      Run database migrations and exit")
	fmt.Println("  corpusd --version    Show version information")
	fmt.Println("  corpusd --help       Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY        Required with the gemini provider")
	fmt.Println("  CORPUSD_PROVIDER      Embedding provider: gemini (default) or ollama")
	fmt.Println("  CORPUSD_SERVER_ADDR   HTTP listen address (default 127.0.0.1:8090)")
	fmt.Println("  CORPUSD_SINK_URL      Delivery sink endpoint for RAG payloads")
	fmt.Println("  DATABASE_URL          PostgreSQL connection URL override")
	fmt.Println("  DEBUG                 Enable debug logging")
}
