package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"

	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/search"
	"chat-relay/sink"
	"chat-relay/transport/ws"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so every defer executes before exit.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx := context.Background()

	// 2. Storage (Badger + Bluge, both in memory: the relay holds no
	// state across restarts)
	db, err := badger.Open(buildBadgerOpts(ctx, logger))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	if logger.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available",
			"url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		database.StartDebugServer(db, config.DebugPort, endpoint, MessageMapper)
	}

	// 3. Moderation
	wordlists, err := moderation.DefaultWordlists()
	if err != nil {
		return exitRuntime, fmt.Errorf("loading wordlists: %w", err)
	}
	logger.Info(fmt.Sprintf("Loaded %d censored words", len(wordlists.Words)),
		"languages", wordlists.Languages)

	moderator, err := moderation.NewModerator(wordlists.Words, charReplacement, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("building moderator: %w", err)
	}

	// 4. Relay wiring
	registry := runtime.NewRegistry()
	messageRepository := repositories.NewMessageRepository(db, logger, config.LimitMessages)
	store := runtime.NewRoomStore(messageRepository)
	index := search.NewIndex(blugeWriter, logger)
	timeline := sink.NewTimeline(config.TimelineSize)
	delivery := runtime.NewDelivery(logger, registry, config.SinkTimeout,
		sink.NewSearchSink(index, logger), timeline)
	coordinator := runtime.NewCoordinator(logger, registry, store, delivery,
		&moderator, index, config.BufferSize)

	telemetry := workers.NewTelemetryWorker(logger, []workers.NamedChannel{
		{Name: "commands", Channel: coordinator.Commands()},
	}, config.MetricInterval)

	sup := workers.NewSupervisor(logger)
	sup.Add(coordinator, telemetry)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		logger.Info("Starting supervisor...")
		sup.Run(ctx)
	}()

	// 6. HTTP server with the WebSocket endpoint
	handler := ws.NewHandler(logger, registry, coordinator, ws.Config{
		WriteWait:      config.WriteWait,
		PongWait:       config.PongWait,
		PingInterval:   config.PingInterval,
		MaxMessageSize: config.MaxMessageSize,
		SendBuffer:     config.ConnectionBufferSize,
	})

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.HandleFunc("/debug/timeline", timelineHandler(timeline))

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	srv := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting WebSocket server", "address", address, "at", time.Now().UTC())
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 8. Final Cleanup (Graceful Shutdown)
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	sup.Stop()
	<-supDone
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(ctx context.Context, logger *slog.Logger) badger.Options {
	options := badger.DefaultOptions("").WithInMemory(true)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}

	return options
}

// timelineHandler serves the recent-message projection for quick
// eyeballing during development.
func timelineHandler(timeline *sink.Timeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"total":  timeline.Total(),
			"recent": timeline.Recent(),
		})
	}
}

// MessageMapper renders a stored message row in the Badger inspector.
func MessageMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)

	var stored struct {
		Author string `json:"author"`
		Text   string `json:"text"`
		Lang   string `json:"lang"`
	}
	if err := json.Unmarshal(val, &stored); err != nil {
		row.Detail = "Error: unmarshal failed"
		return row
	}

	row.Type = "MESSAGE"
	row.Detail = fmt.Sprintf("%s: %s", stored.Author, stored.Text)
	return row
}
