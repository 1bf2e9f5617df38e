// Package main provides the player server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/melodeck/internal/api/connect"
	"github.com/osa030/melodeck/internal/api/playerv1"
	"github.com/osa030/melodeck/internal/app/session"
	"github.com/osa030/melodeck/internal/app/upload"
	"github.com/osa030/melodeck/internal/infra/catalog"
	"github.com/osa030/melodeck/internal/infra/config"
	"github.com/osa030/melodeck/internal/infra/logger"
	"github.com/osa030/melodeck/internal/infra/media"
	"github.com/osa030/melodeck/internal/infra/spotify"
)

var (
	app        = kingpin.New("melodeck-server", "melodeck music player server")
	configPath = app.Flag("config", "Path to config file").Default("config/player.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()
	addr       = app.Flag("addr", "Listen address (overrides config)").String()

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available upload filters and exit")
)

func init() {
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	opts := logger.Options{Level: "info", File: *logfile}
	if *verbose {
		opts.Level = "debug"
	}
	closer, err := logger.Init(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		closer.Close()
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	if cfg.Media.Type == "speaker" && !media.AudioAvailable {
		zlog.Warn().Msg("audio output is not available in this build, using silent media")
		cfg.Media = config.MediaConfig{Type: "silent"}
	}
	res, err := media.New(cfg.Media)
	if err != nil {
		return errors.Wrap(err, "failed to create media resource")
	}
	defer res.Close()

	catalogClient, err := catalog.New(catalog.Config{
		BaseURL:       cfg.Catalog.BaseURL,
		Timeout:       cfg.Catalog.Timeout(),
		UploadTimeout: cfg.Catalog.UploadTimeout(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create catalog client")
	}

	var importer session.Importer
	if cfg.Spotify.Enabled() {
		spotifyClient, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create Spotify client")
		}
		importer = spotifyClient
		zlog.Info().Msgf("Spotify import enabled: market=%s", cfg.Spotify.Market)
	}

	sessionMgr, err := session.NewManager(cfg, catalogClient, res, importer)
	if err != nil {
		return errors.Wrap(err, "failed to create session manager")
	}
	defer sessionMgr.Close()

	if cfg.Server.ControlToken == "" {
		zlog.Warn().Msg("control_token is not set, anyone can control playback")
	}

	mux := http.NewServeMux()
	path, handler := playerv1.NewPlayerServiceHandler(
		apiconnect.NewPlayerService(sessionMgr),
		connect.WithInterceptors(apiconnect.NewControlAuthInterceptor(cfg)),
	)
	mux.Handle(path, handler)

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)

	go func() {
		if err := sessionMgr.Start(ctx); err != nil {
			zlog.Warn().Msgf("Catalog unavailable at startup: %v", err)
		}
	}()

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return errors.Wrap(err, "server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close the session first so Subscribe streams return.
	sessionMgr.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}

// printFilters prints available upload filters.
func printFilters() {
	fmt.Println("Available Upload Filters:")
	registry := upload.GetRegistered()
	for _, name := range upload.RegisteredNames() {
		f := registry[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-20s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}
