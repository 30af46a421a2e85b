// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/animbox/internal/api/connect"
	"github.com/osa030/animbox/internal/app/animator"
	"github.com/osa030/animbox/internal/app/notification"
	"github.com/osa030/animbox/internal/infra/config"
	"github.com/osa030/animbox/internal/infra/logger"
)

var (
	app        = kingpin.New("animbox-server", "animbox spline animation server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-kinds command
	listKindsCmd = app.Command("list-kinds", "List available animation kinds and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listKindsCmd.FullCommand() {
		printKinds()
		return
	}

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	animators, err := animator.NewManagerFromConfig(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to create animator manager")
	}
	defer animators.Close()

	notifications := notification.NewManager()
	defer notifications.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go notification.Forward(ctx, notifications, animators.Events(), apiconnect.EncodeEvent)

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- animators.Run(ctx)
	}()

	service := apiconnect.NewAnimatorService(animators, notifications)
	path, handler := apiconnect.NewAnimatorServiceHandler(
		service,
		connect.WithInterceptors(apiconnect.NewAdminAuthInterceptor(cfg)),
	)

	mux := http.NewServeMux()
	mux.Handle(path, handler)

	serverAddr := cfg.Server.Addr
	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:    serverAddr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s animators=%d tick_rate_hz=%d",
			serverAddr, len(cfg.Animations), cfg.Engine.TickRateHz)
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-runErrCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return errors.Wrap(err, "tick loop stopped")
		}
	case err := <-serverErrCh:
		return errors.Wrap(err, "server error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop ticking and drop watchers first so streaming handlers can return
	cancel()
	animators.Close()
	notifications.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// printKinds prints available animation kinds.
func printKinds() {
	fmt.Println("Available Kinds:")
	for _, k := range animator.Kinds() {
		fmt.Printf("  %-10s - %s\n", k.Name, k.Description)
	}
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
