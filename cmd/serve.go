package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/killallgit/podcast-player/api"
	"github.com/killallgit/podcast-player/api/types"
	"github.com/killallgit/podcast-player/internal/database"
	"github.com/killallgit/podcast-player/internal/models"
	"github.com/killallgit/podcast-player/internal/services/auth"
	"github.com/killallgit/podcast-player/pkg/config"
	"github.com/spf13/cobra"
)

var (
	serverHost   string
	serverPort   int
	databasePath string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Podcast Player API server",
	Long: `Start the Podcast Player API server with the configured settings.

The server proxies audio for offline downloads, records plays and
answers subscription lookups for signed-in listeners.

Example:
  podcast-player serve
  podcast-player serve --port 9090
  podcast-player serve --host 0.0.0.0 --port 8080`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
	serveCmd.Flags().StringVar(&databasePath, "database", "", "database path (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}
	if databasePath != "" {
		cfg.Database.Path = databasePath
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(&models.Play{}, &models.Profile{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	validator, err := newTokenValidator(ctx, cfg.Auth)
	if err != nil {
		return err
	}

	deps := &types.Dependencies{
		DB:      db,
		Version: Version,
	}
	// a nil *auth.Service must not end up in the interface
	if validator != nil {
		deps.Auth = validator
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := api.NewServer(addr, cfg.Server, cfg.Security)
	server.SetDependencies(deps)
	if err := server.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server error: %w", err)
		}
	}()

	log.Printf("[INFO] Podcast Player API listening on %s", addr)

	var runErr error
	select {
	case <-ctx.Done():
		log.Println("[INFO] Shutting down server...")
	case runErr = <-serverErr:
		log.Printf("[ERROR] %v", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERROR] Server forced to shutdown: %v", err)
		return err
	}

	log.Println("[INFO] Server gracefully stopped")
	return runErr
}

// newTokenValidator builds the auth service from config. It returns nil
// when neither a JWKS URL nor a dev token is configured, which leaves the
// authenticated routes unregistered.
func newTokenValidator(ctx context.Context, settings config.AuthConfig) (*auth.Service, error) {
	devToken := ""
	if settings.DevAuthEnabled {
		devToken = settings.DevAuthToken
	}

	switch {
	case settings.JWKSURL != "":
		service, err := auth.NewService(ctx, settings.JWKSURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize auth: %w", err)
		}
		if devToken != "" {
			log.Println("[WARN] Development auth token is enabled")
			service.SetDevAuth(true, devToken)
		}
		return service, nil
	case devToken != "":
		log.Println("[WARN] No JWKS URL configured, only the development token is accepted")
		return auth.NewDevService(devToken), nil
	default:
		log.Println("[WARN] Auth is not configured, subscription routes are disabled")
		return nil, nil
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
