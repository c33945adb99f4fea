package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"culinary/internal/api"
	"culinary/internal/config"
	"culinary/internal/favorites"
	"culinary/internal/logging"
	"culinary/internal/platform/mealdb"
	"culinary/internal/search"
	"culinary/internal/storage"
	"culinary/internal/thumbnail"
)

// app holds the state shared by all commands of one invocation.
type app struct {
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "recipes",
		Short: "Recipe discovery over TheMealDB with a personal favorites list",
		Long: `recipes searches TheMealDB by name, ingredient or category, shows recipe
details and keeps a list of favorite recipes that survives restarts.

Run "recipes serve" to start the HTTP API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		a.serveCmd(),
		a.searchCmd(),
		a.showCmd(),
		a.randomCmd(),
		a.categoriesCmd(),
		a.favoritesCmd(),
	)
	return rootCmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) mealDB() *mealdb.Client {
	return mealdb.NewClient(a.cfg.MealDB.BaseURL, a.cfg.MealDBTimeout())
}

// openFavorites opens the configured slot and loads the favorites from it.
// The caller closes the returned slot.
func (a *app) openFavorites(ctx context.Context) (*favorites.Store, storage.Slot, error) {
	slot, err := storage.Open(a.cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening favorites storage: %w", err)
	}
	return favorites.Open(ctx, slot, a.logger), slot, nil
}

func (a *app) serveCmd() *cobra.Command {
	var ephemeral bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ephemeral {
				a.cfg.Storage.Driver = "memory"
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "keep favorites in memory only")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	store, slot, err := a.openFavorites(ctx)
	if err != nil {
		return err
	}
	defer slot.Close()

	client := a.mealDB()
	handler := api.NewHandler(
		client,
		search.NewSearcher(client, a.logger),
		store,
		thumbnail.NewService(client, a.cfg.Thumbnail.CacheDir, a.cfg.Thumbnail.DefaultWidth, a.logger),
		a.logger,
	)
	handler.Timeout = a.cfg.RequestTimeout()

	if !a.verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:    a.cfg.Server.Addr,
		Handler: api.NewRouter(handler, a.cfg.Server.CORSOrigins),
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("recipe API listening",
			zap.String("addr", a.cfg.Server.Addr),
			zap.String("storage", a.cfg.Storage.Driver),
			zap.Int("favorites", store.Len()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
	case <-ctx.Done():
	}
	a.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.logger.Info("server exiting")
	return nil
}
