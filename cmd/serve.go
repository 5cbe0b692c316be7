package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"notion-lite/auth"
	"notion-lite/blocks"
	"notion-lite/cache"
	"notion-lite/common"
	"notion-lite/export"
	"notion-lite/pages"
	"notion-lite/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.SessionSecret == "" {
			return errors.New("SESSION_SECRET environment variable not set")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		renders := cache.New(cfg.CacheDir, cfg.CacheMaxAge)

		if cfg.SweepSchedule != "" {
			c := cron.New()
			if _, err := c.AddFunc(cfg.SweepSchedule, func() {
				if _, _, err := sweep(ctx, s, renders); err != nil {
					log.Error().Err(err).Msg("scheduled sweep failed")
				}
			}); err != nil {
				return err
			}
			c.Start()
			defer c.Stop()
			log.Info().Str("schedule", cfg.SweepSchedule).Msg("sweep scheduled")
		}

		gin.SetMode(cfg.GinMode)
		srv := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           NewRouter(cfg, s, renders),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("port", cfg.Port).Msg("starting server")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// NewRouter assembles the API: logging and recovery, the session store, the open
// auth routes and the page, block and export routes behind RequireUser.
func NewRouter(cfg common.Config, s store.Store, renders *cache.FileCache) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), common.RequestLogger())

	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions("notion-lite-session", sessionStore))

	api := router.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authModule := auth.NewAuthModule(s)
	authModule.RegisterRoutes(api)

	pageService := pages.NewPageService(s)
	blockService := blocks.NewBlockService(s)

	protected := api.Group("")
	protected.Use(authModule.RequireUser)

	pages.NewPagesModule(pageService, renders).RegisterRoutes(protected)
	blocks.NewBlocksModule(blockService).RegisterRoutes(protected)
	export.NewExportModule(pageService, blockService, renders).RegisterRoutes(protected)

	return router
}
