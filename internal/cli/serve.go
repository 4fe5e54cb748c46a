package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/bjarke-xyz/fmh/internal/api"
	"github.com/bjarke-xyz/fmh/internal/app"
	"github.com/bjarke-xyz/fmh/internal/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP api and run the news refresh job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			appContext, closeApp, err := opts.openApp()
			if err != nil {
				return err
			}
			defer closeApp()
			cfg := appContext.Config

			services, err := app.Initialise(ctx, appContext)
			if err != nil {
				return err
			}
			defer app.Dispose(appContext, services)

			runMetricsServer(cfg.MetricsAddr)

			r := ginRouter(cfg)
			api.NewAPI(appContext, services.News, services.NewsLock, services.JobManager).Route(r)
			services.JobManager.Start()

			srv := &http.Server{
				Addr:    fmt.Sprintf(":%v", cfg.Port),
				Handler: r,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					log.Printf("error shutting down: %v", err)
				}
			}()
			log.Printf("Listening on http://localhost:%v", cfg.Port)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().Int("port", 0, "HTTP port (default $PORT or 8080)")
	_ = opts.viper.BindPFlag("port", cmd.Flags().Lookup("port"))
	return cmd
}

func ginRouter(cfg *config.Config) *gin.Engine {
	if cfg.AppEnv == config.AppEnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(cors.Default())
	r.SetTrustedProxies(nil)
	if cfg.AppEnv == config.AppEnvProduction {
		r.TrustedPlatform = gin.PlatformCloudflare
	}
	return r
}

func runMetricsServer(addr string) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()
}
