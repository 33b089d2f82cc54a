package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nzambello/plone-map/internal/config"
	"github.com/nzambello/plone-map/internal/server"
)

var (
	servePort int
	serveData string
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the member dataset over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		cfg.Server.DataPath = firstNonEmpty(serveData, cfg.Server.DataPath)
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		handler, err := newServer(cfg)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		return listenAndServe(ctx, srv)
	},
}

// newServer loads the dataset once and builds the HTTP handler over it.
func newServer(c *config.Config) (http.Handler, error) {
	members, err := loadMembers(c.Server.DataPath)
	if err != nil {
		return nil, eris.Wrap(err, "serve: load dataset")
	}
	zap.L().Info("dataset loaded",
		zap.String("path", c.Server.DataPath),
		zap.Int("members", len(members)),
	)

	s := server.New(members, server.Options{
		ProfilePrefix: c.Scrape.ProfilePrefix,
		CORSOrigins:   c.Server.CORSOrigins,
		Icon:          markerIcon(c.Server.Map),
		Cluster:       c.Server.Map.Cluster,
		ShowTooltip:   c.Server.Map.ShowTooltip,
		ShowPopup:     c.Server.Map.ShowPopup,
	})
	return s.Handler(), nil
}

// listenAndServe runs srv until ctx is cancelled, then shuts it down.
func listenAndServe(ctx context.Context, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "serve: listen")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "serve: shutdown")
	})

	return g.Wait()
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveData, "data", "", "dataset to serve (default from config)")
	rootCmd.AddCommand(serveCmd)
}
