package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/likesorter/internal/services"
	"github.com/desertthunder/likesorter/internal/tasks"
	"github.com/desertthunder/likesorter/internal/web"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds how long in-flight requests get after an interrupt.
const shutdownTimeout = 10 * time.Second

// Serve runs the web dashboard until ctx is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := int(cmd.Int("port")); port > 0 {
		cfg.Port = port
	}

	auth, err := services.NewSpotifyAuth(r.config.Credentials.Spotify)
	if err != nil {
		return fmt.Errorf("failed to configure Spotify OAuth: %w", err)
	}

	opts := []web.Option{
		web.WithEngineOptions(append(tasks.OptionsFromConfig(r.config.Sync), tasks.WithLogger(r.logger))...),
		web.WithSecureCookies(cfg.SecureCookies()),
		web.WithLogger(r.logger),
	}
	if r.config.Playback.Volume > 0 {
		opts = append(opts, web.WithPlayerSettings(web.PlayerSettings{
			Name:   "Spotify Like Sorter Web Player",
			Volume: r.config.Playback.Volume,
		}))
	}
	if repo, err := r.activity(); err != nil {
		r.logger.Warn("activity journal unavailable", "err", err)
	} else {
		opts = append(opts, web.WithActivity(repo))
	}

	factory := services.NewClientFactory(r.httpClient.Transport, services.WithClientLogger(r.logger))
	dashboard := web.New(auth, web.FactoryClients(factory), opts...)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           dashboard.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.logger.Info("dashboard listening", "addr", srv.Addr, "tls", cfg.TLS(), "secure_cookies", cfg.SecureCookies())
		var err error
		if cfg.TLS() {
			err = srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		r.logger.Info("shutting down dashboard")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
