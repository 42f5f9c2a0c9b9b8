package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nijaru/yt-tutor/handlers"
	"github.com/nijaru/yt-tutor/middleware"
	"github.com/nijaru/yt-tutor/session"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web interface and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(os.Stdout)
			if err != nil {
				return err
			}
			defer rt.closer.Close()
			return rt.serve(cmd.Context())
		},
	}
}

func (rt *runtime) serve(ctx context.Context) error {
	cfg, log := rt.cfg, rt.log

	store, err := session.OpenSQLite(cfg.DBPath, cfg.Session.TTL, session.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Error("Failed to close session store")
		}
	}()

	if _, err := store.PurgeExpired(ctx); err != nil {
		log.WithError(err).Warn("Failed to purge expired sessions")
	}

	h := handlers.New(rt.newTutor(), store, cfg.Session)
	handler := middleware.Chain(
		h.Routes(),
		middleware.Logging(log),
		middleware.Recovery(log),
		middleware.CORS(cfg.CORS),
		middleware.RateLimit(cfg.RateLimit),
		middleware.Timeout(cfg.RequestTimeout),
	)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"port":        cfg.ServerPort,
			"environment": cfg.Environment,
		}).Info("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.Wrapf(err, "listen on :%s", cfg.ServerPort)
		}
		return nil
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server shutdown")
	}
	log.Info("Server stopped")
	return nil
}
