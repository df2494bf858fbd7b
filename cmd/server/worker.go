package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/event-ticketing/internal/metrics"
	"github.com/iliyamo/event-ticketing/internal/notify"
	"github.com/iliyamo/event-ticketing/internal/queue"
)

func notifyWorkerCommand() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "notify-worker",
		Short: "consume registration.confirmed and send confirmation emails",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), metricsAddr)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9102", "address serving /metrics (empty disables)")
	return cmd
}

func runWorker(parent context.Context, metricsAddr string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	w := queue.NewWorker(cfg.RabbitMQURL, notify.NewSMTPNotifier(cfg.SMTP), log)
	w.OnResult = func(err error) {
		m.Notifications.WithLabelValues(metrics.Result(err)).Inc()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("notify-worker started", zap.String("queue", queue.RegistrationQueue))
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}
