package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"feedsync/internal/controllers"
	"feedsync/internal/persistence/interfaces"
	"feedsync/internal/providers"
	"feedsync/internal/structures"
	"feedsync/internal/timeline"
	"feedsync/internal/transport"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type App struct {
	WebServer *http.Server
}

// NewApp restores the session, loads both feeds, serves the API and blocks
// until a shutdown signal arrives. A nil stream leaves live updates off.
func NewApp(
	apiController *controllers.ApiController,
	healthController *controllers.HealthController,
	home timeline.FeedReconcilerInterface,
	notifications timeline.NotificationFeedInterface,
	stream transport.StreamClientInterface,
	scheduler interfaces.SchedulerInterface,
	conf *structures.Config,
	logger providers.Logger,
	router providers.RouterProviderInterface,
	metrics providers.MetricsProviderInterface,
) (*App, error) {
	// Inner mux: API routes
	apiMux := http.NewServeMux()
	for _, route := range router.GetRoutes() {
		apiMux.Handle(route.Url, route.Handler)
	}

	// Wrap API routes with metrics middleware
	instrumentedAPI := providers.MetricsMiddleware(metrics, router, apiMux)

	// Outer mux: infrastructure + instrumented API
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthController.Health)
	if conf.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", instrumentedAPI)

	logger.Infof(providers.TypeApp, "Starting %s for %s@%s", conf.AppName, conf.Account.AccountID, conf.Account.Server)
	err := scheduler.Restore()
	if err != nil {
		logger.Errorf(providers.TypeApp, "Restore error: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loadFeeds(ctx, conf, home, notifications, logger)

	if stream != nil {
		go stream.Run(ctx)
	}

	app := &App{
		WebServer: &http.Server{
			Addr:         conf.WebServer.Host + ":" + strconv.Itoa(conf.WebServer.Port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: conf.Feed.Timeout + 10*time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	scheduler.Init()

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof(providers.TypeApp, "Listening HTTP clients on %s:%d", conf.WebServer.Host, conf.WebServer.Port)
		if err := app.WebServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Infof(providers.TypeApp, "Shutdown signal received")
	case err := <-serverErr:
		scheduler.Stop()
		return nil, fmt.Errorf("server error: %w", err)
	}

	cancel()
	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err = app.WebServer.Shutdown(shutdownCtx); err != nil {
		return nil, err
	}
	err = scheduler.Persist()
	if err != nil {
		return nil, err
	}
	logger.Infof(providers.TypeApp, "gracefully stopped")
	return app, nil
}

// loadFeeds issues the first fetch of each feed. A failure is logged and left
// for the client to retry.
func loadFeeds(ctx context.Context, conf *structures.Config, home timeline.FeedReconcilerInterface, notifications timeline.NotificationFeedInterface, logger providers.Logger) {
	fetchCtx, cancel := context.WithTimeout(ctx, conf.Feed.Timeout)
	defer cancel()

	if _, err := home.FetchNewest(fetchCtx, false); err != nil {
		logger.Warnf(providers.TypeApp, "Initial home timeline fetch failed: %s", err)
	}
	if _, err := notifications.FetchNewest(fetchCtx, false); err != nil {
		logger.Warnf(providers.TypeApp, "Initial notifications fetch failed: %s", err)
	}
}
