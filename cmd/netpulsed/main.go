package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/netpulse/internal/aggregate"
	"codeberg.org/mutker/netpulse/internal/api"
	"codeberg.org/mutker/netpulse/internal/cache"
	"codeberg.org/mutker/netpulse/internal/config"
	"codeberg.org/mutker/netpulse/internal/device"
	"codeberg.org/mutker/netpulse/internal/logger"
	"codeberg.org/mutker/netpulse/internal/pid"
	"codeberg.org/mutker/netpulse/internal/probe"
	"codeberg.org/mutker/netpulse/internal/remediation"
	"codeberg.org/mutker/netpulse/internal/store"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	debug, verbose := cfg.LoggerLevels()
	logger.Init(debug, verbose, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("failed to acquire PID file")
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	sampleStore, err := store.Open(store.Config{DBPath: cfg.Database})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open sample store")
	}
	defer sampleStore.Close()

	cacheSvc, err := cache.NewService(cache.Config{
		Backend:  cfg.Cache.Backend,
		RedisURL: cfg.Cache.RedisURL,
		TTL:      cfg.Cache.TTL(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize result cache")
	}
	defer cacheSvc.Close()

	plug, err := device.NewPlug(device.Config{
		Address:  cfg.Device.Address,
		Username: cfg.Device.Username,
		Password: cfg.Device.Password,
		Name:     cfg.Device.Name,
		Timeout:  cfg.Device.Timeout(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize device transport")
	}

	controller, err := remediation.NewController(plug, sampleStore, remediation.Config{
		Wait:          cfg.Remediation.Wait(),
		RetryAttempts: cfg.Remediation.RetryAttempts,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize remediation controller")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	prober := probe.New(cfg.Probe.Address, cfg.Probe.Timeout())
	watcher := probe.NewWatcher(prober, cfg.Probe.Interval())
	go watcher.Run(ctx)
	go watchOutage(ctx, watcher, controller)
	go warmCache(ctx, sampleStore, cacheSvc)

	handler := api.NewHandler(sampleStore, cacheSvc, controller, watcher)
	if err := serve(ctx, api.NewRouter(handler)); err != nil {
		logger.Error().Err(err).Msg("HTTP server error")
	}
	logger.Info().Msg("Exiting...")
}

func serve(ctx context.Context, handler http.Handler) error {
	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("listen", cfg.Listen).Msg("HTTP server started")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	}
}

// watchOutage triggers an automatic power cycle once connectivity has
// been down past the threshold. At most one automatic attempt fires per
// threshold period so a dead uplink cannot hammer the device.
func watchOutage(ctx context.Context, watcher *probe.Watcher, controller *remediation.Controller) {
	ticker := time.NewTicker(cfg.Probe.Interval())
	defer ticker.Stop()

	var lastAttempt time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if watcher.DownFor() < remediation.OutageThreshold {
				continue
			}
			if time.Since(lastAttempt) < remediation.OutageThreshold {
				continue
			}

			lastAttempt = time.Now()
			if _, err := controller.Run(ctx, remediation.ReasonOutage); err != nil {
				logger.Error().Err(err).Msg("automatic power cycle failed")
			}
		}
	}
}

// warmCache recomputes every window periodically so interactive reads
// rarely pay the compute cost.
func warmCache(ctx context.Context, sampleStore store.Store, cacheSvc *cache.Service) {
	refresh := func() {
		for _, window := range aggregate.Windows() {
			w := window
			_, err := cacheSvc.GetOrCompute(ctx, sampleStore.Identity(), w, func(ctx context.Context) (aggregate.Result, error) {
				samples, err := sampleStore.FetchSamples(ctx)
				if err != nil {
					return aggregate.Result{}, err
				}
				events, err := sampleStore.FetchRemediationEvents(ctx)
				if err != nil {
					return aggregate.Result{}, err
				}

				return aggregate.Aggregate(samples, events, w, time.Now()), nil
			})
			if err != nil {
				logger.Warn().Err(err).Str("window", string(w)).Msg("cache warm failed")
			}
		}
	}

	refresh()

	ticker := time.NewTicker(cfg.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
