package cmd

import (
	"context"
	"log"
	"time"

	"github.com/equinix-labs/otel-init-go/otelinit"
	"github.com/metal-toolbox/bootline/internal/app"
	"github.com/metal-toolbox/bootline/internal/dispatcher"
	"github.com/metal-toolbox/bootline/internal/events"
	"github.com/metal-toolbox/bootline/internal/metrics"
	"github.com/metal-toolbox/bootline/internal/model"
	"github.com/metal-toolbox/bootline/internal/registry"
	"github.com/metal-toolbox/bootline/internal/release"
	"github.com/metal-toolbox/bootline/internal/server"
	"github.com/metal-toolbox/bootline/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var cmdServe = &cobra.Command{
	Use:   "serve",
	Short: "Run the bootline HTTP service for network boot clients",
	Run: func(cmd *cobra.Command, _ []string) {
		runServe(cmd.Context())
	},
}

// serve command flags
var (
	listenAddress string
)

func runServe(ctx context.Context) {
	bootline, err := app.New(model.AppKindServer, cfgFile, logLevel())
	if err != nil {
		log.Fatal(err)
	}

	if listenAddress != "" {
		bootline.Config.Server.ListenAddress = listenAddress
	}

	ctx, otelShutdown := otelinit.InitOpenTelemetry(ctx, model.AppName)
	defer otelShutdown(ctx)

	ctx, stop := bootline.SignalContext(ctx)
	defer stop()

	version.ExportBuildInfoMetric()

	providers, err := registry.New(bootline.Logger).Build(ctx, bootline.Config.Providers)
	if err != nil {
		bootline.Logger.Fatal(err)
	}

	defer func() {
		if err := providers.Close(); err != nil {
			bootline.Logger.WithError(err).Warn("inventory store close error")
		}
	}()

	publisher := initPublisher(bootline.Config, bootline.Logger)
	defer publisher.Close()

	d := dispatcher.New(
		providers,
		dispatcher.Options{
			CompleteStatus:  bootline.Config.Lifecycle.CompleteStatus,
			ProvisionStatus: bootline.Config.Lifecycle.ProvisionStatus,
		},
		publisher,
		bootline.Logger,
	)

	srv := server.New(bootline.Config.Server, d, bootline.Logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	g.Go(func() error {
		metricsServer := metrics.ListenAndServe(bootline.Config.MetricsAddress)

		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second) // nolint:gomnd // time duration value is clear as is.
		defer cancel()

		return metricsServer.Shutdown(shutdownCtx)
	})

	if refresher, ok := providers.Versions.(release.Refresher); ok {
		g.Go(func() error {
			return refresher.Run(gctx)
		})
	}

	bootline.Logger.WithFields(logrus.Fields{
		"listen_address":  bootline.Config.Server.ListenAddress,
		"metrics_address": bootline.Config.MetricsAddress,
	}).Info("bootline service started")

	if err := g.Wait(); err != nil {
		bootline.Logger.WithError(err).Error("bootline service exited with error")
		return
	}

	bootline.Logger.Info("bootline service stopped")
}

// initPublisher returns the NATS lifecycle publisher when a NATS URL is configured.
func initPublisher(config *app.Configuration, logger *logrus.Logger) events.Publisher {
	if config.Events.URL == "" {
		logger.Info("no events.nats_url configured, lifecycle events are not published")
		return events.NewNoopPublisher()
	}

	publisher, err := events.NewNATSPublisher(config.Events, logger)
	if err != nil {
		logger.Fatal(err)
	}

	return publisher
}

func init() {
	cmdServe.PersistentFlags().StringVar(&listenAddress, "listen-address", "", "HTTP listen address, overrides server.listen_address")

	rootCmd.AddCommand(cmdServe)
}
