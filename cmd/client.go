package cmd

import (
	"context"
	"log"

	"github.com/metal-toolbox/bootline/internal/app"
	"github.com/metal-toolbox/bootline/internal/dispatcher"
	"github.com/metal-toolbox/bootline/internal/model"
	"github.com/metal-toolbox/bootline/internal/registry"
)

// client holds the dispatcher client commands run against the configured providers.
type client struct {
	app        *app.App
	dispatcher *dispatcher.Dispatcher
	providers  *registry.Providers
}

func newClient(ctx context.Context) *client {
	bootline, err := app.New(model.AppKindClient, cfgFile, logLevel())
	if err != nil {
		log.Fatal(err)
	}

	providers, err := registry.New(bootline.Logger).Build(ctx, bootline.Config.Providers)
	if err != nil {
		bootline.Logger.Fatal(err)
	}

	if providers.Store == nil {
		bootline.Logger.Fatal("no inventory store configured")
	}

	// client commands do not publish lifecycle events
	d := dispatcher.New(
		providers,
		dispatcher.Options{
			CompleteStatus:  bootline.Config.Lifecycle.CompleteStatus,
			ProvisionStatus: bootline.Config.Lifecycle.ProvisionStatus,
		},
		nil,
		bootline.Logger,
	)

	return &client{app: bootline, dispatcher: d, providers: providers}
}

func (c *client) close() {
	if err := c.providers.Close(); err != nil {
		c.app.Logger.WithError(err).Warn("inventory store close error")
	}
}
