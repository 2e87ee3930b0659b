package cmd

import (
	"context"
	"log"

	"github.com/metal-toolbox/bootline/internal/registry"
	"github.com/metal-toolbox/bootline/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	seedFile string
)

var cmdLoad = &cobra.Command{
	Use:   "load --file inventory.yaml",
	Short: "Load provision zones, servers and their switch ports from a YAML file into the inventory store",
	Run: func(cmd *cobra.Command, _ []string) {
		runLoad(cmd.Context())
	},
}

func runLoad(ctx context.Context) {
	c := newClient(ctx)
	defer c.close()

	entry := c.app.Config.Providers[string(registry.RoleInventoryStore)]
	if entry.Class == store.KindMemory {
		c.app.Logger.Warn("the memory inventory store is not persisted, loaded records are lost on exit")
	}

	seed, err := store.ReadSeed(seedFile)
	if err != nil {
		c.app.Logger.Fatal(err)
	}

	err = store.Apply(ctx, c.providers.Store, seed, c.providers.Formatter)

	c.app.Logger.WithFields(logrus.Fields{
		"file":    seedFile,
		"zones":   len(seed.Zones),
		"servers": len(seed.Servers),
	}).Info("inventory load complete")

	if err != nil {
		c.app.Logger.Fatal(err)
	}
}

func init() {
	cmdLoad.PersistentFlags().StringVar(&seedFile, "file", "", "inventory YAML file")

	if err := cmdLoad.MarkPersistentFlagRequired("file"); err != nil {
		log.Fatal(err)
	}

	rootCmd.AddCommand(cmdLoad)
}
