package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/metal-toolbox/bootline/internal/model"
	"github.com/spf13/cobra"
)

// set root command
var cmdSet = &cobra.Command{
	Use:   "set",
	Short: "set [boot-status|boot-os|opstatus]",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

type setFieldFlags struct {
	serverNumber string
	value        string
}

var (
	setFieldFlagSet = &setFieldFlags{}
)

// fieldSetter is one of the dispatcher lifecycle mutators.
type fieldSetter func(ctx context.Context, c *client, serverNumber, value string) (model.MutationResult, error)

func newSetCommand(use, short string, fn fieldSetter) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Run: func(cmd *cobra.Command, args []string) {
			runSetField(cmd.Context(), fn)
		},
	}
}

func runSetField(ctx context.Context, fn fieldSetter) {
	c := newClient(ctx)
	defer c.close()

	result, err := fn(ctx, c, setFieldFlagSet.serverNumber, setFieldFlagSet.value)
	if err != nil {
		c.app.Logger.Fatal(err)
	}

	b, err := json.Marshal(result)
	if err != nil {
		c.app.Logger.Fatal(err)
	}

	fmt.Println(string(b))
}

func init() {
	cmdSetBootStatus := newSetCommand("boot-status", "Set the boot status of a server",
		func(ctx context.Context, c *client, serverNumber, value string) (model.MutationResult, error) {
			return c.dispatcher.SetBootStatus(ctx, serverNumber, value)
		},
	)

	cmdSetBootOS := newSetCommand("boot-os", "Set the boot OS of a server",
		func(ctx context.Context, c *client, serverNumber, value string) (model.MutationResult, error) {
			return c.dispatcher.SetBootOS(ctx, serverNumber, value)
		},
	)

	cmdSetOpStatus := newSetCommand("opstatus", "Set the operational status of a server",
		func(ctx context.Context, c *client, serverNumber, value string) (model.MutationResult, error) {
			return c.dispatcher.SetOperationalStatus(ctx, serverNumber, value)
		},
	)

	cmdSet.PersistentFlags().StringVar(&setFieldFlagSet.serverNumber, "server-number", "", "number of the server to update")
	cmdSet.PersistentFlags().StringVar(&setFieldFlagSet.value, "value", "", "value the field is set to")

	for _, name := range []string{"server-number", "value"} {
		if err := cmdSet.MarkPersistentFlagRequired(name); err != nil {
			log.Fatal(err)
		}
	}

	cmdSet.AddCommand(cmdSetBootStatus, cmdSetBootOS, cmdSetOpStatus)

	rootCmd.AddCommand(cmdSet)
}
