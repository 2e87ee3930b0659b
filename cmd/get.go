package cmd

import (
	"context"
	"net/url"
	"strconv"

	"github.com/davecgh/go-spew/spew"
	"github.com/metal-toolbox/bootline/internal/dispatcher"
	"github.com/metal-toolbox/bootline/internal/model"
	"github.com/spf13/cobra"
)

var cmdGet = &cobra.Command{
	Use:   "get",
	Short: "get resources [server]",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// command get server
type getServerFlags struct {
	number     int64
	mac        string
	switchName string
	switchPort string
	hostname   string
}

var (
	getServerFlagSet = &getServerFlags{}
)

var cmdGetServer = &cobra.Command{
	Use:   "server --number|--mac|--switch-name --switch-port|--hostname",
	Short: "Get a server record from the inventory store",
	Run: func(cmd *cobra.Command, args []string) {
		getServer(cmd.Context())
	},
}

func getServer(ctx context.Context) {
	c := newClient(ctx)
	defer c.close()

	var (
		server *model.ServerRecord
		zone   *model.ProvisionZone
		err    error
	)

	if getServerFlagSet.hostname != "" {
		server, err = c.dispatcher.ServerByHostname(ctx, getServerFlagSet.hostname)
	} else {
		params := url.Values{}

		if getServerFlagSet.number != 0 {
			params.Set(dispatcher.ParamNumber, strconv.FormatInt(getServerFlagSet.number, 10))
		}

		params.Set(dispatcher.ParamMAC, getServerFlagSet.mac)
		params.Set(dispatcher.ParamSwitchName, getServerFlagSet.switchName)
		params.Set(dispatcher.ParamSwitchPort, getServerFlagSet.switchPort)

		server, zone, err = c.dispatcher.Resolve(ctx, params)
	}

	if err != nil {
		c.app.Logger.Fatal(err)
	}

	spew.Dump(server)

	if zone != nil {
		spew.Dump(zone)
	}
}

func init() {
	rootCmd.AddCommand(cmdGet)

	cmdGetServer.PersistentFlags().Int64Var(&getServerFlagSet.number, "number", 0, "server number")
	cmdGetServer.PersistentFlags().StringVar(&getServerFlagSet.mac, "mac", "", "server primary MAC address")
	cmdGetServer.PersistentFlags().StringVar(&getServerFlagSet.switchName, "switch-name", "", "name of the switch the server is connected to")
	cmdGetServer.PersistentFlags().StringVar(&getServerFlagSet.switchPort, "switch-port", "", "switch port the server is connected to")
	cmdGetServer.PersistentFlags().StringVar(&getServerFlagSet.hostname, "hostname", "", "server hostname")

	cmdGetServer.MarkFlagsRequiredTogether("switch-name", "switch-port")
	cmdGetServer.MarkFlagsOneRequired("number", "mac", "switch-name", "hostname")

	cmdGet.AddCommand(cmdGetServer)
}
