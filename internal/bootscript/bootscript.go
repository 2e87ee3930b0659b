package bootscript

import (
	"context"
	"time"

	"github.com/metal-toolbox/bootline/internal/model"
	"github.com/pkg/errors"
)

const (
	pkgName = "internal/bootscript"

	// Namespace is the provider namespace boot script generator classes are registered under.
	Namespace = "bootscript"

	KindIPXE = "ipxe"

	// TimestampLayout is the layout of the generated timestamp in boot scripts.
	TimestampLayout = "Mon, 02 Jan 2006 15:04:05 +0000"
)

var (
	ErrNoServer = errors.New("no server record to render")
	ErrTemplate = errors.New("boot script template error")
)

// Request carries the request parameters passed through to the boot script.
type Request struct {
	// TerraformIP is the address of the provisioning controller, optional.
	TerraformIP string
	// ConfigFile is the config file name requested by the firmware, optional.
	ConfigFile string
	// Now is the generated timestamp, the current time is used when zero.
	Now time.Time
}

// Generator renders the scripts executed by the network boot firmware.
type Generator interface {
	// BootScript renders the boot script for the server, the zone is optional.
	BootScript(ctx context.Context, server *model.ServerRecord, zone *model.ProvisionZone, req Request) (string, error)

	// HardwareScript renders the script reporting the machine make and model
	// before chaining back to the boot endpoint.
	HardwareScript(ctx context.Context, manufacturer, product string) (string, error)
}
