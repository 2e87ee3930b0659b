package fixtures

import (
	"github.com/metal-toolbox/bootline/internal/model"
)

const (
	HogzillaNumber model.ServerNumber = 555121
	HogzillaMAC                       = "00:11:22:33:44:55"

	SwitchName = "Switch 01"
)

var (
	ZoneDFW = model.ProvisionZone{
		Name:       "dfw",
		ImageHost:  "images.dfw.rpc.local",
		MirrorHost: "mirror.dfw.rpc.local",
	}

	Hogzilla = model.ServerRecord{
		ServerNumber:      HogzillaNumber,
		Hostname:          "hogzilla",
		PrimaryIP:         "10.12.1.10",
		PrimaryGateway:    "10.12.1.1",
		PrimaryNetmask:    "255.255.255.0",
		PrimaryMAC:        HogzillaMAC,
		DNSDomain:         "rpc.local",
		DNSPrimary:        "8.8.8.8",
		BootOS:            "Ubuntu",
		BootOSVersion:     "14.04.2",
		BootProfile:       "Unknown",
		BootStatus:        "Kicking",
		OperationalStatus: "Provisioning",
		ProvisionZone:     ZoneDFW.Name,
	}

	HogzillaSwitchPorts = []model.SwitchPortBinding{
		{SwitchName: SwitchName, SwitchPort: "1", ServerNumber: HogzillaNumber},
		{SwitchName: SwitchName, SwitchPort: "2", ServerNumber: HogzillaNumber},
	}
)

// CopyHogzilla returns a copy of the Hogzilla server record.
func CopyHogzilla() *model.ServerRecord {
	s := Hogzilla
	return &s
}
