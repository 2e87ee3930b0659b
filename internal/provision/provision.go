package provision

import (
	"context"

	"github.com/metal-toolbox/bootline/internal/model"
	"github.com/pkg/errors"
)

const (
	pkgName = "internal/provision"

	// Namespace is the provider namespace provisioning script generator classes are registered under.
	Namespace = "provision"

	KindPreseed = "preseed"

	DefaultCompleteStatus  = "Production"
	DefaultProvisionStatus = "Provisioning"
)

var (
	// ErrAlreadyProvisioned is returned when the server has completed provisioning.
	ErrAlreadyProvisioned = errors.New("server already provisioned")
	// ErrNotEligible is returned when the server is not in the provisioning state.
	ErrNotEligible = errors.New("server not eligible for provisioning")

	ErrNoServer = errors.New("no server record to render")
	ErrTemplate = errors.New("provision script template error")
)

// IsNoop returns true when the error is a lifecycle policy outcome, not a failure.
func IsNoop(err error) bool {
	return errors.Is(err, ErrAlreadyProvisioned) || errors.Is(err, ErrNotEligible)
}

// Generator renders the unattended OS installer configuration for a server.
type Generator interface {
	ProvisionScript(ctx context.Context, server *model.ServerRecord, zone *model.ProvisionZone) (string, error)
}
