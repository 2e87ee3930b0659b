package registry

import (
	"fmt"

	"github.com/metal-toolbox/bootline/internal/bootscript"
	"github.com/metal-toolbox/bootline/internal/formatter"
	"github.com/metal-toolbox/bootline/internal/provision"
	"github.com/metal-toolbox/bootline/internal/release"
	"github.com/metal-toolbox/bootline/internal/store"
	"github.com/pkg/errors"
)

// Providers holds the provider built for each role, it is constructed once
// at startup and passed to the dispatcher.
type Providers struct {
	Store            store.Repository
	Formatter        formatter.Formatter
	Versions         release.Source
	BootScripts      bootscript.Generator
	ProvisionScripts provision.Generator
}

func (p *Providers) set(role Role, provider any) error {
	var ok bool

	switch role {
	case RoleInventoryStore:
		p.Store, ok = provider.(store.Repository)
	case RoleFormatter:
		p.Formatter, ok = provider.(formatter.Formatter)
	case RoleVersionSource:
		p.Versions, ok = provider.(release.Source)
	case RoleBootScriptGenerator:
		p.BootScripts, ok = provider.(bootscript.Generator)
	case RoleProvisioningScriptGenerator:
		p.ProvisionScripts, ok = provider.(provision.Generator)
	default:
		return errors.Wrap(ErrUnknownRole, string(role))
	}

	if !ok {
		return errors.Wrap(ErrConstructor, fmt.Sprintf("%s: provider of type %T does not implement the role", role, provider))
	}

	return nil
}

// Close releases the inventory store.
func (p *Providers) Close() error {
	if p.Store == nil {
		return nil
	}

	return p.Store.Close()
}
