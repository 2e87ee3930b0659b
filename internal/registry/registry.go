package registry

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/metal-toolbox/bootline/internal/bootscript"
	"github.com/metal-toolbox/bootline/internal/formatter"
	"github.com/metal-toolbox/bootline/internal/provision"
	"github.com/metal-toolbox/bootline/internal/release"
	"github.com/metal-toolbox/bootline/internal/store"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Role is a pluggable component of the service.
type Role string

const (
	RoleInventoryStore              Role = "inventory_store"
	RoleFormatter                   Role = "formatter"
	RoleVersionSource               Role = "version_source"
	RoleBootScriptGenerator         Role = "boot_script_generator"
	RoleProvisioningScriptGenerator Role = "provisioning_script_generator"
)

var (
	ErrProviderLoad = errors.New("error loading providers")
	ErrUnknownRole  = errors.New("unknown provider role")
	ErrMissingRole  = errors.New("provider role not configured")
	ErrNamespace    = errors.New("provider namespace does not match role")
	ErrUnknownClass = errors.New("unknown provider class")
	ErrOptions      = errors.New("invalid provider options")
	ErrConstructor  = errors.New("provider constructor error")
)

// Roles returns every role, each has to be configured.
func Roles() []Role {
	return []Role{
		RoleInventoryStore,
		RoleFormatter,
		RoleVersionSource,
		RoleBootScriptGenerator,
		RoleProvisioningScriptGenerator,
	}
}

// Namespace returns the provider namespace of the role.
func (r Role) Namespace() string {
	switch r {
	case RoleInventoryStore:
		return store.Namespace
	case RoleFormatter:
		return formatter.Namespace
	case RoleVersionSource:
		return release.Namespace
	case RoleBootScriptGenerator:
		return bootscript.Namespace
	case RoleProvisioningScriptGenerator:
		return provision.Namespace
	default:
		return ""
	}
}

// Entry selects the provider class for a role, keys other than namespace and
// class are the class options.
type Entry struct {
	Namespace string         `mapstructure:"namespace"`
	Class     string         `mapstructure:"class"`
	Options   map[string]any `mapstructure:",remain"`
}

// Constructor returns a provider built from the decoded class options.
//
// built holds the providers of the roles constructed before this one, see buildOrder.
type Constructor func(ctx context.Context, options map[string]any, built *Providers, logger *logrus.Logger) (any, error)

// Registry maps each role and class to its provider constructor.
type Registry struct {
	factories map[Role]map[string]Constructor
	logger    *logrus.Logger
}

// New returns a Registry with the built in provider classes registered.
func New(logger *logrus.Logger) *Registry {
	r := &Registry{
		factories: map[Role]map[string]Constructor{},
		logger:    logger,
	}

	r.Register(RoleInventoryStore, store.KindSQL, withOptions(
		func(ctx context.Context, opts store.SQLOptions, logger *logrus.Logger) (store.Repository, error) {
			return store.NewSQLStore(ctx, opts, logger)
		},
	))

	r.Register(RoleInventoryStore, store.KindMemory, withProviders(
		func(ctx context.Context, opts store.MemoryOptions, built *Providers, logger *logrus.Logger) (store.Repository, error) {
			return store.NewMemStoreWithOptions(ctx, opts, built.Formatter, logger)
		},
	))

	r.Register(RoleFormatter, formatter.KindNoop, withOptions(
		func(_ context.Context, _ struct{}, _ *logrus.Logger) (formatter.Formatter, error) {
			return formatter.NewNoop(), nil
		},
	))

	r.Register(RoleFormatter, formatter.KindCanonical, withOptions(
		func(_ context.Context, _ struct{}, _ *logrus.Logger) (formatter.Formatter, error) {
			return formatter.NewCanonical(), nil
		},
	))

	r.Register(RoleVersionSource, release.KindStatic, withOptions(
		func(_ context.Context, opts release.StaticOptions, logger *logrus.Logger) (release.Source, error) {
			return release.NewStatic(opts, logger)
		},
	))

	r.Register(RoleVersionSource, release.KindHTTP, withOptions(
		func(ctx context.Context, opts release.HTTPOptions, logger *logrus.Logger) (release.Source, error) {
			return release.NewHTTPSource(ctx, opts, logger)
		},
	))

	r.Register(RoleBootScriptGenerator, bootscript.KindIPXE, withOptions(
		func(_ context.Context, opts bootscript.IPXEOptions, logger *logrus.Logger) (bootscript.Generator, error) {
			return bootscript.NewIPXE(opts, logger)
		},
	))

	r.Register(RoleProvisioningScriptGenerator, provision.KindPreseed, withOptions(
		func(_ context.Context, opts provision.PreseedOptions, logger *logrus.Logger) (provision.Generator, error) {
			return provision.NewPreseed(opts, logger)
		},
	))

	return r
}

// Register adds or replaces the constructor for the role and class.
func (r *Registry) Register(role Role, class string, constructor Constructor) {
	if _, exists := r.factories[role]; !exists {
		r.factories[role] = map[string]Constructor{}
	}

	r.factories[role][class] = constructor
}

// Classes returns the sorted class names registered for the role.
func (r *Registry) Classes(role Role) []string {
	classes := maps.Keys(r.factories[role])
	slices.Sort(classes)

	return classes
}

// decode decodes the class options, unknown keys are rejected.
func decode(input map[string]any, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}

// withOptions returns a Constructor that decodes the options into O before invoking build.
func withOptions[O any, P any](build func(context.Context, O, *logrus.Logger) (P, error)) Constructor {
	return withProviders(func(ctx context.Context, opts O, _ *Providers, logger *logrus.Logger) (P, error) {
		return build(ctx, opts, logger)
	})
}

// withProviders is withOptions for classes that depend on providers of an earlier role.
func withProviders[O any, P any](build func(context.Context, O, *Providers, *logrus.Logger) (P, error)) Constructor {
	return func(ctx context.Context, options map[string]any, built *Providers, logger *logrus.Logger) (any, error) {
		var opts O

		if err := decode(options, &opts); err != nil {
			return nil, errors.Wrap(ErrOptions, err.Error())
		}

		provider, err := build(ctx, opts, built, logger)
		if err != nil {
			return nil, errors.Wrap(ErrConstructor, err.Error())
		}

		return provider, nil
	}
}

// buildOrder returns the roles in construction order, the formatter comes
// first since a seeded inventory store formats its entries with it.
func buildOrder() []Role {
	order := []Role{RoleFormatter}

	for _, role := range Roles() {
		if role != RoleFormatter {
			order = append(order, role)
		}
	}

	return order
}

func (r *Registry) buildRole(ctx context.Context, role Role, entry Entry, built *Providers) (any, error) {
	if entry.Namespace != "" && entry.Namespace != role.Namespace() {
		return nil, errors.Wrap(
			ErrNamespace,
			fmt.Sprintf("%s: namespace '%s', expected '%s'", role, entry.Namespace, role.Namespace()),
		)
	}

	constructor, exists := r.factories[role][entry.Class]
	if !exists {
		return nil, errors.Wrap(
			ErrUnknownClass,
			fmt.Sprintf("%s: class '%s', expected one of %v", role, entry.Class, r.Classes(role)),
		)
	}

	provider, err := constructor(ctx, entry.Options, built, r.logger)
	if err != nil {
		return nil, errors.Wrap(err, string(role))
	}

	return provider, nil
}

// Build validates the entries and constructs a provider for every role.
//
// Every role is attempted, the returned error wraps ErrProviderLoad and
// accumulates the error of each role that failed.
func (r *Registry) Build(ctx context.Context, entries map[string]Entry) (*Providers, error) {
	var merr *multierror.Error

	known := map[string]bool{}
	for _, role := range Roles() {
		known[string(role)] = true
	}

	names := maps.Keys(entries)
	slices.Sort(names)

	for _, name := range names {
		if !known[name] {
			merr = multierror.Append(merr, errors.Wrap(ErrUnknownRole, name))
		}
	}

	providers := &Providers{}

	for _, role := range buildOrder() {
		entry, exists := entries[string(role)]
		if !exists {
			merr = multierror.Append(merr, errors.Wrap(ErrMissingRole, string(role)))
			continue
		}

		provider, err := r.buildRole(ctx, role, entry, providers)
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}

		if err := providers.set(role, provider); err != nil {
			merr = multierror.Append(merr, err)
			continue
		}

		r.logger.WithFields(logrus.Fields{"role": role, "class": entry.Class}).Debug("provider loaded")
	}

	if err := merr.ErrorOrNil(); err != nil {
		_ = providers.Close()
		return nil, fmt.Errorf("%w: %w", ErrProviderLoad, err)
	}

	return providers, nil
}
