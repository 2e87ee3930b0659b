package app

import (
	"os"
	"strings"

	"github.com/jeremywohl/flatten"
	"github.com/metal-toolbox/bootline/internal/bootscript"
	"github.com/metal-toolbox/bootline/internal/events"
	"github.com/metal-toolbox/bootline/internal/formatter"
	"github.com/metal-toolbox/bootline/internal/metrics"
	"github.com/metal-toolbox/bootline/internal/model"
	"github.com/metal-toolbox/bootline/internal/provision"
	"github.com/metal-toolbox/bootline/internal/registry"
	"github.com/metal-toolbox/bootline/internal/release"
	"github.com/metal-toolbox/bootline/internal/server"
	"github.com/metal-toolbox/bootline/internal/store"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

var (
	ErrConfig = errors.New("configuration error")
)

// Configuration holds application configuration read from a YAML or set by env variables.
//
// nolint:govet // prefer readability over field alignment optimization for this case.
type Configuration struct {
	// LogLevel is the app verbose logging level.
	// one of - info, debug, trace
	LogLevel string `mapstructure:"log_level"`

	// AppKind is the application kind - server / client
	AppKind model.AppKind `mapstructure:"app_kind"`

	// MetricsAddress is the listen address of the prometheus metrics endpoint.
	MetricsAddress string `mapstructure:"metrics_address"`

	Server    server.Options   `mapstructure:"server"`
	Lifecycle LifecycleOptions `mapstructure:"lifecycle"`

	// Events configures the NATS lifecycle event publisher,
	// events are discarded when no nats_url is set.
	Events events.Options `mapstructure:"events"`

	// Providers maps each role to its provider class and options.
	//
	// The default providers are used when none are configured.
	Providers map[string]registry.Entry `mapstructure:"providers,omitempty"`
}

// LifecycleOptions are the operational status values the provisioning gate compares against.
type LifecycleOptions struct {
	CompleteStatus  string `mapstructure:"complete_status"`
	ProvisionStatus string `mapstructure:"provision_status"`
}

// DefaultProviders returns an in memory inventory with the built in script generators.
func DefaultProviders() map[string]registry.Entry {
	return map[string]registry.Entry{
		string(registry.RoleInventoryStore):              {Namespace: store.Namespace, Class: store.KindMemory},
		string(registry.RoleFormatter):                   {Namespace: formatter.Namespace, Class: formatter.KindCanonical},
		string(registry.RoleVersionSource):               {Namespace: release.Namespace, Class: release.KindStatic},
		string(registry.RoleBootScriptGenerator):         {Namespace: bootscript.Namespace, Class: bootscript.KindIPXE},
		string(registry.RoleProvisioningScriptGenerator): {Namespace: provision.Namespace, Class: provision.KindPreseed},
	}
}

// LoadConfiguration loads application configuration
//
// Reads in the cfgFile when available and overrides from environment variables.
func (a *App) LoadConfiguration(cfgFile string) error {
	a.v.SetConfigType("yaml")
	a.v.SetEnvPrefix(model.AppName)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if cfgFile != "" {
		fh, err := os.Open(cfgFile)
		if err != nil {
			return errors.Wrap(ErrConfig, err.Error())
		}
		defer fh.Close()

		if err = a.v.ReadConfig(fh); err != nil {
			return errors.Wrap(ErrConfig, "ReadConfig error:"+err.Error())
		}
	}

	a.v.SetDefault("log_level", "info")
	a.v.SetDefault("metrics_address", metrics.MetricsEndpoint)
	a.v.SetDefault("lifecycle.complete_status", provision.DefaultCompleteStatus)
	a.v.SetDefault("lifecycle.provision_status", provision.DefaultProvisionStatus)
	a.v.SetDefault("events.subject_prefix", events.DefaultSubjectPrefix)

	if err := a.envBindVars(); err != nil {
		return errors.Wrap(ErrConfig, "env var bind error:"+err.Error())
	}

	if err := a.v.Unmarshal(a.Config); err != nil {
		return errors.Wrap(ErrConfig, "Unmarshal error: "+err.Error())
	}

	if len(a.Config.Providers) == 0 {
		a.Config.Providers = DefaultProviders()
	}

	return a.Config.validate()
}

func (c *Configuration) validate() error {
	switch c.LogLevel {
	case "info", "debug", "trace":
	default:
		return errors.Wrap(ErrConfig, "log_level expected one of info, debug, trace, got: "+c.LogLevel)
	}

	if strings.TrimSpace(c.Lifecycle.CompleteStatus) == "" || strings.TrimSpace(c.Lifecycle.ProvisionStatus) == "" {
		return errors.Wrap(ErrConfig, "lifecycle statuses cannot be blank")
	}

	if c.Server.RateLimit < 0 || c.Server.RateLimitBurst < 0 {
		return errors.Wrap(ErrConfig, "server rate limits cannot be negative")
	}

	return nil
}

// envBindVars binds environment variables to the struct
// without a configuration file being unmarshalled,
// this is a workaround for a viper bug,
//
// This can be replaced by the solution in https://github.com/spf13/viper/pull/1429
// once that PR is merged.
func (a *App) envBindVars() error {
	envKeysMap := map[string]interface{}{}
	if err := mapstructure.Decode(a.Config, &envKeysMap); err != nil {
		return err
	}

	// Flatten nested conf map
	flat, err := flatten.Flatten(envKeysMap, "", flatten.DotStyle)
	if err != nil {
		return errors.Wrap(err, "Unable to flatten config")
	}

	for k := range flat {
		if err := a.v.BindEnv(k); err != nil {
			return errors.Wrap(ErrConfig, "env var bind error: "+err.Error())
		}
	}

	return nil
}
