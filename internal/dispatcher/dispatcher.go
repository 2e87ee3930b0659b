package dispatcher

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/metal-toolbox/bootline/internal/bootscript"
	"github.com/metal-toolbox/bootline/internal/events"
	"github.com/metal-toolbox/bootline/internal/metrics"
	"github.com/metal-toolbox/bootline/internal/model"
	"github.com/metal-toolbox/bootline/internal/provision"
	"github.com/metal-toolbox/bootline/internal/registry"
	"github.com/metal-toolbox/bootline/internal/release"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	pkgName = "internal/dispatcher"

	// request parameters
	ParamNumber       = "number"
	ParamServerNumber = "server_number"
	ParamMAC          = "mac"
	ParamSwitchName   = "switch_name"
	ParamSwitchPort   = "switch_port"
	ParamTerraformIP  = "terraform_ip"
	ParamManufacturer = "manufacturer"
	ParamProduct      = "product"

	// dispatch outcomes
	outcomeSucceeded = "succeeded"
	outcomeNoop      = "noop"
	outcomeNotFound  = "not_found"
	outcomeFailed    = "failed"
)

var (
	ErrMissingParameter = errors.New("missing parameter")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNotFound         = errors.New("server not found")
)

// Options configures the lifecycle statuses the provisioning gate compares against.
type Options struct {
	CompleteStatus  string
	ProvisionStatus string
}

// Dispatcher resolves identification inputs to inventory records and renders
// the scripts and results returned to callers.
type Dispatcher struct {
	providers *registry.Providers
	gate      *provision.Gate
	publisher events.Publisher
	logger    *logrus.Logger
}

// New returns a Dispatcher, a nil publisher discards lifecycle events.
func New(providers *registry.Providers, opts Options, publisher events.Publisher, logger *logrus.Logger) *Dispatcher {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}

	return &Dispatcher{
		providers: providers,
		gate:      provision.NewGate(opts.CompleteStatus, opts.ProvisionStatus),
		publisher: publisher,
		logger:    logger,
	}
}

// Gate returns the provisioning gate.
func (d *Dispatcher) Gate() *provision.Gate {
	return d.gate
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeSucceeded
	case provision.IsNoop(err):
		return outcomeNoop
	case errors.Is(err, ErrNotFound):
		return outcomeNotFound
	default:
		return outcomeFailed
	}
}

// observe starts the span for the operation, the returned func records the outcome.
func (d *Dispatcher) observe(ctx context.Context, operation string) (context.Context, func(err error)) {
	ctx, span := otel.Tracer(pkgName).Start(ctx, "Dispatcher."+operation)
	started := time.Now()

	return ctx, func(err error) {
		defer span.End()

		metrics.DispatchCounter.With(prometheus.Labels{"operation": operation, "outcome": outcome(err)}).Inc()
		metrics.DispatchRunTimeSummary.With(prometheus.Labels{"operation": operation}).Observe(time.Since(started).Seconds())

		span.SetAttributes(attribute.String("outcome", outcome(err)))

		if err != nil && outcome(err) == outcomeFailed {
			span.RecordError(err)
		}
	}
}

func param(params url.Values, key string) string {
	return strings.TrimSpace(params.Get(key))
}

func parseNumber(key, value string) (model.ServerNumber, error) {
	number, err := model.ParseServerNumber(value)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidParameter, key+": "+err.Error())
	}

	return number, nil
}

// Resolve returns the server identified by the request parameters and its provision zone.
//
// Parameters are tried in order number, server_number, mac and the
// switch_name, switch_port pair. MAC and switch identifiers are passed through the formatter.
func (d *Dispatcher) Resolve(ctx context.Context, params url.Values) (server *model.ServerRecord, zone *model.ProvisionZone, err error) {
	ctx, done := d.observe(ctx, "Resolve")
	defer func() { done(err) }()

	return d.resolve(ctx, params)
}

func (d *Dispatcher) resolve(ctx context.Context, params url.Values) (*model.ServerRecord, *model.ProvisionZone, error) {
	span := trace.SpanFromContext(ctx)

	for _, key := range []string{ParamNumber, ParamServerNumber} {
		value := param(params, key)
		if value == "" {
			continue
		}

		number, err := parseNumber(key, value)
		if err != nil {
			return nil, nil, err
		}

		span.SetAttributes(attribute.String("strategy", key))

		server, zone, err := d.providers.Store.ServerByNumber(ctx, number)
		if err != nil {
			return nil, nil, err
		}

		if server == nil {
			return nil, nil, errors.Wrap(ErrNotFound, key+" "+number.String())
		}

		return server, zone, nil
	}

	var (
		server *model.ServerRecord
		err    error
		lookup string
	)

	mac := param(params, ParamMAC)
	switchName := param(params, ParamSwitchName)
	switchPort := param(params, ParamSwitchPort)

	switch {
	case mac != "":
		formatted := d.providers.Formatter.FormatMAC(mac)
		lookup = "mac " + formatted

		span.SetAttributes(attribute.String("strategy", ParamMAC))

		server, err = d.providers.Store.ServerByMAC(ctx, formatted)
	case switchName != "" && switchPort != "":
		name := d.providers.Formatter.FormatSwitch(switchName)
		port := d.providers.Formatter.FormatPort(switchPort)
		lookup = "switch " + name + " port " + port

		span.SetAttributes(attribute.String("strategy", ParamSwitchName))

		server, err = d.providers.Store.ServerBySwitch(ctx, name, port)
	default:
		return nil, nil, errors.Wrap(
			ErrMissingParameter,
			"expected one of number, server_number, mac or switch_name and switch_port",
		)
	}

	if err != nil {
		return nil, nil, err
	}

	if server == nil {
		return nil, nil, errors.Wrap(ErrNotFound, lookup)
	}

	// the zone is only returned by the number lookup
	withZone, zone, err := d.providers.Store.ServerByNumber(ctx, server.ServerNumber)
	if err != nil {
		return nil, nil, err
	}

	if withZone == nil {
		return server, nil, nil
	}

	return withZone, zone, nil
}

// BootScript resolves the server and renders its boot script.
func (d *Dispatcher) BootScript(ctx context.Context, params url.Values, configFile string) (script string, err error) {
	ctx, done := d.observe(ctx, "BootScript")
	defer func() { done(err) }()

	server, zone, err := d.resolve(ctx, params)
	if err != nil {
		return "", err
	}

	d.logger.WithFields(logrus.Fields{
		"serverNumber": server.ServerNumber,
		"hostname":     server.Hostname,
		"configFile":   configFile,
	}).Info("serving boot script")

	return d.providers.BootScripts.BootScript(ctx, server, zone, bootscript.Request{
		TerraformIP: param(params, ParamTerraformIP),
		ConfigFile:  configFile,
	})
}

// HardwareScript renders the hardware identification script.
func (d *Dispatcher) HardwareScript(ctx context.Context, params url.Values) (script string, err error) {
	ctx, done := d.observe(ctx, "HardwareScript")
	defer func() { done(err) }()

	manufacturer := params.Get(ParamManufacturer)
	product := params.Get(ParamProduct)

	if strings.TrimSpace(manufacturer) == "" || strings.TrimSpace(product) == "" {
		return "", errors.Wrap(ErrMissingParameter, "expected manufacturer and product")
	}

	return d.providers.BootScripts.HardwareScript(ctx, manufacturer, product)
}

type setter func(ctx context.Context, number model.ServerNumber, value string) (model.MutationResult, error)

func (d *Dispatcher) set(ctx context.Context, operation, eventField, valueParam string, fn setter, serverNumber, value string) (result model.MutationResult, err error) {
	ctx, done := d.observe(ctx, operation)
	defer func() { done(err) }()

	serverNumber = strings.TrimSpace(serverNumber)
	value = strings.TrimSpace(value)

	if serverNumber == "" || value == "" {
		return model.MutationResult{}, errors.Wrap(ErrMissingParameter, "expected server_number and "+valueParam)
	}

	number, err := parseNumber(ParamServerNumber, serverNumber)
	if err != nil {
		return model.MutationResult{}, err
	}

	result, err = fn(ctx, number, value)
	if err != nil {
		return model.MutationResult{}, err
	}

	logger := d.logger.WithFields(logrus.Fields{"serverNumber": number, eventField: value})

	if !result.Succeeded() {
		logger.WithField("reason", result.Reason).Info("lifecycle update not applied")
		return result, nil
	}

	logger.Info("lifecycle updated")

	// publish failures are not returned, the update is committed
	if err := d.publisher.Publish(ctx, events.NewLifecycleEvent(number, eventField, value)); err != nil {
		logger.WithError(err).Warn("lifecycle event publish failed")
	}

	return result, nil
}

// SetBootStatus updates the boot status of the server.
func (d *Dispatcher) SetBootStatus(ctx context.Context, serverNumber, status string) (model.MutationResult, error) {
	return d.set(ctx, "SetBootStatus", model.EventFieldBootStatus, "boot_status", d.providers.Store.SetBootStatus, serverNumber, status)
}

// SetBootOS updates the boot OS of the server.
func (d *Dispatcher) SetBootOS(ctx context.Context, serverNumber, os string) (model.MutationResult, error) {
	return d.set(ctx, "SetBootOS", model.EventFieldBootOS, "boot_os", d.providers.Store.SetBootOS, serverNumber, os)
}

// SetOperationalStatus updates the operational status of the server.
func (d *Dispatcher) SetOperationalStatus(ctx context.Context, serverNumber, status string) (model.MutationResult, error) {
	return d.set(ctx, "SetOperationalStatus", model.EventFieldOperationalStatus, "opstatus", d.providers.Store.SetOperationalStatus, serverNumber, status)
}

// ProvisionScript renders the provisioning script for the server with the MAC address.
//
// ErrAlreadyProvisioned and ErrNotEligible are returned when the server
// operational status does not allow provisioning.
func (d *Dispatcher) ProvisionScript(ctx context.Context, mac string) (script string, err error) {
	ctx, done := d.observe(ctx, "ProvisionScript")
	defer func() { done(err) }()

	if strings.TrimSpace(mac) == "" {
		return "", errors.Wrap(ErrMissingParameter, "expected mac")
	}

	server, zone, err := d.resolve(ctx, url.Values{ParamMAC: []string{mac}})
	if err != nil {
		return "", err
	}

	script, err = d.gate.Render(ctx, server, zone, d.providers.ProvisionScripts)
	if provision.IsNoop(err) {
		d.logger.WithFields(logrus.Fields{
			"serverNumber":      server.ServerNumber,
			"operationalStatus": server.OperationalStatus,
		}).Info(err.Error())
	}

	return script, err
}

// Versions returns the version manifest.
func (d *Dispatcher) Versions(ctx context.Context) (manifest *release.Manifest, err error) {
	ctx, done := d.observe(ctx, "Versions")
	defer func() { done(err) }()

	return d.providers.Versions.LatestVersions(ctx)
}

// VersionBootVars returns the iPXE variables for the latest version of the project.
func (d *Dispatcher) VersionBootVars(ctx context.Context, project string) (vars string, err error) {
	ctx, done := d.observe(ctx, "VersionBootVars")
	defer func() { done(err) }()

	return d.providers.Versions.LatestBootVars(ctx, strings.TrimSpace(project))
}

// CreateServer inserts the server and its switch port bindings.
func (d *Dispatcher) CreateServer(ctx context.Context, server *model.ServerRecord, bindings []model.SwitchPortBinding) (err error) {
	ctx, done := d.observe(ctx, "CreateServer")
	defer func() { done(err) }()

	if server == nil {
		return errors.Wrap(ErrMissingParameter, "expected a server record")
	}

	if server.ServerNumber <= 0 {
		return errors.Wrap(ErrInvalidParameter, "server_number "+server.ServerNumber.String())
	}

	record := *server
	record.PrimaryMAC = d.providers.Formatter.FormatMAC(record.PrimaryMAC)

	if err := d.providers.Store.CreateEntry(ctx, &record); err != nil {
		return err
	}

	for idx := range bindings {
		binding := bindings[idx]
		binding.ServerNumber = server.ServerNumber
		binding.SwitchName = d.providers.Formatter.FormatSwitch(binding.SwitchName)
		binding.SwitchPort = d.providers.Formatter.FormatPort(binding.SwitchPort)

		if err := d.providers.Store.AddSwitchBinding(ctx, &binding); err != nil {
			return err
		}
	}

	d.logger.WithFields(logrus.Fields{
		"serverNumber": server.ServerNumber,
		"hostname":     server.Hostname,
		"switchPorts":  len(bindings),
	}).Info("server created")

	return nil
}

// ServerByHostname returns the server with the hostname.
func (d *Dispatcher) ServerByHostname(ctx context.Context, hostname string) (server *model.ServerRecord, err error) {
	ctx, done := d.observe(ctx, "ServerByHostname")
	defer func() { done(err) }()

	hostname = strings.TrimSpace(hostname)
	if hostname == "" {
		return nil, errors.Wrap(ErrMissingParameter, "expected hostname")
	}

	server, err = d.providers.Store.ServerByHostname(ctx, hostname)
	if err != nil {
		return nil, err
	}

	if server == nil {
		return nil, errors.Wrap(ErrNotFound, "hostname "+hostname)
	}

	return server, nil
}
