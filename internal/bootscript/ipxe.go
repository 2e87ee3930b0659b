package bootscript

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"os"
	"strings"
	"text/template"
	"time"
	"unicode"

	"github.com/bmc-toolbox/common"
	"github.com/metal-toolbox/bootline/internal/metrics"
	"github.com/metal-toolbox/bootline/internal/model"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var (
	//go:embed templates/boot.ipxe.tmpl
	bootTemplate string

	//go:embed templates/hardware.ipxe.tmpl
	hardwareTemplate string
)

const defaultBaseURL = "http://boot.rpc.local"

// IPXEOptions configures the ipxe boot script generator class.
type IPXEOptions struct {
	// TemplateFile overrides the built in boot script template.
	TemplateFile string `mapstructure:"template_file"`
	// HardwareTemplateFile overrides the built in hardware script template.
	HardwareTemplateFile string `mapstructure:"hardware_template_file"`
	// BaseURL is the address the hardware script chains back to.
	BaseURL string `mapstructure:"base_url"`
}

// IPXE renders iPXE boot scripts from text templates.
type IPXE struct {
	boot     *template.Template
	hardware *template.Template
	baseURL  string
	logger   *logrus.Logger
}

type bootData struct {
	Server      *model.ServerRecord
	Zone        *model.ProvisionZone
	Dump        string
	Timestamp   string
	TerraformIP string
	ConfigFile  string
}

type hardwareData struct {
	Make     string
	Model    string
	Vendor   string
	ChainURL string
}

func loadTemplate(name, builtin, file string) (*template.Template, error) {
	text := builtin

	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrap(ErrTemplate, err.Error())
		}

		text = string(b)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, errors.Wrap(ErrTemplate, name+": "+err.Error())
	}

	return tmpl, nil
}

// NewIPXE returns an iPXE boot script generator.
func NewIPXE(opts IPXEOptions, logger *logrus.Logger) (*IPXE, error) {
	boot, err := loadTemplate("boot", bootTemplate, opts.TemplateFile)
	if err != nil {
		return nil, err
	}

	hardware, err := loadTemplate("hardware", hardwareTemplate, opts.HardwareTemplateFile)
	if err != nil {
		return nil, err
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &IPXE{
		boot:     boot,
		hardware: hardware,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		logger:   logger,
	}, nil
}

// commentedDump returns the indented JSON form of v with each line prefixed
// by an iPXE comment marker.
func commentedDump(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}

	lines := strings.Split(string(b), "\n")
	for idx := range lines {
		lines[idx] = "#   " + lines[idx]
	}

	return strings.Join(lines, "\n"), nil
}

func (g *IPXE) render(tmpl *template.Template, kind string, data any) (string, error) {
	var buf bytes.Buffer

	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrap(ErrTemplate, err.Error())
	}

	metrics.ScriptsRendered.With(prometheus.Labels{"kind": kind}).Inc()

	return buf.String(), nil
}

func (g *IPXE) BootScript(ctx context.Context, server *model.ServerRecord, zone *model.ProvisionZone, req Request) (string, error) {
	_, span := otel.Tracer(pkgName).Start(ctx, "IPXE.BootScript")
	defer span.End()

	if server == nil {
		return "", ErrNoServer
	}

	dump, err := commentedDump(server)
	if err != nil {
		return "", errors.Wrap(ErrTemplate, err.Error())
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	data := bootData{
		Server:      server,
		Zone:        zone,
		Dump:        dump,
		Timestamp:   now.UTC().Format(TimestampLayout),
		TerraformIP: req.TerraformIP,
		ConfigFile:  req.ConfigFile,
	}

	g.logger.WithFields(logrus.Fields{
		"serverNumber": server.ServerNumber,
		"hostname":     server.Hostname,
	}).Debug("rendering boot script")

	return g.render(g.boot, "boot", data)
}

// scriptWord removes whitespace and control characters from the value,
// the result is a single word on its iPXE script line.
func scriptWord(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return -1
		}

		return r
	}, s)
}

func (g *IPXE) HardwareScript(ctx context.Context, manufacturer, product string) (string, error) {
	_, span := otel.Tracer(pkgName).Start(ctx, "IPXE.HardwareScript")
	defer span.End()

	data := hardwareData{
		Make:     scriptWord(manufacturer),
		Model:    scriptWord(product),
		Vendor:   scriptWord(common.FormatVendorName(manufacturer)),
		ChainURL: g.baseURL + "/pxe",
	}

	return g.render(g.hardware, "hardware", data)
}
