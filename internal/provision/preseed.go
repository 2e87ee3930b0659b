package provision

import (
	"bytes"
	"context"
	_ "embed"
	"os"
	"strings"
	"text/template"

	"github.com/metal-toolbox/bootline/internal/metrics"
	"github.com/metal-toolbox/bootline/internal/model"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

//go:embed templates/preseed.cfg.tmpl
var preseedTemplate string

// PreseedOptions configures the preseed provisioning script generator class.
type PreseedOptions struct {
	// TemplateFile overrides the built in preseed template.
	TemplateFile string `mapstructure:"template_file"`
}

// Preseed renders debian-installer preseed files.
type Preseed struct {
	tmpl   *template.Template
	logger *logrus.Logger
}

type preseedData struct {
	Server      *model.ServerRecord
	Zone        *model.ProvisionZone
	Nameservers string
}

// NewPreseed returns a preseed provisioning script generator.
func NewPreseed(opts PreseedOptions, logger *logrus.Logger) (*Preseed, error) {
	text := preseedTemplate

	if opts.TemplateFile != "" {
		b, err := os.ReadFile(opts.TemplateFile)
		if err != nil {
			return nil, errors.Wrap(ErrTemplate, err.Error())
		}

		text = string(b)
	}

	tmpl, err := template.New("preseed").Parse(text)
	if err != nil {
		return nil, errors.Wrap(ErrTemplate, err.Error())
	}

	return &Preseed{tmpl: tmpl, logger: logger}, nil
}

func nameservers(server *model.ServerRecord) string {
	servers := []string{}

	for _, ns := range []string{server.DNSPrimary, server.DNSSecondary, server.DNSTertiary} {
		if ns != "" {
			servers = append(servers, ns)
		}
	}

	return strings.Join(servers, " ")
}

func (p *Preseed) ProvisionScript(ctx context.Context, server *model.ServerRecord, zone *model.ProvisionZone) (string, error) {
	_, span := otel.Tracer(pkgName).Start(ctx, "Preseed.ProvisionScript")
	defer span.End()

	if server == nil {
		return "", ErrNoServer
	}

	var buf bytes.Buffer

	data := preseedData{Server: server, Zone: zone, Nameservers: nameservers(server)}
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrap(ErrTemplate, err.Error())
	}

	metrics.ScriptsRendered.With(prometheus.Labels{"kind": "provision"}).Inc()

	p.logger.WithFields(logrus.Fields{
		"serverNumber": server.ServerNumber,
		"hostname":     server.Hostname,
	}).Debug("rendered provision script")

	return buf.String(), nil
}
