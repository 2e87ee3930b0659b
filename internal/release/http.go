package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coreos/go-oidc"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/jpillora/backoff"
	"github.com/metal-toolbox/bootline/internal/metrics"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	defaultSchedule = "@every 5m"
	defaultTimeout  = 30 * time.Second
	defaultClientID = "bootline"

	refreshAttempts = 3
)

// HTTPOptions configures the http version source class.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type HTTPOptions struct {
	// Endpoint is the URL the JSON manifest is fetched from.
	Endpoint string `mapstructure:"endpoint"`
	// Schedule is the cron expression the manifest is refreshed on.
	Schedule       string        `mapstructure:"schedule"`
	DefaultProject string        `mapstructure:"default_project"`
	Timeout        time.Duration `mapstructure:"timeout"`

	OidcIssuerEndpoint string   `mapstructure:"oidc_issuer_endpoint"`
	OidcAudience       string   `mapstructure:"oidc_audience"`
	OidcClientSecret   string   `mapstructure:"oidc_client_secret"`
	OidcClientID       string   `mapstructure:"oidc_client_id"`
	OidcClientScopes   []string `mapstructure:"oidc_client_scopes"`
}

// HTTP serves the version manifest fetched from a remote endpoint, the last
// successfully fetched manifest is kept when a refresh fails.
type HTTP struct {
	opts   HTTPOptions
	client *http.Client
	logger *logrus.Logger

	mu       sync.RWMutex
	manifest *Manifest
	// retryDelay is the minimum delay between refresh attempts
	retryDelay time.Duration
}

// NewHTTPSource returns a version source for the remote manifest endpoint.
//
// The manifest is fetched when Run is invoked.
func NewHTTPSource(ctx context.Context, opts HTTPOptions, logger *logrus.Logger) (*HTTP, error) {
	if opts.Endpoint == "" {
		return nil, errors.Wrap(ErrManifest, "expected an endpoint parameter")
	}

	if _, err := url.ParseRequestURI(opts.Endpoint); err != nil {
		return nil, errors.Wrap(ErrManifest, "endpoint: "+err.Error())
	}

	if opts.Schedule == "" {
		opts.Schedule = defaultSchedule
	}

	if _, err := cron.ParseStandard(opts.Schedule); err != nil {
		return nil, errors.Wrap(ErrManifest, "schedule: "+err.Error())
	}

	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}

	client, err := newClient(ctx, &opts, logger)
	if err != nil {
		return nil, err
	}

	return &HTTP{
		opts:       opts,
		client:     client,
		logger:     logger,
		retryDelay: 5 * time.Second, // nolint:gomnd // time duration value is clear as is.
	}, nil
}

// returns a retryable http client with otel and, when an issuer is configured, oauth wrapped in
func newClient(ctx context.Context, opts *HTTPOptions, logger *logrus.Logger) (*http.Client, error) {
	retryableClient := retryablehttp.NewClient()

	// set retryable HTTP client to be the otel http client to collect telemetry
	retryableClient.HTTPClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

	// disable default debug logging on the retryable client
	if logger.Level < logrus.DebugLevel {
		retryableClient.Logger = nil
	} else {
		retryableClient.Logger = logger
	}

	if opts.OidcIssuerEndpoint != "" {
		provider, err := oidc.NewProvider(ctx, opts.OidcIssuerEndpoint)
		if err != nil {
			return nil, errors.Wrap(ErrManifest, "oidc provider: "+err.Error())
		}

		clientID := defaultClientID
		if opts.OidcClientID != "" {
			clientID = opts.OidcClientID
		}

		oauthConfig := clientcredentials.Config{
			ClientID:       clientID,
			ClientSecret:   opts.OidcClientSecret,
			TokenURL:       provider.Endpoint().TokenURL,
			Scopes:         opts.OidcClientScopes,
			EndpointParams: url.Values{"audience": []string{opts.OidcAudience}},
		}

		// wrap OAuth transport, cookie jar in the retryable client
		oAuthclient := oauthConfig.Client(ctx)

		retryableClient.HTTPClient.Transport = oAuthclient.Transport
		retryableClient.HTTPClient.Jar = oAuthclient.Jar
	}

	httpClient := retryableClient.StandardClient()
	httpClient.Timeout = opts.Timeout

	return httpClient, nil
}

func (h *HTTP) current() (*Manifest, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.manifest == nil {
		return nil, ErrNoManifest
	}

	return h.manifest, nil
}

func (h *HTTP) LatestVersions(_ context.Context) (*Manifest, error) {
	return h.current()
}

func (h *HTTP) LatestBootVars(_ context.Context, project string) (string, error) {
	manifest, err := h.current()
	if err != nil {
		return "", err
	}

	return manifest.BootVars(project, h.opts.DefaultProject)
}

func (h *HTTP) fetch(ctx context.Context) (*Manifest, error) {
	ctx, span := otel.Tracer(pkgName).Start(ctx, "HTTP.fetch")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.opts.Endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrap(ErrManifest, fmt.Sprintf("URL: %s, status code %s", h.opts.Endpoint, resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	manifest := &Manifest{}
	if err := json.Unmarshal(body, manifest); err != nil {
		return nil, errors.Wrap(ErrManifest, err.Error())
	}

	if len(manifest.Projects) == 0 {
		return nil, errors.Wrap(ErrManifest, "no projects listed")
	}

	return manifest, nil
}

// Refresh fetches the manifest, failed attempts are retried with a jittered
// backoff and the previous manifest is kept when every attempt fails.
func (h *HTTP) Refresh(ctx context.Context) error {
	delay := &backoff.Backoff{
		Min:    h.retryDelay,
		Max:    h.retryDelay * 6, // nolint:gomnd // multiplier is clear as is.
		Factor: 2,
		Jitter: true,
	}

	var err error

	for attempt := 1; attempt <= refreshAttempts; attempt++ {
		var manifest *Manifest

		manifest, err = h.fetch(ctx)
		if err == nil {
			h.mu.Lock()
			h.manifest = manifest
			h.mu.Unlock()

			metrics.ManifestRefreshCounter.With(prometheus.Labels{"state": "succeeded"}).Inc()

			return nil
		}

		metrics.ManifestRefreshCounter.With(prometheus.Labels{"state": "failed"}).Inc()

		h.logger.WithError(err).WithFields(logrus.Fields{
			"endpoint": h.opts.Endpoint,
			"attempt":  fmt.Sprintf("%d/%d", attempt, refreshAttempts),
		}).Warn("version manifest refresh failed")

		if attempt == refreshAttempts {
			break
		}

		select {
		case <-time.After(delay.Duration()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return err
}

// Run fetches the manifest and then refreshes it on the configured schedule
// until the context is canceled.
func (h *HTTP) Run(ctx context.Context) error {
	if err := h.Refresh(ctx); err != nil && ctx.Err() == nil {
		h.logger.WithError(err).Error("initial version manifest fetch failed, requests return no manifest until the next refresh")
	}

	var mu sync.Mutex

	c := cron.New()

	id, err := c.AddFunc(h.opts.Schedule, func() {
		// skip a scheduled run while the previous refresh is still running
		if !mu.TryLock() {
			h.logger.Warn("previous version manifest refresh still running, skip current schedule")
			return
		}
		defer mu.Unlock()

		_ = h.Refresh(ctx)
	})
	if err != nil {
		return errors.Wrap(ErrManifest, "schedule: "+err.Error())
	}

	c.Start()

	h.logger.WithFields(logrus.Fields{
		"schedule": h.opts.Schedule,
		"next":     c.Entry(id).Next,
	}).Info("version manifest refresher started")

	<-ctx.Done()

	<-c.Stop().Done()

	h.logger.Info("version manifest refresher stopped")

	return nil
}
