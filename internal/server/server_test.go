package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/metal-toolbox/bootline/internal/bootscript"
	"github.com/metal-toolbox/bootline/internal/dispatcher"
	"github.com/metal-toolbox/bootline/internal/fixtures"
	"github.com/metal-toolbox/bootline/internal/formatter"
	"github.com/metal-toolbox/bootline/internal/model"
	"github.com/metal-toolbox/bootline/internal/provision"
	"github.com/metal-toolbox/bootline/internal/registry"
	"github.com/metal-toolbox/bootline/internal/release"
	"github.com/metal-toolbox/bootline/internal/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts Options) http.Handler {
	t.Helper()

	ctx := context.Background()
	logger := logrus.New()

	repo := store.NewMemStore(logger)

	zone := fixtures.ZoneDFW
	require.Nil(t, repo.AddProvisionZone(ctx, &zone))
	require.Nil(t, repo.CreateEntry(ctx, fixtures.CopyHogzilla()))

	for idx := range fixtures.HogzillaSwitchPorts {
		binding := fixtures.HogzillaSwitchPorts[idx]
		require.Nil(t, repo.AddSwitchBinding(ctx, &binding))
	}

	boot, err := bootscript.NewIPXE(bootscript.IPXEOptions{}, logger)
	require.Nil(t, err)

	preseed, err := provision.NewPreseed(provision.PreseedOptions{}, logger)
	require.Nil(t, err)

	versions, err := release.NewStatic(release.StaticOptions{}, logger)
	require.Nil(t, err)

	providers := &registry.Providers{
		Store:            repo,
		Formatter:        formatter.NewCanonical(),
		Versions:         versions,
		BootScripts:      boot,
		ProvisionScripts: preseed,
	}

	d := dispatcher.New(providers, dispatcher.Options{}, nil, logger)

	return New(opts, d, logger).Handler()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	return rec
}

func TestBootRoutes(t *testing.T) {
	h := newTestServer(t, Options{})

	testcases := []struct {
		name     string
		target   string
		wantCode int
		contains string
	}{
		{"pxe by switch", "/pxe?switch_name=Switch%2001&switch_port=1", http.StatusOK, "set hostname hogzilla\n"},
		{"pxe by mac", "/pxe?mac=00-11-22-33-44-55&terraform_ip=10.0.0.5", http.StatusOK, "set terraform_ip 10.0.0.5\n"},
		{"pxe config file", "/pxe/configs/boot.ipxe?number=555121", http.StatusOK, "set server_number 555121\n"},
		{"pxe missing parameter", "/pxe", http.StatusPreconditionFailed, ""},
		{"pxe invalid number", "/pxe?number=hogzilla", http.StatusBadRequest, ""},
		{"pxe not found", "/pxe?number=1", http.StatusNotFound, ""},
		{"hardware", "/hardware?manufacturer=Dell%20&product=r%20810", http.StatusOK, "r810"},
		{"hardware missing product", "/hardware?manufacturer=Dell", http.StatusPreconditionFailed, ""},
		{"versions ipxe", "/versions/ipxe", http.StatusOK, "set latest_version 27"},
		{"versions ipxe project", "/versions/ipxe/squashible-kvm-fedora23", http.StatusOK, "#!ipxe\n"},
		{"versions ipxe unknown project", "/versions/ipxe/bogus", http.StatusNotFound, ""},
		{"provision", "/provision/os/start?mac=00:11:22:33:44:55", http.StatusOK, "d-i netcfg/get_hostname string hogzilla\n"},
		{"provision missing mac", "/provision/os/start", http.StatusPreconditionFailed, ""},
		{"provision unknown mac", "/provision/os/start?mac=aa:bb:cc:dd:ee:ff", http.StatusNotFound, ""},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(t, h, tc.target)

			assert.Equal(t, tc.wantCode, rec.Code, rec.Body.String())

			if tc.contains != "" {
				assert.Contains(t, rec.Body.String(), tc.contains)
				assert.Equal(t, contentTypeText, rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestVersionsJSON(t *testing.T) {
	h := newTestServer(t, Options{})

	for _, target := range []string{"/versions", "/versions/json"} {
		rec := get(t, h, target)
		require.Equal(t, http.StatusOK, rec.Code)

		manifest := &release.Manifest{}
		require.Nil(t, json.Unmarshal(rec.Body.Bytes(), manifest))
		assert.Equal(t, "ORD", manifest.Region)
		assert.Equal(t, 27, manifest.Projects["squashible-kvm-fedora23"].Latest)
	}
}

func TestUpdateRoutes(t *testing.T) {
	h := newTestServer(t, Options{})

	rec := get(t, h, "/update/status?server_number=555121&boot_status=Done")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"operation":"success","status_set":"Done"}`, rec.Body.String())

	rec = get(t, h, "/update?server_number=555121&boot_status=Done")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, h, "/update/os?server_number=555121&boot_os=Gentoo")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"operation":"success","os_set":"Gentoo"}`, rec.Body.String())

	rec = get(t, h, "/update/opstatus?server_number=1&opstatus=Production")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"operation":"failure","reason":"unable to locate device"}`, rec.Body.String())

	rec = get(t, h, "/update/opstatus?server_number=555121")
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestProvisionNoop(t *testing.T) {
	h := newTestServer(t, Options{})

	rec := get(t, h, "/update/opstatus?server_number=555121&opstatus=Production")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, h, "/provision/os/start?mac=00:11:22:33:44:55")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, OutcomeAlreadyProvisioned, rec.Header().Get(HeaderProvisionOutcome))
	assert.Empty(t, rec.Body.String())

	rec = get(t, h, "/update/opstatus?server_number=555121&opstatus=Maintenance")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, h, "/provision/os/start?mac=00:11:22:33:44:55")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, OutcomeNotEligible, rec.Header().Get(HeaderProvisionOutcome))
}

func TestRequestID(t *testing.T) {
	h := newTestServer(t, Options{})

	rec := get(t, h, "/versions")
	_, err := uuid.Parse(rec.Header().Get(headerRequestID))
	assert.Nil(t, err)

	id := uuid.New().String()

	req := httptest.NewRequest(http.MethodGet, "/versions", http.NoBody)
	req.Header.Set(headerRequestID, id)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(headerRequestID))
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, Options{RateLimit: 0.001, RateLimitBurst: 1})

	rec := get(t, h, "/versions")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, h, "/versions")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// health checks are not rate limited
	rec = get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusCode(t *testing.T) {
	testcases := []struct {
		err  error
		want int
	}{
		{errors.Wrap(dispatcher.ErrMissingParameter, "mac"), http.StatusPreconditionFailed},
		{errors.Wrap(dispatcher.ErrInvalidParameter, "number"), http.StatusBadRequest},
		{errors.Wrap(dispatcher.ErrNotFound, "mac"), http.StatusNotFound},
		{errors.Wrap(release.ErrUnknownProject, "bogus"), http.StatusNotFound},
		{errors.Wrap(provision.ErrAlreadyProvisioned, "Production"), http.StatusNoContent},
		{errors.Wrap(provision.ErrNotEligible, "Maintenance"), http.StatusNoContent},
		{errors.Wrap(store.ErrDuplicateServer, "555121"), http.StatusConflict},
		{release.ErrNoManifest, http.StatusServiceUnavailable},
		{errors.Wrap(store.ErrQuery, "pound sand"), http.StatusInternalServerError},
	}

	for _, tc := range testcases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.want, statusCode(tc.err))
		})
	}

	// the mutation result type is what the update routes serialize
	b, err := json.Marshal(model.MutationSuccess(model.FieldBootOS, "Gentoo"))
	require.Nil(t, err)
	assert.JSONEq(t, `{"operation":"success","os_set":"Gentoo"}`, string(b))
}
