package dispatcher

import (
	"context"
	"net/url"
	"testing"

	"github.com/metal-toolbox/bootline/internal/bootscript"
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
	"go.uber.org/mock/gomock"
)

type recordingPublisher struct {
	events []*model.LifecycleEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, event *model.LifecycleEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingPublisher) Close() {}

func newProviders(t *testing.T, repo store.Repository) *registry.Providers {
	t.Helper()

	logger := logrus.New()

	boot, err := bootscript.NewIPXE(bootscript.IPXEOptions{}, logger)
	require.Nil(t, err)

	preseed, err := provision.NewPreseed(provision.PreseedOptions{}, logger)
	require.Nil(t, err)

	versions, err := release.NewStatic(release.StaticOptions{}, logger)
	require.Nil(t, err)

	return &registry.Providers{
		Store:            repo,
		Formatter:        formatter.NewCanonical(),
		Versions:         versions,
		BootScripts:      boot,
		ProvisionScripts: preseed,
	}
}

// newSeededDispatcher returns a dispatcher on a memory store holding the hogzilla fixture.
func newSeededDispatcher(t *testing.T) (*Dispatcher, *recordingPublisher) {
	t.Helper()

	ctx := context.Background()
	repo := store.NewMemStore(logrus.New())

	zone := fixtures.ZoneDFW
	require.Nil(t, repo.AddProvisionZone(ctx, &zone))

	publisher := &recordingPublisher{}
	d := New(newProviders(t, repo), Options{}, publisher, logrus.New())

	require.Nil(t, d.CreateServer(ctx, fixtures.CopyHogzilla(), []model.SwitchPortBinding{
		{SwitchName: " Switch  01", SwitchPort: "1 "},
		{SwitchName: "Switch 01", SwitchPort: "2"},
	}))

	return d, publisher
}

func TestResolve(t *testing.T) {
	d, _ := newSeededDispatcher(t)
	ctx := context.Background()

	testcases := []struct {
		name    string
		params  url.Values
		wantErr error
	}{
		{"number", url.Values{"number": {"555121"}}, nil},
		{"server_number", url.Values{"server_number": {" 555121 "}}, nil},
		{"mac upper dash", url.Values{"mac": {"00-11-22-33-44-55"}}, nil},
		{"switch", url.Values{"switch_name": {"Switch 01"}, "switch_port": {"1"}}, nil},
		{"switch unformatted", url.Values{"switch_name": {"  Switch   01 "}, "switch_port": {" 2"}}, nil},
		{"number takes precedence", url.Values{"number": {"555121"}, "mac": {"aa:bb:cc:dd:ee:ff"}}, nil},
		{"none", url.Values{}, ErrMissingParameter},
		{"switch name only", url.Values{"switch_name": {"Switch 01"}}, ErrMissingParameter},
		{"invalid number", url.Values{"number": {"hogzilla"}}, ErrInvalidParameter},
		{"unknown number", url.Values{"number": {"1"}}, ErrNotFound},
		{"unknown mac", url.Values{"mac": {"aa:bb:cc:dd:ee:ff"}}, ErrNotFound},
		{"unknown port", url.Values{"switch_name": {"Switch 01"}, "switch_port": {"3"}}, ErrNotFound},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			server, zone, err := d.Resolve(ctx, tc.params)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, server)
				return
			}

			require.Nil(t, err)
			require.NotNil(t, server)
			assert.Equal(t, fixtures.HogzillaNumber, server.ServerNumber)
			require.NotNil(t, zone)
			assert.Equal(t, fixtures.ZoneDFW.Name, zone.Name)
		})
	}
}

func TestResolveSeedFileServer(t *testing.T) {
	ctx := context.Background()

	repo, err := store.NewMemStoreWithOptions(
		ctx,
		store.MemoryOptions{SeedFile: "../store/testdata/seed_raw_keys.yaml"},
		formatter.NewCanonical(),
		logrus.New(),
	)
	require.Nil(t, err)

	d := New(newProviders(t, repo), Options{}, nil, logrus.New())

	for _, params := range []url.Values{
		{"mac": {"00-11-22-33-44-AA"}},
		{"mac": {"00:11:22:33:44:aa"}},
		{"switch_name": {"Switch  01"}, "switch_port": {" 1"}},
	} {
		server, zone, err := d.Resolve(ctx, params)
		require.Nil(t, err, params)
		require.NotNil(t, server)
		assert.Equal(t, "warthog", server.Hostname)
		require.NotNil(t, zone)
		assert.Equal(t, fixtures.ZoneDFW.Name, zone.Name)
	}

	script, err := d.ProvisionScript(ctx, "00-11-22-33-44-AA")
	require.Nil(t, err)
	assert.Contains(t, script, "d-i netcfg/get_hostname string warthog\n")
}

func TestResolveStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)

	repo := store.NewMockRepository(ctrl)
	repo.EXPECT().ServerByMAC(gomock.Any(), "00:11:22:33:44:55").Times(1).Return(nil, errors.Wrap(store.ErrQuery, "pound sand"))

	d := New(newProviders(t, repo), Options{}, nil, logrus.New())

	_, _, err := d.Resolve(context.Background(), url.Values{"mac": {"00:11:22:33:44:55"}})
	assert.ErrorIs(t, err, store.ErrQuery)
}

func TestResolveLoadsZoneByNumber(t *testing.T) {
	ctrl := gomock.NewController(t)

	zone := fixtures.ZoneDFW

	repo := store.NewMockRepository(ctrl)
	gomock.InOrder(
		repo.EXPECT().ServerBySwitch(gomock.Any(), "Switch 01", "1").Times(1).Return(fixtures.CopyHogzilla(), nil),
		repo.EXPECT().ServerByNumber(gomock.Any(), fixtures.HogzillaNumber).Times(1).Return(fixtures.CopyHogzilla(), &zone, nil),
	)

	d := New(newProviders(t, repo), Options{}, nil, logrus.New())

	server, gotZone, err := d.Resolve(context.Background(), url.Values{"switch_name": {"Switch 01"}, "switch_port": {"1"}})
	require.Nil(t, err)
	assert.Equal(t, "hogzilla", server.Hostname)
	assert.Equal(t, &zone, gotZone)
}

func TestBootScript(t *testing.T) {
	d, _ := newSeededDispatcher(t)

	got, err := d.BootScript(context.Background(), url.Values{"mac": {"00:11:22:33:44:55"}, "terraform_ip": {"10.0.0.5"}}, "")
	require.Nil(t, err)
	assert.Contains(t, got, "set hostname hogzilla\n")
	assert.Contains(t, got, "set terraform_ip 10.0.0.5\n")

	_, err = d.BootScript(context.Background(), url.Values{}, "")
	assert.ErrorIs(t, err, ErrMissingParameter)
}

func TestHardwareScript(t *testing.T) {
	d, _ := newSeededDispatcher(t)

	got, err := d.HardwareScript(context.Background(), url.Values{"manufacturer": {"Dell "}, "product": {"r 810"}})
	require.Nil(t, err)
	assert.Contains(t, got, "r810")

	_, err = d.HardwareScript(context.Background(), url.Values{"manufacturer": {"Dell"}})
	assert.ErrorIs(t, err, ErrMissingParameter)
}

func TestSetters(t *testing.T) {
	ctx := context.Background()
	d, publisher := newSeededDispatcher(t)

	result, err := d.SetOperationalStatus(ctx, "555121", "Production")
	require.Nil(t, err)
	assert.True(t, result.Succeeded())

	server, _, err := d.Resolve(ctx, url.Values{"number": {"555121"}})
	require.Nil(t, err)
	assert.Equal(t, "Production", server.OperationalStatus)

	result, err = d.SetBootStatus(ctx, "555121", "Done")
	require.Nil(t, err)
	assert.Equal(t, model.MutationSuccess(model.FieldBootStatus, "Done"), result)

	result, err = d.SetBootOS(ctx, "555121", "Gentoo")
	require.Nil(t, err)
	assert.Equal(t, model.MutationSuccess(model.FieldBootOS, "Gentoo"), result)

	require.Len(t, publisher.events, 3)
	assert.Equal(t, model.EventFieldOperationalStatus, publisher.events[0].Field)
	assert.Equal(t, "Production", publisher.events[0].Value)
	assert.Equal(t, model.EventFieldBootOS, publisher.events[2].Field)

	// missing server, no event
	result, err = d.SetBootStatus(ctx, "1", "Done")
	require.Nil(t, err)
	assert.Equal(t, model.MutationFailure(model.ReasonDeviceNotFound), result)
	assert.Len(t, publisher.events, 3)

	_, err = d.SetBootStatus(ctx, "", "Done")
	assert.ErrorIs(t, err, ErrMissingParameter)

	_, err = d.SetBootOS(ctx, "555121", " ")
	assert.ErrorIs(t, err, ErrMissingParameter)

	_, err = d.SetOperationalStatus(ctx, "hogzilla", "Production")
	assert.ErrorIs(t, err, ErrInvalidParameter)

	// publish failures do not fail the update
	publisher.err = errors.New("pound sand")

	result, err = d.SetBootStatus(ctx, "555121", "Kicking")
	require.Nil(t, err)
	assert.True(t, result.Succeeded())
}

func TestProvisionScript(t *testing.T) {
	ctx := context.Background()
	d, _ := newSeededDispatcher(t)

	got, err := d.ProvisionScript(ctx, "00:11:22:33:44:55")
	require.Nil(t, err)
	assert.Contains(t, got, "d-i netcfg/get_hostname string hogzilla\n")

	_, err = d.SetOperationalStatus(ctx, "555121", "Production")
	require.Nil(t, err)

	got, err = d.ProvisionScript(ctx, "00:11:22:33:44:55")
	assert.ErrorIs(t, err, provision.ErrAlreadyProvisioned)
	assert.Empty(t, got)

	_, err = d.SetOperationalStatus(ctx, "555121", "Maintenance")
	require.Nil(t, err)

	_, err = d.ProvisionScript(ctx, "00:11:22:33:44:55")
	assert.ErrorIs(t, err, provision.ErrNotEligible)

	_, err = d.ProvisionScript(ctx, "")
	assert.ErrorIs(t, err, ErrMissingParameter)

	_, err = d.ProvisionScript(ctx, "aa:bb:cc:dd:ee:ff")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVersions(t *testing.T) {
	ctx := context.Background()
	d, _ := newSeededDispatcher(t)

	manifest, err := d.Versions(ctx)
	require.Nil(t, err)
	assert.Equal(t, "ORD", manifest.Region)

	vars, err := d.VersionBootVars(ctx, "")
	require.Nil(t, err)
	assert.Contains(t, vars, "set latest_version 27")

	_, err = d.VersionBootVars(ctx, "bogus")
	assert.ErrorIs(t, err, release.ErrUnknownProject)
}

func TestCreateServer(t *testing.T) {
	ctx := context.Background()
	d, _ := newSeededDispatcher(t)

	err := d.CreateServer(ctx, fixtures.CopyHogzilla(), nil)
	assert.ErrorIs(t, err, store.ErrDuplicateServer)

	err = d.CreateServer(ctx, nil, nil)
	assert.ErrorIs(t, err, ErrMissingParameter)

	invalid := fixtures.CopyHogzilla()
	invalid.ServerNumber = 0

	err = d.CreateServer(ctx, invalid, nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	other := fixtures.CopyHogzilla()
	other.ServerNumber = 555122
	other.Hostname = "hogzilla2"
	other.PrimaryMAC = "0011.2233.4466"

	require.Nil(t, d.CreateServer(ctx, other, nil))

	server, err := d.ServerByHostname(ctx, "hogzilla2")
	require.Nil(t, err)
	assert.Equal(t, "00:11:22:33:44:66", server.PrimaryMAC)

	// the caller record is left unchanged
	assert.Equal(t, "0011.2233.4466", other.PrimaryMAC)

	_, err = d.ServerByHostname(ctx, "bogus")
	assert.ErrorIs(t, err, ErrNotFound)
}
