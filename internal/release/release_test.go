package release

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fedoraBootVars = `#!ipxe
# Last updated: Thu, 08 Oct 2015 20:30:04 +0000

set vmlinuz_url http://cloudfiles.rpc.local/squashible-kvm-fedora23/27/vmlinuz
set initrd_url http://cloudfiles.rpc.local/squashible-kvm-fedora23/27/initrd.img
set torrent_url torrent://torrents.rpc.local/squashible-kvm-fedora23/27/squashible-kvm-fedora23-27-ORD.torrent
set latest_version 27`

func TestStaticSource(t *testing.T) {
	ctx := context.Background()

	s, err := NewStatic(StaticOptions{}, logrus.New())
	require.Nil(t, err)

	manifest, err := s.LatestVersions(ctx)
	require.Nil(t, err)
	assert.Equal(t, "ORD", manifest.Region)
	assert.Equal(t, int64(1444336204), manifest.LastChecked)
	assert.Equal(t, 27, manifest.Projects["squashible-kvm-fedora23"].Latest)

	got, err := s.LatestBootVars(ctx, "")
	require.Nil(t, err)
	assert.Equal(t, fedoraBootVars, got)

	got, err = s.LatestBootVars(ctx, "squashible-kvm-fedora23")
	require.Nil(t, err)
	assert.Equal(t, fedoraBootVars, got)

	_, err = s.LatestBootVars(ctx, "squashible-kvm-centos7")
	assert.ErrorIs(t, err, ErrUnknownProject)

	_, err = NewStatic(StaticOptions{DefaultProject: "bogus"}, logrus.New())
	assert.ErrorIs(t, err, ErrUnknownProject)
}

func TestStaticSourceFromFile(t *testing.T) {
	manifest := DefaultManifest()
	manifest.Region = "DFW"

	b, err := json.Marshal(manifest)
	require.Nil(t, err)

	path := filepath.Join(t.TempDir(), "versions.json")
	require.Nil(t, os.WriteFile(path, b, 0o600))

	s, err := NewStatic(StaticOptions{File: path}, logrus.New())
	require.Nil(t, err)

	got, err := s.LatestBootVars(context.Background(), "")
	require.Nil(t, err)
	assert.Contains(t, got, "squashible-kvm-fedora23-27-DFW.torrent")

	_, err = NewStatic(StaticOptions{File: filepath.Join(t.TempDir(), "missing.json")}, logrus.New())
	assert.ErrorIs(t, err, ErrManifest)
}

func TestManifestBootVarsTorrentFallback(t *testing.T) {
	manifest := &Manifest{
		CloudFiles: CloudFiles{CDNURL: "http://cdn/", TorrentURL: "torrent://t"},
		Region:     "SYD",
		Projects: map[string]Project{
			"b": {Files: []string{"b/2/vmlinuz", "b/2/b-2.torrent"}, Latest: 2},
			"a": {Files: []string{"a/1/vmlinuz", "a/1/initrd.img"}, Latest: 1},
		},
	}

	// first project by name
	got, err := manifest.BootVars("", "")
	require.Nil(t, err)
	assert.Contains(t, got, "set vmlinuz_url http://cdn/a/1/vmlinuz\n")
	assert.Contains(t, got, "set latest_version 1")

	got, err = manifest.BootVars("b", "")
	require.Nil(t, err)
	assert.Contains(t, got, "set torrent_url torrent://t/b/2/b-2.torrent\n")
	assert.Contains(t, got, "set initrd_url \n")

	_, err = (&Manifest{}).BootVars("", "")
	assert.ErrorIs(t, err, ErrManifest)
}

func TestHTTPSource(t *testing.T) {
	var fail atomic.Bool

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(DefaultManifest())
	})

	srv := httptest.NewServer(handler)
	defer srv.Close()

	ctx := context.Background()

	h, err := NewHTTPSource(ctx, HTTPOptions{Endpoint: srv.URL}, logrus.New())
	require.Nil(t, err)

	h.retryDelay = time.Millisecond

	_, err = h.LatestVersions(ctx)
	assert.ErrorIs(t, err, ErrNoManifest)

	_, err = h.LatestBootVars(ctx, "")
	assert.ErrorIs(t, err, ErrNoManifest)

	require.Nil(t, h.Refresh(ctx))

	got, err := h.LatestBootVars(ctx, "")
	require.Nil(t, err)
	assert.Equal(t, fedoraBootVars, got)

	// the last good manifest is kept
	fail.Store(true)

	err = h.Refresh(ctx)
	assert.ErrorIs(t, err, ErrManifest)

	manifest, err := h.LatestVersions(ctx)
	require.Nil(t, err)
	assert.Equal(t, "ORD", manifest.Region)
}

func TestHTTPSourceRun(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(DefaultManifest())
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())

	h, err := NewHTTPSource(ctx, HTTPOptions{Endpoint: srv.URL, Schedule: "@every 1h"}, logrus.New())
	require.Nil(t, err)

	done := make(chan error, 1)

	go func() { done <- h.Run(ctx) }()

	assert.Eventually(t, func() bool {
		_, err := h.LatestVersions(context.Background())
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.Nil(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("refresher did not stop")
	}

	assert.Equal(t, int32(1), hits.Load())
}

func TestNewHTTPSourceOptions(t *testing.T) {
	ctx := context.Background()

	_, err := NewHTTPSource(ctx, HTTPOptions{}, logrus.New())
	assert.ErrorIs(t, err, ErrManifest)

	_, err = NewHTTPSource(ctx, HTTPOptions{Endpoint: "http://localhost/versions", Schedule: "every tuesday"}, logrus.New())
	assert.ErrorIs(t, err, ErrManifest)

	h, err := NewHTTPSource(ctx, HTTPOptions{Endpoint: "http://localhost/versions"}, logrus.New())
	require.Nil(t, err)
	assert.Equal(t, defaultSchedule, h.opts.Schedule)
	assert.Equal(t, defaultTimeout, h.opts.Timeout)
}
