package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalFormatMAC(t *testing.T) {
	testcases := []struct {
		name string
		mac  string
		want string
	}{
		{"colon upper", "00:11:22:AA:BB:CC", "00:11:22:aa:bb:cc"},
		{"dash", "00-11-22-aa-bb-cc", "00:11:22:aa:bb:cc"},
		{"dot", "0011.22aa.bbcc", "00:11:22:aa:bb:cc"},
		{"bare hex", "001122AABBCC", "00:11:22:aa:bb:cc"},
		{"surrounding whitespace", "  00:11:22:33:44:55\n", "00:11:22:33:44:55"},
		{"not a mac", " Bogus ", "bogus"},
		{"eui64 is left alone", "00:11:22:33:44:55:66:77", "00:11:22:33:44:55:66:77"},
		{"empty", "", ""},
	}

	c := NewCanonical()

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.FormatMAC(tc.mac)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, c.FormatMAC(got), "idempotent")
		})
	}
}

func TestCanonicalFormatSwitchPort(t *testing.T) {
	c := NewCanonical()

	assert.Equal(t, "Switch 01", c.FormatSwitch("  Switch \t 01 "))
	assert.Equal(t, "Switch 01", c.FormatSwitch(c.FormatSwitch("Switch   01")))

	assert.Equal(t, "Eth1/2", c.FormatPort(" Eth 1/2 "))
	assert.Equal(t, "1", c.FormatPort(c.FormatPort(" 1")))
}

func TestNoop(t *testing.T) {
	n := NewNoop()

	for _, v := range []string{"", " Switch 01 ", "00-11-22-33-44-55"} {
		assert.Equal(t, v, n.FormatMAC(v))
		assert.Equal(t, v, n.FormatSwitch(v))
		assert.Equal(t, v, n.FormatPort(v))
	}
}
