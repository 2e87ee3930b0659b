package formatter

import (
	"net"
	"strings"
)

const (
	// Namespace is the provider namespace formatter classes are registered under.
	Namespace = "formatter"

	KindNoop      = "noop"
	KindCanonical = "canonical"
)

// Formatter normalizes raw identifiers reported by boot firmware before
// they are used as inventory lookup keys.
//
// Implementations are pure, calling a method on its own output returns the same value.
type Formatter interface {
	FormatMAC(mac string) string
	FormatSwitch(name string) string
	FormatPort(port string) string
}

// Noop returns identifiers unchanged.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (n *Noop) FormatMAC(mac string) string     { return mac }
func (n *Noop) FormatSwitch(name string) string { return name }
func (n *Noop) FormatPort(port string) string   { return port }

// Canonical normalizes identifiers to the form inventory records are stored in.
type Canonical struct{}

func NewCanonical() *Canonical { return &Canonical{} }

// FormatMAC returns the lower case, colon separated form of a 48 bit MAC
// address given in colon, dash, dot or bare hex notation.
//
// Values that do not parse as a 48 bit address are returned trimmed and lower cased.
func (c *Canonical) FormatMAC(mac string) string {
	trimmed := strings.ToLower(strings.TrimSpace(mac))

	candidate := trimmed
	if len(candidate) == 12 && isHex(candidate) {
		candidate = candidate[0:4] + "." + candidate[4:8] + "." + candidate[8:12]
	}

	hw, err := net.ParseMAC(candidate)
	if err != nil || len(hw) != 6 {
		return trimmed
	}

	return hw.String()
}

// FormatSwitch trims the switch name and collapses whitespace runs into a single space.
func (c *Canonical) FormatSwitch(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// FormatPort removes all whitespace from the switch port.
func (c *Canonical) FormatPort(port string) string {
	return strings.Join(strings.Fields(port), "")
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f':
		default:
			return false
		}
	}

	return true
}
