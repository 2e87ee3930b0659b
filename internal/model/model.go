package model

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type AppKind string

const (
	AppName = "bootline"

	AppKindServer AppKind = "server"
	AppKindClient AppKind = "client"

	LogLevelInfo  = 0
	LogLevelDebug = 1
	LogLevelTrace = 2

	// DefaultDNSDomain is applied to server records created without a DNS domain.
	DefaultDNSDomain = "rpc.local"
)

var (
	ErrInvalidServerNumber = errors.New("invalid server number")
)

// AppKinds returns the supported bootline app kinds
func AppKinds() []AppKind { return []AppKind{AppKindServer, AppKindClient} }

// ServerNumber is the inventory identity of a server, usually its asset or device number.
type ServerNumber int64

// ParseServerNumber accepts the numeric string form of a server number.
func ParseServerNumber(s string) (ServerNumber, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, errors.Wrap(ErrInvalidServerNumber, "empty value")
	}

	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidServerNumber, s)
	}

	return ServerNumber(n), nil
}

func (n ServerNumber) String() string {
	return strconv.FormatInt(int64(n), 10)
}
