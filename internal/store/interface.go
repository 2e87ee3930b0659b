package store

import (
	"context"

	"github.com/metal-toolbox/bootline/internal/model"
	"github.com/pkg/errors"
)

//go:generate mockgen -source interface.go -destination=mock_repository.go -package=store

const (
	pkgName = "internal/store"

	// Namespace is the provider namespace inventory store classes are registered under.
	Namespace = "store"

	KindSQL    = "sql"
	KindMemory = "memory"
)

var (
	ErrDuplicateServer = errors.New("server number already exists")
	ErrDuplicateZone   = errors.New("provision zone already exists")
	ErrUnknownServer   = errors.New("server number does not exist")
	ErrUnknownZone     = errors.New("provision zone does not exist")
	ErrQuery           = errors.New("inventory store query error")
	ErrStoreConfig     = errors.New("inventory store configuration error")
)

// Repository is the inventory store.
//
// Each method is an independent transaction, lookups return a nil record and
// nil error when nothing matches. Records returned are copies owned by the caller.
type Repository interface {
	// ServerByHostname returns the server with the given hostname.
	ServerByHostname(ctx context.Context, hostname string) (*model.ServerRecord, error)

	// ServerByNumber returns the server and its provision zone, the zone is nil
	// when the server has none assigned.
	ServerByNumber(ctx context.Context, number model.ServerNumber) (*model.ServerRecord, *model.ProvisionZone, error)

	// ServerByMAC returns the server with the given primary MAC address.
	ServerByMAC(ctx context.Context, mac string) (*model.ServerRecord, error)

	// ServerBySwitch returns the server cabled to the given switch name and port,
	// both must match.
	ServerBySwitch(ctx context.Context, switchName, switchPort string) (*model.ServerRecord, error)

	// SetBootStatus updates the boot status, a missing server is a failure result.
	SetBootStatus(ctx context.Context, number model.ServerNumber, status string) (model.MutationResult, error)

	// SetBootOS updates the boot OS, a missing server is a failure result.
	SetBootOS(ctx context.Context, number model.ServerNumber, os string) (model.MutationResult, error)

	// SetOperationalStatus updates the operational status, a missing server is a failure result.
	SetOperationalStatus(ctx context.Context, number model.ServerNumber, status string) (model.MutationResult, error)

	// CreateEntry inserts a server, returns ErrDuplicateServer if the number exists.
	CreateEntry(ctx context.Context, server *model.ServerRecord) error

	// AddSwitchBinding inserts a switch port binding, returns ErrUnknownServer
	// if the referenced server does not exist.
	AddSwitchBinding(ctx context.Context, binding *model.SwitchPortBinding) error

	// AddProvisionZone inserts a provision zone, returns ErrDuplicateZone if the name exists.
	AddProvisionZone(ctx context.Context, zone *model.ProvisionZone) error

	// Close releases the resources held by the store.
	Close() error
}
