package store

import (
	"context"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/metal-toolbox/bootline/internal/formatter"
	"github.com/metal-toolbox/bootline/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MemoryOptions configures the memory inventory store class.
type MemoryOptions struct {
	// SeedFile is an optional inventory YAML file loaded when the store is created.
	SeedFile string `mapstructure:"seed_file"`
}

// MemStore is an inventory store held in process memory, its contents are
// lost on restart.
type MemStore struct {
	mu *sync.RWMutex

	// servers is a map of server numbers to server records
	servers map[model.ServerNumber]model.ServerRecord
	// zones is a map of zone names to provision zones
	zones    map[string]model.ProvisionZone
	switches []model.SwitchPortBinding
	logger   *logrus.Logger
}

func NewMemStore(logger *logrus.Logger) *MemStore {
	return &MemStore{
		mu:      &sync.RWMutex{},
		servers: map[model.ServerNumber]model.ServerRecord{},
		zones:   map[string]model.ProvisionZone{},
		logger:  logger,
	}
}

// NewMemStoreWithOptions returns a memory store, loaded from the seed file when one is given.
//
// Seeded lookup keys are formatted with keys.
func NewMemStoreWithOptions(ctx context.Context, opts MemoryOptions, keys formatter.Formatter, logger *logrus.Logger) (*MemStore, error) {
	m := NewMemStore(logger)

	if opts.SeedFile == "" {
		return m, nil
	}

	if err := LoadSeed(ctx, m, opts.SeedFile, keys); err != nil {
		return nil, errors.Wrap(ErrStoreConfig, err.Error())
	}

	return m, nil
}

func copyServer(server *model.ServerRecord) (*model.ServerRecord, error) {
	out := &model.ServerRecord{}
	if err := copier.Copy(out, server); err != nil {
		return nil, errors.Wrap(ErrQuery, err.Error())
	}

	return out, nil
}

func (m *MemStore) ServerByHostname(_ context.Context, hostname string) (*model.ServerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.servers {
		if s.Hostname == hostname {
			return copyServer(&s)
		}
	}

	return nil, nil
}

func (m *MemStore) ServerByNumber(_ context.Context, number model.ServerNumber) (*model.ServerRecord, *model.ProvisionZone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, exists := m.servers[number]
	if !exists {
		return nil, nil, nil
	}

	server, err := copyServer(&s)
	if err != nil {
		return nil, nil, err
	}

	zone, exists := m.zones[s.ProvisionZone]
	if !exists {
		return server, nil, nil
	}

	return server, &zone, nil
}

func (m *MemStore) ServerByMAC(_ context.Context, mac string) (*model.ServerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.servers {
		if s.PrimaryMAC == mac {
			return copyServer(&s)
		}
	}

	return nil, nil
}

func (m *MemStore) ServerBySwitch(_ context.Context, switchName, switchPort string) (*model.ServerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, b := range m.switches {
		if b.SwitchName != switchName || b.SwitchPort != switchPort {
			continue
		}

		if s, exists := m.servers[b.ServerNumber]; exists {
			return copyServer(&s)
		}
	}

	return nil, nil
}

func (m *MemStore) update(number model.ServerNumber, field, value string, fn func(s *model.ServerRecord)) model.MutationResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, exists := m.servers[number]
	if !exists {
		return model.MutationFailure(model.ReasonDeviceNotFound)
	}

	fn(&s)
	m.servers[number] = s

	return model.MutationSuccess(field, value)
}

func (m *MemStore) SetBootStatus(_ context.Context, number model.ServerNumber, status string) (model.MutationResult, error) {
	return m.update(number, model.FieldBootStatus, status, func(s *model.ServerRecord) { s.BootStatus = status }), nil
}

func (m *MemStore) SetBootOS(_ context.Context, number model.ServerNumber, os string) (model.MutationResult, error) {
	return m.update(number, model.FieldBootOS, os, func(s *model.ServerRecord) { s.BootOS = os }), nil
}

func (m *MemStore) SetOperationalStatus(_ context.Context, number model.ServerNumber, status string) (model.MutationResult, error) {
	return m.update(number, model.FieldOperationalStatus, status, func(s *model.ServerRecord) { s.OperationalStatus = status }), nil
}

func (m *MemStore) CreateEntry(_ context.Context, server *model.ServerRecord) error {
	if server == nil {
		return errors.Wrap(ErrQuery, "CreateEntry: nil server")
	}

	record, err := copyServer(server)
	if err != nil {
		return err
	}

	if record.DNSDomain == "" {
		record.DNSDomain = model.DefaultDNSDomain
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.servers[record.ServerNumber]; exists {
		return errors.Wrap(ErrDuplicateServer, record.ServerNumber.String())
	}

	if record.ProvisionZone != "" {
		if _, exists := m.zones[record.ProvisionZone]; !exists {
			return errors.Wrap(ErrUnknownZone, record.ProvisionZone)
		}
	}

	m.servers[record.ServerNumber] = *record

	return nil
}

func (m *MemStore) AddSwitchBinding(_ context.Context, binding *model.SwitchPortBinding) error {
	if binding == nil {
		return errors.Wrap(ErrQuery, "AddSwitchBinding: nil binding")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.servers[binding.ServerNumber]; !exists {
		return errors.Wrap(ErrUnknownServer, binding.ServerNumber.String())
	}

	m.switches = append(m.switches, *binding)

	return nil
}

func (m *MemStore) AddProvisionZone(_ context.Context, zone *model.ProvisionZone) error {
	if zone == nil {
		return errors.Wrap(ErrQuery, "AddProvisionZone: nil zone")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.zones[zone.Name]; exists {
		return errors.Wrap(ErrDuplicateZone, zone.Name)
	}

	m.zones[zone.Name] = *zone

	return nil
}

func (m *MemStore) Close() error {
	return nil
}
