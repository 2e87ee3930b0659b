package store

import (
	"context"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/metal-toolbox/bootline/internal/formatter"
	"github.com/metal-toolbox/bootline/internal/model"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var (
	ErrSeedFile = errors.New("error in inventory seed file")
)

// SeedServer is a server entry in the seed file along with its switch ports.
type SeedServer struct {
	model.ServerRecord `yaml:",inline"`

	Switches []SeedSwitchPort `yaml:"switches"`
}

type SeedSwitchPort struct {
	SwitchName string `yaml:"switch_name"`
	SwitchPort string `yaml:"switch_port"`
}

// Seed is the inventory seed file format.
type Seed struct {
	Zones   []model.ProvisionZone `yaml:"zones"`
	Servers []SeedServer          `yaml:"servers"`
}

// ReadSeed parses the inventory seed file.
func ReadSeed(path string) (*Seed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(ErrSeedFile, err.Error())
	}

	seed := &Seed{}
	if err := yaml.Unmarshal(b, seed); err != nil {
		return nil, errors.Wrap(ErrSeedFile, path+": "+err.Error())
	}

	return seed, nil
}

// LoadSeed reads the seed file and inserts its zones, servers and switch
// ports into the repository, zones are inserted first.
//
// Every entry is attempted, the returned error accumulates the failed entries.
func LoadSeed(ctx context.Context, repository Repository, path string, keys formatter.Formatter) error {
	seed, err := ReadSeed(path)
	if err != nil {
		return err
	}

	return Apply(ctx, repository, seed, keys)
}

// Apply inserts the seed contents into the repository.
//
// MAC addresses, switch names and switch ports are passed through keys before
// they are stored, so seeded servers resolve by the same keys a boot request is
// formatted to. A nil keys stores them as given.
func Apply(ctx context.Context, repository Repository, seed *Seed, keys formatter.Formatter) error {
	if keys == nil {
		keys = formatter.NewNoop()
	}

	var merr *multierror.Error

	for idx := range seed.Zones {
		if err := repository.AddProvisionZone(ctx, &seed.Zones[idx]); err != nil {
			merr = multierror.Append(merr, err)
		}
	}

	for idx := range seed.Servers {
		record := seed.Servers[idx].ServerRecord
		if record.ServerNumber <= 0 {
			merr = multierror.Append(merr, errors.Wrap(ErrSeedFile, "server_number "+record.ServerNumber.String()))
			continue
		}

		record.PrimaryMAC = keys.FormatMAC(record.PrimaryMAC)

		if err := repository.CreateEntry(ctx, &record); err != nil {
			merr = multierror.Append(merr, err)
			continue
		}

		for _, sw := range seed.Servers[idx].Switches {
			binding := &model.SwitchPortBinding{
				SwitchName:   keys.FormatSwitch(sw.SwitchName),
				SwitchPort:   keys.FormatPort(sw.SwitchPort),
				ServerNumber: record.ServerNumber,
			}

			if err := repository.AddSwitchBinding(ctx, binding); err != nil {
				merr = multierror.Append(merr, err)
			}
		}
	}

	return merr.ErrorOrNil()
}
