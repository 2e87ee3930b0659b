package release

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// StaticOptions configures the static version source class.
type StaticOptions struct {
	// File is an optional YAML or JSON manifest, the built in manifest is served when empty.
	File           string `mapstructure:"file"`
	DefaultProject string `mapstructure:"default_project"`
}

// Static serves a fixed version manifest.
type Static struct {
	manifest       *Manifest
	defaultProject string
}

// NewStatic returns a static version source.
func NewStatic(opts StaticOptions, logger *logrus.Logger) (*Static, error) {
	manifest := DefaultManifest()

	if opts.File != "" {
		var err error

		manifest, err = ReadManifest(opts.File)
		if err != nil {
			return nil, err
		}

		logger.WithField("file", opts.File).Debug("version manifest loaded")
	}

	if opts.DefaultProject != "" {
		if _, exists := manifest.Projects[opts.DefaultProject]; !exists {
			return nil, errors.Wrap(ErrUnknownProject, "default_project: "+opts.DefaultProject)
		}
	}

	return &Static{manifest: manifest, defaultProject: opts.DefaultProject}, nil
}

// ReadManifest reads a YAML or JSON manifest file.
func ReadManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(ErrManifest, err.Error())
	}

	manifest := &Manifest{}
	if err := yaml.Unmarshal(b, manifest); err != nil {
		return nil, errors.Wrap(ErrManifest, path+": "+err.Error())
	}

	return manifest, nil
}

func (s *Static) LatestVersions(_ context.Context) (*Manifest, error) {
	return s.manifest, nil
}

func (s *Static) LatestBootVars(_ context.Context, project string) (string, error) {
	return s.manifest.BootVars(project, s.defaultProject)
}
