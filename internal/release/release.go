package release

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const (
	pkgName = "internal/release"

	// Namespace is the provider namespace version source classes are registered under.
	Namespace = "release"

	KindStatic = "static"
	KindHTTP   = "http"
)

var (
	ErrUnknownProject = errors.New("unknown project")
	ErrNoManifest     = errors.New("version manifest not available")
	ErrManifest       = errors.New("error in version manifest")
)

// Source returns the latest published software versions.
type Source interface {
	// LatestVersions returns the version manifest.
	LatestVersions(ctx context.Context) (*Manifest, error)

	// LatestBootVars returns the iPXE variables to boot the latest version of the project,
	// an empty project selects the default project.
	LatestBootVars(ctx context.Context, project string) (string, error)
}

// Refresher is implemented by sources that update their manifest in the background.
//
// Run blocks until the context is canceled.
type Refresher interface {
	Run(ctx context.Context) error
}

// CloudFiles is the object storage the release artifacts are published to.
type CloudFiles struct {
	CDNURL     string `json:"cdn_url" yaml:"cdn_url"`
	Container  string `json:"container" yaml:"container"`
	TorrentURL string `json:"torrent_url" yaml:"torrent_url"`
}

// Project lists the artifacts of the latest version of a project.
type Project struct {
	Files  []string `json:"files" yaml:"files"`
	Latest int      `json:"latest" yaml:"latest"`
}

// Manifest describes the latest published version of each project.
type Manifest struct {
	CloudFiles      CloudFiles         `json:"cloud_files" yaml:"cloud_files"`
	Region          string             `json:"region" yaml:"region"`
	LastCheckedDate string             `json:"last_checked_date" yaml:"last_checked_date"`
	LastChecked     int64              `json:"last_checked" yaml:"last_checked"`
	Projects        map[string]Project `json:"projects" yaml:"projects"`
}

// DefaultManifest returns the built in manifest served by the static source.
func DefaultManifest() *Manifest {
	return &Manifest{
		CloudFiles: CloudFiles{
			CDNURL:     "http://cloudfiles.rpc.local",
			Container:  "private",
			TorrentURL: "torrent://torrents.rpc.local",
		},
		Region:          "ORD",
		LastCheckedDate: "Thu, 08 Oct 2015 20:30:04 +0000",
		LastChecked:     1444336204,
		Projects: map[string]Project{
			"squashible-kvm-fedora23": {
				Files: []string{
					"squashible-kvm-fedora23/27/initrd.img",
					"squashible-kvm-fedora23/27/rootfs.img.tgz",
					"squashible-kvm-fedora23/27/squashible-kvm-fedora23-27-DFW.torrent",
					"squashible-kvm-fedora23/27/squashible-kvm-fedora23-27-ORD.torrent",
					"squashible-kvm-fedora23/27/squashible-kvm-fedora23-27.torrent",
					"squashible-kvm-fedora23/27/vmlinuz",
				},
				Latest: 27,
			},
		},
	}
}

// ProjectNames returns the manifest project names in sorted order.
func (m *Manifest) ProjectNames() []string {
	names := make([]string, 0, len(m.Projects))
	for name := range m.Projects {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// resolveProject returns the project name to render, the default project
// is used when none is given, then the first project by name.
func (m *Manifest) resolveProject(project, defaultProject string) (string, error) {
	if project == "" {
		project = defaultProject
	}

	if project == "" {
		names := m.ProjectNames()
		if len(names) == 0 {
			return "", errors.Wrap(ErrManifest, "no projects listed")
		}

		return names[0], nil
	}

	if _, exists := m.Projects[project]; !exists {
		return "", errors.Wrap(ErrUnknownProject, project)
	}

	return project, nil
}

func (m *Manifest) fileWithSuffix(project, suffix string) string {
	for _, f := range m.Projects[project].Files {
		if strings.HasSuffix(f, suffix) {
			return f
		}
	}

	return ""
}

func joinURL(base, path string) string {
	if path == "" {
		return ""
	}

	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}

// BootVars renders the iPXE variables for the latest version of the project.
func (m *Manifest) BootVars(project, defaultProject string) (string, error) {
	name, err := m.resolveProject(project, defaultProject)
	if err != nil {
		return "", err
	}

	p := m.Projects[name]

	torrent := m.fileWithSuffix(name, fmt.Sprintf("-%d-%s.torrent", p.Latest, m.Region))
	if torrent == "" {
		torrent = m.fileWithSuffix(name, fmt.Sprintf("-%d.torrent", p.Latest))
	}

	var b strings.Builder

	b.WriteString("#!ipxe\n")
	b.WriteString("# Last updated: " + m.LastCheckedDate + "\n\n")
	b.WriteString("set vmlinuz_url " + joinURL(m.CloudFiles.CDNURL, m.fileWithSuffix(name, "/vmlinuz")) + "\n")
	b.WriteString("set initrd_url " + joinURL(m.CloudFiles.CDNURL, m.fileWithSuffix(name, "/initrd.img")) + "\n")
	b.WriteString("set torrent_url " + joinURL(m.CloudFiles.TorrentURL, torrent) + "\n")
	b.WriteString(fmt.Sprintf("set latest_version %d", p.Latest))

	return b.String(), nil
}
